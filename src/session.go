package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Session directory layout and take persistence, per
 *		spec.md §4.J.
 *
 * Description:	One session is one directory named from the session
 *		start time, formatted with lestrrat-go/strftime the way
 *		the teacher formats timestamped names (deviceid.go's
 *		config search uses plain time formatting; strftime is
 *		pack-grounded via the broader examples' use of C-style
 *		format strings). Takes are persisted as loop_NNN.wav via
 *		wav.go's write-then-rename WriteWAVFile.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lestrrat-go/strftime"
)

const sessionDirFormat = "%Y-%m-%d__%H-%M-%S"

// Session owns one recording session's directory and its ordered list of
// committed takes (spec.md §3's "ordered collection of takes").
type Session struct {
	root  string // e.g. ".../recordings"
	dir   string // root/<timestamp>
	takes []string
	n     int
}

// NewSession creates a fresh, empty session directory under root, named
// for startedAt.
func NewSession(root string, startedAt time.Time) (*Session, error) {
	var f, err = strftime.New(sessionDirFormat)
	if err != nil {
		return nil, fmt.Errorf("compiling session directory format: %w", err)
	}

	var name = f.FormatString(startedAt)
	var dir = filepath.Join(root, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating session directory %s: %v", ErrFilesystem, dir, err)
	}

	return &Session{root: root, dir: dir}, nil
}

// Dir returns the session's directory path.
func (s *Session) Dir() string { return s.dir }

// Takes returns the file paths of every take committed so far, in order.
func (s *Session) Takes() []string {
	var out = make([]string, len(s.takes))
	copy(out, s.takes)

	return out
}

// Len returns the number of committed takes.
func (s *Session) Len() int { return len(s.takes) }

// CommitTake writes frames as the next take in sequence (loop_000.wav,
// loop_001.wav, ...) and records it in the take list. Called from
// looper.go's endRecordingLocked when a recording is committed at the bar
// boundary; the mid-bar half-commit path does not write a take.
func (s *Session) CommitTake(frames []float32) (string, error) {
	var path = filepath.Join(s.dir, fmt.Sprintf("loop_%03d.wav", s.n))

	if err := WriteWAVFile(path, frames); err != nil {
		return "", fmt.Errorf("committing take %d: %w", s.n, err)
	}

	s.takes = append(s.takes, path)
	s.n++

	return path, nil
}

// DiscardPending is a no-op placeholder for the release_back cancellation
// path: nothing is written to disk until CommitTake runs, so cancelling an
// armed or in-progress take (spec.md §4.G's release_back) never touches the
// session directory. Kept as an explicit method so looper.go's cancellation
// branch has a named call site, mirroring the original's explicit
// else-branch in add_recording_to_loops.
func (s *Session) DiscardPending() {}
