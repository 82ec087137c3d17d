package looper

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_CreatesTimestampedDirectory(t *testing.T) {
	var root = t.TempDir()
	var when = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	var session, err = NewSession(root, when)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "2026-03-14__09-26-53"), session.Dir())
	assert.DirExists(t, session.Dir())
}

func TestSession_CommitTake_NamesSequentially(t *testing.T) {
	var root = t.TempDir()
	var session, err = NewSession(root, time.Now())
	require.NoError(t, err)

	var path0, err0 = session.CommitTake([]float32{0, 0, 0.5, 0.5})
	require.NoError(t, err0)
	assert.Equal(t, filepath.Join(session.Dir(), "loop_000.wav"), path0)

	var path1, err1 = session.CommitTake([]float32{0.1, 0.1})
	require.NoError(t, err1)
	assert.Equal(t, filepath.Join(session.Dir(), "loop_001.wav"), path1)

	assert.Equal(t, 2, session.Len())
	assert.Equal(t, []string{path0, path1}, session.Takes())
}

func TestSession_CommitTake_RoundTripsThroughWAV(t *testing.T) {
	var root = t.TempDir()
	var session, err = NewSession(root, time.Now())
	require.NoError(t, err)

	var frames = []float32{0.25, -0.25, 0.5, -0.5, 1.0, -1.0}
	var path, commitErr = session.CommitTake(frames)
	require.NoError(t, commitErr)

	var readBack, readErr = ReadWAVFile(path)
	require.NoError(t, readErr)
	assert.InDeltaSlice(t, frames, readBack, 1e-6)
}
