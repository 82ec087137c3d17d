/* loopersim: a hardware-free development harness for the looper. It
 * implements looper.HardwarePanel over process-local state rather than
 * real GPIO lines, and drives button edges from the keyboard: lowercase
 * letters press, uppercase letters release (r/R=rec, p/P=play, b/B=back,
 * f/F=forw). It opens a pseudo-terminal (grounded in src/kiss.go's
 * creack/pty usage there for a virtual KISS TNC serial device) purely so
 * the slave side can be watched with `cat` for a lamp-state transcript,
 * and puts the controlling terminal into cbreak mode with
 * github.com/pkg/term so individual keystrokes arrive without waiting on
 * Enter. This never ships as looperd's control surface. */
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	looper "github.com/fourbutton/loopstation/src"
	"github.com/creack/pty"
	"github.com/pkg/term"
)

// simLamp prints its state to the pty's slave side so `cat <slave>` gives
// a lamp-state transcript without needing real hardware.
type simLamp struct {
	name   string
	mu     *sync.Mutex
	out    *os.File
}

func (l *simLamp) On()  { l.write("ON") }
func (l *simLamp) Off() { l.write("OFF") }

func (l *simLamp) write(state string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s %s\n", l.name, state)
}

// simPanel implements looper.HardwarePanel entirely in memory.
type simPanel struct {
	mu      sync.Mutex
	active  map[looper.ButtonID]bool
	lamps   map[looper.ButtonID]*simLamp
	events  chan looper.ButtonEvent
	out     *os.File
}

func newSimPanel(out *os.File) *simPanel {
	var p = &simPanel{
		active: make(map[looper.ButtonID]bool, 4),
		lamps:  make(map[looper.ButtonID]*simLamp, 4),
		events: make(chan looper.ButtonEvent, 16),
		out:    out,
	}

	var writeMu sync.Mutex
	for id, name := range map[looper.ButtonID]string{
		looper.ButtonRec:  "rec",
		looper.ButtonPlay: "play",
		looper.ButtonBack: "back",
		looper.ButtonForw: "forw",
	} {
		p.lamps[id] = &simLamp{name: name, mu: &writeMu, out: out}
	}

	return p
}

func (p *simPanel) Events() <-chan looper.ButtonEvent { return p.events }

func (p *simPanel) IsActive(id looper.ButtonID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.active[id]
}

func (p *simPanel) Lamp(id looper.ButtonID) looper.Lamp { return p.lamps[id] }

func (p *simPanel) Close() error { return nil }

func (p *simPanel) press(id looper.ButtonID, down bool) {
	p.mu.Lock()
	p.active[id] = down
	p.mu.Unlock()

	var edge = looper.EdgeRelease
	if down {
		edge = looper.EdgePress
	}

	select {
	case p.events <- looper.ButtonEvent{Button: id, Edge: edge}:
	default:
	}
}

var keymap = map[rune]looper.ButtonID{
	'r': looper.ButtonRec, 'R': looper.ButtonRec,
	'p': looper.ButtonPlay, 'P': looper.ButtonPlay,
	'b': looper.ButtonBack, 'B': looper.ButtonBack,
	'f': looper.ButtonForw, 'F': looper.ButtonForw,
}

func main() {
	looper.SetLogLevel(1)

	var ptmx, pts, ptyErr = pty.Open()
	if ptyErr != nil {
		fmt.Fprintf(os.Stderr, "opening pty: %v\n", ptyErr)
		os.Exit(1)
	}
	defer ptmx.Close()
	defer pts.Close()

	fmt.Printf("lamp transcript available at: %s (cat it from another terminal)\n", pts.Name())
	fmt.Println("keys: r/R rec, p/P play, b/B back, f/F forw (lowercase=press, uppercase=release); q to quit")

	var tty, ttyErr = term.Open(os.Stdin.Name(), term.CBreakMode)
	if ttyErr != nil {
		fmt.Fprintf(os.Stderr, "putting terminal in cbreak mode: %v\n", ttyErr)
		os.Exit(1)
	}
	defer tty.Restore()
	defer tty.Close()

	var panel = newSimPanel(ptmx)

	var cfg = looper.DefaultConfig()
	cfg.RecordingRoot = os.TempDir()

	var session, sessionErr = looper.NewSession(cfg.RecordingRoot, time.Now())
	if sessionErr != nil {
		fmt.Fprintf(os.Stderr, "creating session: %v\n", sessionErr)
		os.Exit(1)
	}

	var instance, instanceErr = looper.NewLooper(cfg, panel, session)
	if instanceErr != nil {
		fmt.Fprintf(os.Stderr, "starting looper: %v\n", instanceErr)
		os.Exit(1)
	}

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go readKeys(tty, panel, cancel)

	if runErr := instance.Run(ctx); runErr != nil {
		fmt.Fprintf(os.Stderr, "looper exited: %v\n", runErr)
	}
}

func readKeys(tty *term.Term, panel *simPanel, quit context.CancelFunc) {
	var buf = make([]byte, 1)

	for {
		var n, err = tty.Read(buf)
		if err != nil || n == 0 {
			return
		}

		var k = rune(buf[0])
		if k == 'q' {
			quit()

			return
		}

		var id, ok = keymap[k]
		if !ok {
			continue
		}

		panel.press(id, k >= 'a' && k <= 'z')
	}
}
