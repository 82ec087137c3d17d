package looper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAudioBackend is a test double for AudioBackend, avoiding any need
// for real portaudio hardware, the same way mockOutputLine/mockInputLine
// (gpio_test.go) avoid real GPIO hardware.
type fakeAudioBackend struct {
	started, stopped, closed int
	injected                 [][]float32
}

func (f *fakeAudioBackend) Start() error { f.started++; return nil }
func (f *fakeAudioBackend) Stop() error  { f.stopped++; return nil }
func (f *fakeAudioBackend) Close() error { f.closed++; return nil }
func (f *fakeAudioBackend) Inject(block []float32) {
	f.injected = append(f.injected, block)
}

func fakeAudioOpener(backend *fakeAudioBackend) AudioOpener {
	return func(cfg Config, onInput func(block []float32)) (AudioBackend, error) {
		return backend, nil
	}
}

// fakePanel is a test double for HardwarePanel: an in-memory control
// surface with no real GPIO chip behind it, letting handleButtonEvent be
// driven directly by pushing onto events.
type fakePanel struct {
	events chan ButtonEvent
	active map[ButtonID]bool
	lamps  map[ButtonID]*mockLamp
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		events: make(chan ButtonEvent, 16),
		active: make(map[ButtonID]bool, 4),
		lamps: map[ButtonID]*mockLamp{
			ButtonRec:  {},
			ButtonPlay: {},
			ButtonBack: {},
			ButtonForw: {},
		},
	}
}

func (p *fakePanel) Events() <-chan ButtonEvent { return p.events }
func (p *fakePanel) IsActive(id ButtonID) bool   { return p.active[id] }
func (p *fakePanel) Lamp(id ButtonID) Lamp       { return p.lamps[id] }
func (p *fakePanel) Close() error                { return nil }

func (p *fakePanel) release(id ButtonID) ButtonEvent {
	return ButtonEvent{Button: id, Edge: EdgeRelease}
}

func newTestLooper(t *testing.T) (*Looper, *fakeAudioBackend, *fakePanel) {
	t.Helper()

	var backend = &fakeAudioBackend{}
	var panel = newFakePanel()

	var session, sessionErr = NewSession(t.TempDir(), time.Now())
	require.NoError(t, sessionErr)

	var cfg = DefaultConfig()
	cfg.BlockSize = 8

	var l, err = NewLooperWithAudio(cfg, panel, session, fakeAudioOpener(backend))
	require.NoError(t, err)
	t.Cleanup(l.sched.Stop)

	return l, backend, panel
}

// oneBlock returns a non-silent stereo block of n frames, standing in for
// a block of captured microphone audio.
func oneBlock(n int) []float32 {
	var block = make([]float32, n*2)
	for i := range block {
		block[i] = 0.5
	}

	return block
}

// TestLooper_RecordThenLoop is spec.md §8's S1: arm a recording at the
// bar boundary, capture audio, commit at the next bar boundary, and
// confirm the take lands in the session and the aggregate loop plays it.
func TestLooper_RecordThenLoop(t *testing.T) {
	var l, _, panel = newTestLooper(t)

	assert.Equal(t, StateMetronome, l.State())

	l.handleButtonEvent(panel.release(ButtonPlay))
	assert.Equal(t, StatePlay, l.State())

	l.handleButtonEvent(panel.release(ButtonRec))
	assert.Equal(t, StatePreRec, l.State())

	l.barTick() // bar boundary: pre_rec -> rec
	assert.Equal(t, StateRec, l.State())

	l.capture.OnInputBlock(oneBlock(4))
	l.capture.OnInputBlock(oneBlock(4))

	l.handleButtonEvent(panel.release(ButtonPlay))
	assert.Equal(t, StatePrePlay, l.State())

	l.barTick() // bar boundary: pre_play -> play, take committed
	assert.Equal(t, StatePlay, l.State())

	assert.Equal(t, 1, l.session.Len())
	assert.Len(t, l.takes, 1)
	assert.NotEmpty(t, l.aggregate)
	assert.Equal(t, len(l.aggregate)/2, l.sides.Active().Len(), "the new aggregate loop must be on the active playback side")
}

// TestLooper_Overdub is spec.md §8's S2: a second recording cycle layers
// onto the first take rather than replacing it.
func TestLooper_Overdub(t *testing.T) {
	var l, _, panel = newTestLooper(t)

	l.handleButtonEvent(panel.release(ButtonPlay))
	l.handleButtonEvent(panel.release(ButtonRec))
	l.barTick()
	l.capture.OnInputBlock(oneBlock(4))
	l.handleButtonEvent(panel.release(ButtonPlay))
	l.barTick()
	require.Len(t, l.takes, 1)

	l.handleButtonEvent(panel.release(ButtonRec))
	assert.Equal(t, StatePreRec, l.State())

	l.barTick()
	assert.Equal(t, StateRec, l.State())

	l.capture.OnInputBlock(oneBlock(4))
	l.handleButtonEvent(panel.release(ButtonPlay))
	l.barTick()

	assert.Equal(t, StatePlay, l.State())
	assert.Len(t, l.takes, 2, "overdub must add a take, not replace the first")
	assert.Equal(t, 2, l.session.Len())
}

// TestLooper_HalfLoopCommit is spec.md §8's S3: releasing play in the
// first half of a bar precomputes a half-loop transitional buffer before
// the authoritative full commit at the next bar boundary.
func TestLooper_HalfLoopCommit(t *testing.T) {
	var l, _, panel = newTestLooper(t)

	l.handleButtonEvent(panel.release(ButtonPlay))
	l.handleButtonEvent(panel.release(ButtonRec))
	l.barTick()
	l.capture.OnInputBlock(oneBlock(4))
	l.handleButtonEvent(panel.release(ButtonPlay))
	require.Equal(t, StatePrePlay, l.State())

	var aggregateFrames = len(l.aggregate) / 2

	l.halfEndRecording() // normally fires loop_time/2 after start_recording

	assert.Equal(t, aggregateFrames, l.sides.Active().Len(),
		"the half-commit splice (half_loop ++ loop[len(half_loop):]) keeps the bar-aligned length")

	l.barTick() // the full-bar commit is still authoritative
	assert.Equal(t, StatePlay, l.State())
	assert.Len(t, l.takes, 1)
}

// TestLooper_CancelFromPreRec is spec.md §8's S4: release_back before the
// bar boundary discards the armed recording and returns to play with no
// new take.
func TestLooper_CancelFromPreRec(t *testing.T) {
	var l, _, panel = newTestLooper(t)

	l.handleButtonEvent(panel.release(ButtonPlay))
	l.handleButtonEvent(panel.release(ButtonRec))
	require.Equal(t, StatePreRec, l.State())

	l.handleButtonEvent(panel.release(ButtonBack))

	assert.Equal(t, StatePlay, l.State())
	assert.Empty(t, l.takes)
	assert.Equal(t, 0, l.session.Len())
}

// TestLooper_CancelFromRec is the same cancellation, but mid-recording.
func TestLooper_CancelFromRec(t *testing.T) {
	var l, _, panel = newTestLooper(t)

	l.handleButtonEvent(panel.release(ButtonPlay))
	l.handleButtonEvent(panel.release(ButtonRec))
	l.barTick()
	require.Equal(t, StateRec, l.State())

	l.capture.OnInputBlock(oneBlock(4))
	l.handleButtonEvent(panel.release(ButtonBack))

	assert.Equal(t, StatePlay, l.State())
	assert.Empty(t, l.takes)
}

// TestLooper_DeviceRemovalEntersOutOfUse is spec.md §8's S5.
func TestLooper_DeviceRemovalEntersOutOfUse(t *testing.T) {
	var l, _, _ = newTestLooper(t)

	l.handleDeviceEvent(DeviceEvent{Kind: DeviceRemoved, Syspath: "/sys/devices/fake"})

	assert.Equal(t, StateOutOfUse, l.State())
}

// TestLooper_BPMNudge is spec.md §8's S6: holding forw/back in the
// metronome state nudges tempo in cfg.BPMStep increments, rewriting the
// metronome bar buffer in place.
func TestLooper_BPMNudge(t *testing.T) {
	var l, _, panel = newTestLooper(t)
	require.Equal(t, StateMetronome, l.State())

	var before = l.clock.BPM()
	l.handleButtonEvent(panel.release(ButtonForw))
	assert.Equal(t, before+l.cfg.BPMStep, l.clock.BPM())

	l.handleButtonEvent(panel.release(ButtonBack))
	assert.Equal(t, before, l.clock.BPM())
}

// TestLooper_BPMNudge_ClampsAtMax confirms repeated nudges stop at MaxBPM
// rather than wrapping or erroring.
func TestLooper_BPMNudge_ClampsAtMax(t *testing.T) {
	var l, _, panel = newTestLooper(t)

	for i := 0; i < 200; i++ {
		l.handleButtonEvent(panel.release(ButtonForw))
	}

	assert.Equal(t, MaxBPM, l.clock.BPM())
}
