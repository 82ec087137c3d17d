package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Own every component's lifetime and wire button events,
 *		bar-boundary ticks and mix commits together, per Design
 *		Notes §9 ("global singletons ... collected into a single
 *		owned context") and spec.md §4.G/§5.
 *
 * Description:	One *Looper is one physical instance. Run drives the
 *		GPIO event loop; a self-rescheduling scheduler callback
 *		(barTick) plays the role of spec.md §4.H's "at
 *		time_at_end_of_current_loop -> loop_player". The half-bar
 *		and tempo-nudge logic mirror the original's
 *		core.py:Looper.button handlers, translated from Python's
 *		single-process globals into fields guarded by one mutex
 *		(spec.md §5's ordering guarantees don't require finer
 *		locking than that: the mix/state thread is already meant
 *		to be single-threaded).
 *
 *------------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Looper ties together every component for one physical instance.
type Looper struct {
	cfg Config

	mu    sync.Mutex
	state State
	clock *BeatClock
	mix   *MixEngine
	metro *Metronome

	takes        [][]float32
	aggregate    []float32
	captureStore *CaptureStore

	capture  *CaptureDaemon
	playback *PlaybackDaemon
	sides    *PlaybackSides
	audio    AudioBackend
	sched    *Scheduler

	indicators *IndicatorSet
	gpio       HardwarePanel
	session    *Session
	status     *StatusServer
	watcher    *DeviceWatcher

	pendingHalfEnd TimerHandle

	stop     chan struct{} // closed once, by the four-button shutdown handler
	stopOnce sync.Once
	done     chan struct{} // closed once, by shutdown(), stops background loops
	doneOnce sync.Once
	log      *log.Logger
}

// NewLooper constructs a Looper backed by real portaudio hardware. panel
// and session must already be open; Looper takes ownership of both (the
// shutdown at the end of Run closes the panel; the session holds nothing
// that needs releasing).
func NewLooper(cfg Config, panel HardwarePanel, session *Session) (*Looper, error) {
	return NewLooperWithAudio(cfg, panel, session, openAudioBackend)
}

// NewLooperWithAudio is NewLooper with the audio backend's opener
// injected, letting tests substitute a fake AudioBackend for real
// portaudio hardware.
func NewLooperWithAudio(cfg Config, panel HardwarePanel, session *Session, openAudio AudioOpener) (*Looper, error) {
	var now = time.Now()

	var l = &Looper{
		cfg:          cfg,
		state:        StateMetronome,
		clock:        NewBeatClock(cfg.InitialBPM, now),
		mix:          NewMixEngine(cfg),
		captureStore: &CaptureStore{},
		sides:        &PlaybackSides{},
		sched:        NewScheduler(),
		gpio:         panel,
		session:      session,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		log:          Sub("looper"),
	}

	var metro *Metronome
	var err error
	if cfg.ClickSamplePath != "" {
		metro, err = LoadMetronomeSample(cfg.ClickSamplePath)
		if err != nil {
			l.log.Warnf("loading click sample %s: %v, synthesizing instead", cfg.ClickSamplePath, err)
			metro = SynthesizeClick()
		}
	} else {
		metro = SynthesizeClick()
	}
	l.metro = metro

	l.capture = NewCaptureDaemon(l.captureStore)
	l.playback = NewPlaybackDaemon(l.sides, cfg.BlockSize)

	l.clock.SetLoopDuration(l.clock.BarSamples())
	l.aggregate = l.metro.BarBuffer(l.clock)
	l.sides.Active().Set(l.aggregate)
	l.sides.Inactive().Set(l.aggregate)

	l.indicators = &IndicatorSet{
		Rec:  NewBlinkingLamp(panel.Lamp(ButtonRec), l.sched),
		Play: NewBlinkingLamp(panel.Lamp(ButtonPlay), l.sched),
		Back: NewBlinkingLamp(panel.Lamp(ButtonBack), l.sched),
		Forw: NewBlinkingLamp(panel.Lamp(ButtonForw), l.sched),
	}
	l.indicators.ApplyState(l.state, l.clock, cfg)

	l.audio, err = openAudio(cfg, l.capture.OnInputBlock)
	if err != nil {
		l.sched.Stop()

		return nil, fmt.Errorf("opening audio: %w", err)
	}

	return l, nil
}

// AttachStatusServer wires an (already started) StatusServer so state
// transitions publish a fresh snapshot. Optional.
func (l *Looper) AttachStatusServer(s *StatusServer) { l.status = s }

// AttachDeviceWatcher wires an (already started) DeviceWatcher so audio
// hotplug events are observed. Optional.
func (l *Looper) AttachDeviceWatcher(w *DeviceWatcher) { l.watcher = w }

// Run starts the audio stream and the bar-tick scheduler, then blocks,
// dispatching GPIO button events and device-watcher events, until ctx is
// cancelled or the four-button shutdown fires.
func (l *Looper) Run(ctx context.Context) error {
	if err := l.audio.Start(); err != nil {
		return fmt.Errorf("starting audio stream: %w", err)
	}

	l.mu.Lock()
	l.sched.At(l.clock.TimeAtEndOfLoop(), l.barTick)
	l.mu.Unlock()

	go l.playbackProducerLoop()

	var watcherEvents <-chan DeviceEvent
	if l.watcher != nil {
		watcherEvents = l.watcher.Events()
	}

	for {
		select {
		case <-ctx.Done():
			return l.shutdown()
		case <-l.stop:
			return l.shutdown()
		case ev := <-l.gpio.Events():
			l.handleButtonEvent(ev)
		case dev := <-watcherEvents:
			l.handleDeviceEvent(dev)
		}
	}
}

// playbackProducerLoop is spec.md §5's "playback-producer" thread: it
// drains the active PlaybackStore in fixed-size blocks and hands them to
// the audio adapter's bounded inject queue (sized to buffersize blocks).
// It is paced by a ticker at one block period, not by the queue: Inject
// never blocks, and a block that finds the queue full is dropped (with a
// warning) rather than retried.
func (l *Looper) playbackProducerLoop() {
	var period = time.Duration(float64(l.cfg.BlockSize) / float64(SampleRate) * float64(time.Second))
	var ticker = time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.audio.Inject(l.playback.NextBlock())
		}
	}
}

func (l *Looper) handleDeviceEvent(ev DeviceEvent) {
	if ev.Kind == DeviceRemoved {
		l.log.Errorf("%v: audio device removed (%s)", ErrDeviceRateMismatch, ev.Syspath)
		l.enterOutOfUse(false)
	}
}

func (l *Looper) handleButtonEvent(ev ButtonEvent) {
	if ev.Edge != EdgeRelease {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.allButtonsHeld() {
		l.transitionLocked(TriggerAllButtonsHeld)
		l.stopOnce.Do(func() { close(l.stop) })

		return
	}

	if l.state == StateMetronome {
		switch ev.Button {
		case ButtonForw:
			l.nudgeBPMLocked(l.cfg.BPMStep)

			return
		case ButtonBack:
			l.nudgeBPMLocked(-l.cfg.BPMStep)

			return
		}
	}

	var trig, ok = releaseTrigger(ev.Button)
	if !ok {
		return
	}

	if IsCancel(l.state, trig) {
		l.cancelRecordingLocked()

		return
	}

	var from = l.state
	var to, err = Transition(from, trig)
	if err != nil {
		l.log.Fatalf("%v", err)

		return
	}

	if to == from {
		return
	}

	l.state = to

	if from == StatePlay && to == StatePreRec {
		l.log.Infof("armed recording, waiting for bar boundary")
	}

	if from == StateRec && to == StatePrePlay {
		l.log.Infof("armed commit, waiting for half/full bar")
	}

	l.indicators.ApplyState(l.state, l.clock, l.cfg)
	l.publishStatus()
}

func releaseTrigger(b ButtonID) (Trigger, bool) {
	switch b {
	case ButtonPlay:
		return TriggerReleasePlay, true
	case ButtonRec:
		return TriggerReleaseRec, true
	case ButtonBack:
		return TriggerReleaseBack, true
	default:
		return 0, false
	}
}

func (l *Looper) allButtonsHeld() bool {
	return l.gpio.IsActive(ButtonRec) && l.gpio.IsActive(ButtonPlay) &&
		l.gpio.IsActive(ButtonBack) && l.gpio.IsActive(ButtonForw)
}

func (l *Looper) transitionLocked(trig Trigger) {
	var to, err = Transition(l.state, trig)
	if err == nil {
		l.state = to
	}
}

func (l *Looper) nudgeBPMLocked(delta int) {
	if !l.clock.SetBPM(l.clock.BPM() + delta) {
		return
	}

	l.clock.SetLoopDuration(l.clock.BarSamples())
	l.aggregate = l.metro.BarBuffer(l.clock)
	l.sides.Inactive().Set(l.aggregate)
	l.sides.Flip()
	l.log.Infof("bpm -> %d", l.clock.BPM())
}

// cancelRecordingLocked implements release_back's cancel semantics from
// pre_rec/rec/pre_play: clears the capture flag, cancels the pending
// half-commit timer, discards the in-progress take, and returns to play.
func (l *Looper) cancelRecordingLocked() {
	l.capture.Disarm()
	l.sched.Cancel(l.pendingHalfEnd)
	l.session.DiscardPending()
	l.playback.Mute(false)

	l.state = StatePlay
	l.indicators.ApplyState(l.state, l.clock, l.cfg)
	l.publishStatus()
}

// barTick fires at clock.TimeAtEndOfLoop(): spec.md §4.H's "loop_player".
func (l *Looper) barTick() {
	l.mu.Lock()

	var now = time.Now()
	if now.Sub(l.clock.TimeAtEndOfLoop()) > time.Duration(l.cfg.TimingPrecision*float64(time.Second)*10) {
		l.log.Warnf("%v: scheduler fired late, re-anchoring", ErrTimerMissed)
		l.clock.ReanchorAfterMiss(now)
	}

	switch l.state {
	case StatePreRec:
		l.startRecordingLocked(now)
	case StatePrePlay:
		l.endRecordingLocked()
	}

	l.clock.AdvanceLoopBoundary()
	l.sched.At(l.clock.TimeAtEndOfLoop(), l.barTick)

	l.mu.Unlock()
}

// startRecordingLocked is the internal start_recording trigger: pre_rec ->
// rec, armed and fired only from barTick.
func (l *Looper) startRecordingLocked(now time.Time) {
	l.state = StateRec
	l.capture.Arm()

	// Priming the very first take: the active side holds nothing but the
	// bare metronome bar, which would otherwise bleed into the overdub
	// mic signal. Muted until the first take lands in endRecordingLocked.
	if len(l.takes) == 0 {
		l.playback.Mute(true)
	}

	var halfDelay = time.Duration(l.clock.LoopTimeSeconds()*float64(time.Second)/2) +
		time.Duration(l.cfg.TimingPrecision*float64(time.Second))
	l.pendingHalfEnd = l.sched.At(now.Add(halfDelay), l.halfEndRecording)

	l.indicators.ApplyState(l.state, l.clock, l.cfg)
	l.publishStatus()
}

// halfEndRecording is spec.md §4.H's "half_end_recording": fires loop_time
// /2 after start_recording. Only takes effect if the user has already
// committed (release_play -> pre_play) by this point; otherwise it is a
// no-op and the full-bar path in endRecordingLocked handles the commit.
func (l *Looper) halfEndRecording() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StatePrePlay {
		return
	}

	var samplesPerBeat = l.clock.SamplesPerBeat()
	var raw = l.captureStore.Frames()
	var half = l.mix.HalfLoop(l.aggregate, len(l.takes) == 0, raw, samplesPerBeat)

	var full = make([]float32, 0, len(half)+len(l.aggregate)-len(half))
	full = append(full, half...)
	if len(l.aggregate) > len(half) {
		full = append(full, l.aggregate[len(half):]...)
	}

	l.playback.ReplaceActiveForHalfCommit(full)
	l.playback.Mute(false)
}

// endRecordingLocked is spec.md §4.H's "end_recording": pre_play -> play,
// fired at the next bar boundary after entering pre_play. Clears the
// capture flag, commits the full take, recomputes the aggregate loop, and
// writes it to the inactive playback store.
func (l *Looper) endRecordingLocked() {
	l.capture.Disarm()
	l.sched.Cancel(l.pendingHalfEnd)

	var samplesPerBeat = l.clock.SamplesPerBeat()
	var raw = l.captureStore.Frames()
	var processed = l.mix.Preprocess(raw, samplesPerBeat)

	l.takes = append(l.takes, processed)
	l.aggregate = Aggregate(l.takes, samplesPerBeat)
	l.clock.SetLoopDuration(len(l.aggregate) / 2)
	l.clock.Freeze() // invariant 3: BPM frozen after the first take

	if _, err := l.session.CommitTake(processed); err != nil {
		l.log.Fatalf("%v", err)
	}

	l.sides.Inactive().Set(l.aggregate)
	l.sides.Flip()
	l.playback.Mute(false)

	l.state = StatePlay
	l.indicators.ApplyState(l.state, l.clock, l.cfg)
	l.publishStatus()
}

func (l *Looper) enterOutOfUse(deviceRateMismatch bool) {
	l.mu.Lock()
	l.state = StateOutOfUse
	l.mu.Unlock()

	l.indicators.ErrorPattern(deviceRateMismatch)
}

func (l *Looper) publishStatus() {
	if l.status == nil {
		return
	}

	l.status.Update(StatusSnapshot{
		State:      l.state.String(),
		BPM:        l.clock.BPM(),
		TakeCount:  l.session.Len(),
		SessionDir: l.session.Dir(),
		LoopTime:   l.clock.LoopTimeSeconds(),
	})
}

// shutdown implements spec.md §5's four-button shutdown path: stops the
// playback/capture and the audio stream (stopped then closed to flush),
// and releases the GPIO board.
func (l *Looper) shutdown() error {
	l.log.Info("shutting down")

	l.doneOnce.Do(func() { close(l.done) })

	l.capture.Disarm()
	l.sched.Stop()

	if l.watcher != nil {
		l.watcher.Stop()
	}

	var err = l.audio.Stop()
	if err != nil {
		l.log.Errorf("stopping audio stream: %v", err)
	}

	if closeErr := l.audio.Close(); closeErr != nil {
		l.log.Errorf("closing audio stream: %v", closeErr)
	}

	if gpioErr := l.gpio.Close(); gpioErr != nil {
		l.log.Errorf("closing gpio board: %v", gpioErr)
	}

	return err
}

// State returns the current control state (used by tests).
func (l *Looper) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}
