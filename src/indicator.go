package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Abstract lamp API used by the control state machine to
 *		drive indicator lights, per spec.md §4.I / §6.
 *
 * Description:	Blink is implemented here in software (on a Scheduler)
 *		rather than delegated to the driver, so the same logic
 *		works whether Lamp is backed by real GPIO lines or by the
 *		development simulator's pseudo-terminal panel.
 *
 *------------------------------------------------------------------*/

import (
	"sync"
	"time"
)

// Lamp is spec.md §6's abstract indicator.
type Lamp interface {
	On()
	Off()
}

// BlinkingLamp wraps a Lamp with software blink, scheduled on sched.
type BlinkingLamp struct {
	mu     sync.Mutex
	lamp   Lamp
	sched  *Scheduler
	handle TimerHandle
	active bool
}

// NewBlinkingLamp wraps lamp for use by IndicatorSet.
func NewBlinkingLamp(lamp Lamp, sched *Scheduler) *BlinkingLamp {
	return &BlinkingLamp{lamp: lamp, sched: sched}
}

// On stops any running blink and turns the lamp on steady.
func (b *BlinkingLamp) On() {
	b.stopBlink()
	b.lamp.On()
}

// Off stops any running blink and turns the lamp off.
func (b *BlinkingLamp) Off() {
	b.stopBlink()
	b.lamp.Off()
}

// Blink starts on/off cycling at the given on/off durations, per spec.md
// §4.G's indicator policy (one blink per beat in pre_rec/pre_play).
func (b *BlinkingLamp) Blink(onTime, offTime time.Duration) {
	b.stopBlink()

	b.mu.Lock()
	b.active = true
	b.mu.Unlock()

	b.lamp.On()
	b.handle = b.sched.At(time.Now().Add(onTime), func() { b.blinkStep(onTime, offTime, false) })
}

func (b *BlinkingLamp) blinkStep(onTime, offTime time.Duration, on bool) {
	b.mu.Lock()
	var active = b.active
	b.mu.Unlock()

	if !active {
		return
	}

	if on {
		b.lamp.On()
		b.handle = b.sched.At(time.Now().Add(onTime), func() { b.blinkStep(onTime, offTime, false) })
	} else {
		b.lamp.Off()
		b.handle = b.sched.At(time.Now().Add(offTime), func() { b.blinkStep(onTime, offTime, true) })
	}
}

func (b *BlinkingLamp) stopBlink() {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()

	b.sched.Cancel(b.handle)
}

// IndicatorSet is the four-lamp panel named in spec.md §6: rec, play,
// back, forw.
type IndicatorSet struct {
	Rec, Play, Back, Forw *BlinkingLamp
}

// AllOff turns every lamp off, the entry action shared by every state per
// spec.md §4.G ("on_enter" in the original).
func (s *IndicatorSet) AllOff() {
	s.Rec.Off()
	s.Play.Off()
	s.Back.Off()
	s.Forw.Off()
}

// ApplyState drives the lamp policy for state per spec.md §4.G's
// Indicator policy paragraph.
func (s *IndicatorSet) ApplyState(state State, clock *BeatClock, cfg Config) {
	s.AllOff()

	var blinkOn = time.Duration(cfg.BlinkOnTimeSec * float64(time.Second))
	var blinkOff = time.Duration(clock.SecondsPerBeat()*float64(time.Second)) - blinkOn

	switch state {
	case StatePlay:
		s.Play.On()
	case StateRec:
		s.Rec.On()
	case StatePreRec:
		s.Rec.Blink(blinkOn, blinkOff)
	case StatePrePlay:
		s.Play.Blink(blinkOn, blinkOff)
	case StateMetronome:
		s.Back.On()
		s.Forw.On()
	case StateOutOfUse:
		// Left off; looper.go drives the error pattern separately.
	}
}

// ErrorPattern lights rec+forw (DeviceRateMismatch) or rec+forw+back
// (everything else), per spec.md §7.
func (s *IndicatorSet) ErrorPattern(deviceRateMismatch bool) {
	s.AllOff()
	s.Rec.Blink(time.Second, time.Second)
	s.Forw.Blink(time.Second, time.Second)

	if !deviceRateMismatch {
		s.Back.Blink(time.Second, time.Second)
	}
}
