package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Maintain BPM, seconds-per-beat, samples-per-beat, and the
 *		wall-clock anchor used as the single reference for "when
 *		does the next loop start".
 *
 * Description:	Pure value object, no I/O, per spec.md §4.D. BPM is
 *		mutable only before the first take is committed: looper.go
 *		calls Freeze on the first commit, after which SetBPM is a
 *		no-op.
 *
 *------------------------------------------------------------------*/

import (
	"math"
	"time"
)

// BeatClock is spec.md §3's beat clock entity.
type BeatClock struct {
	bpm               int
	anchor            time.Time
	loopTimeSeconds   float64
	timeAtEndOfLoop   time.Time
	frozen            bool
}

// NewBeatClock creates a clock anchored at now, with no loop yet (so
// time_at_end_of_current_loop == anchor until the first
// AdvanceLoopBoundary or ReanchorAfterMiss).
func NewBeatClock(bpm int, now time.Time) *BeatClock {
	return &BeatClock{
		bpm:             ClampBPM(bpm),
		anchor:          now,
		timeAtEndOfLoop: now,
	}
}

// BPM returns the current tempo.
func (c *BeatClock) BPM() int { return c.bpm }

// SetBPM changes tempo. Returns false (no-op) once the clock is frozen.
func (c *BeatClock) SetBPM(bpm int) bool {
	if c.frozen {
		return false
	}

	c.bpm = ClampBPM(bpm)

	return true
}

// Freeze permanently disables SetBPM, per spec.md invariant 3 ("BPM is
// mutable only in state metronome").
func (c *BeatClock) Freeze() { c.frozen = true }

// Frozen reports whether BPM changes are currently rejected.
func (c *BeatClock) Frozen() bool { return c.frozen }

// SecondsPerBeat is 60/bpm.
func (c *BeatClock) SecondsPerBeat() float64 {
	return 60.0 / float64(c.bpm)
}

// SamplesPerBeat rounds SampleRate*SecondsPerBeat to the nearest sample.
func (c *BeatClock) SamplesPerBeat() int {
	return int(math.Round(float64(SampleRate) * c.SecondsPerBeat()))
}

// BarSamples is four beats, the smallest unit at which commits happen.
func (c *BeatClock) BarSamples() int {
	return c.SamplesPerBeat() * 4
}

// SetLoopDuration records the duration (in samples) of the loop that just
// became active. It does not move time_at_end_of_current_loop; the new
// duration is used by the next AdvanceLoopBoundary or ReanchorAfterMiss.
func (c *BeatClock) SetLoopDuration(loopSamples int) {
	c.loopTimeSeconds = float64(loopSamples) / float64(SampleRate)
}

// LoopTimeSeconds returns the duration, in seconds, of the active loop.
func (c *BeatClock) LoopTimeSeconds() float64 { return c.loopTimeSeconds }

// AdvanceLoopBoundary moves time_at_end_of_current_loop forward by exactly
// one loop_time_seconds. Called once per bar boundary by the scheduler.
func (c *BeatClock) AdvanceLoopBoundary() {
	c.timeAtEndOfLoop = c.timeAtEndOfLoop.Add(time.Duration(c.loopTimeSeconds * float64(time.Second)))
}

// ReanchorAfterMiss advances time_at_end_of_current_loop by one loop_time
// from now, per the TimerMissed recovery policy in spec.md §7: if the
// scheduler fires late, re-anchor rather than let the deadline keep
// slipping further behind wall-clock time on every subsequent loop.
func (c *BeatClock) ReanchorAfterMiss(now time.Time) {
	c.timeAtEndOfLoop = now.Add(time.Duration(c.loopTimeSeconds * float64(time.Second)))
}

// TimeAtEndOfLoop is the unique scheduling reference, spec.md invariant 6.
func (c *BeatClock) TimeAtEndOfLoop() time.Time { return c.timeAtEndOfLoop }

// TimeToNextLoopStart is time_at_end_of_current_loop - now.
func (c *BeatClock) TimeToNextLoopStart(now time.Time) time.Duration {
	return c.timeAtEndOfLoop.Sub(now)
}

// Anchor is the wall time the metronome first sounded.
func (c *BeatClock) Anchor() time.Time { return c.anchor }
