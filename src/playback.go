package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Playback producer, per spec.md §4.C: stream the active
 *		PlaybackStore out in fixed-size blocks, flipping to the
 *		other side at end-of-buffer.
 *
 * Description:	Modeled on the original's player thread (daemons.py's
 *		loop_player): loop the active side's frames out
 *		cfg.BlockSize at a time; when exhausted, flip the side
 *		flag (spec.md invariant 5/ordering guarantee 3) and
 *		continue from the newly active side, so a loop committed
 *		mid-playback takes effect at the very next bar without an
 *		audible seam. Underflow (an empty active store — nothing
 *		recorded yet) plays silence and logs once per occurrence,
 *		never blocking the audio callback.
 *
 *------------------------------------------------------------------*/

import (
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// PlaybackDaemon owns the double-buffered PlaybackSides and feeds
// AudioIO.Inject with the next block on every tick.
type PlaybackDaemon struct {
	sides     *PlaybackSides
	blockSize int
	offset    int
	muted     int32 // atomic bool: suppress output while the first take is recorded, set by looper.go
	underrun  bool
	log       *log.Logger
}

// NewPlaybackDaemon constructs a daemon reading from sides.
func NewPlaybackDaemon(sides *PlaybackSides, blockSize int) *PlaybackDaemon {
	return &PlaybackDaemon{sides: sides, blockSize: blockSize, log: Sub("playback")}
}

// Mute suppresses output (not advancement) — used while priming the first
// take so silence, not stale audio, plays back.
func (p *PlaybackDaemon) Mute(m bool) {
	if m {
		atomic.StoreInt32(&p.muted, 1)
	} else {
		atomic.StoreInt32(&p.muted, 0)
	}
}

// ReplaceActiveForHalfCommit swaps the currently active store's content for
// full (half_loop ++ loop[len(half_loop):], per spec.md §4.F's mid-bar
// commit) and resets the read offset to its start, so the next NextBlock
// call picks up the transitional buffer immediately rather than waiting
// for the normal end-of-buffer flip. Approximation of the spec's "player
// writes half_loop then loop[len(half_loop):] across the bar": a true
// mid-stream splice would require tracking the exact sample offset within
// the bar, which the producer/consumer split here does not expose.
func (p *PlaybackDaemon) ReplaceActiveForHalfCommit(full []float32) {
	p.sides.Active().Set(full)
	p.offset = 0
}

// NextBlock returns the next cfg.BlockSize stereo frames to emit, advancing
// the read offset and flipping sides at end-of-buffer. Called once per
// audio callback period from looper.go's output tick.
func (p *PlaybackDaemon) NextBlock() []float32 {
	var dst = make([]float32, p.blockSize*2)

	var active = p.sides.Active()
	var total = active.Len()

	if total == 0 {
		if !p.underrun {
			p.log.Warn("playback underflow, emitting silence")
			p.underrun = true
		}

		return dst // underflow: silence
	}
	p.underrun = false

	var n = active.Block(p.offset, p.blockSize, dst)
	p.offset += n

	if p.offset >= total {
		p.offset = 0
		p.sides.Flip()
	}

	if atomic.LoadInt32(&p.muted) == 1 {
		for i := range dst {
			dst[i] = 0
		}
	}

	return dst
}
