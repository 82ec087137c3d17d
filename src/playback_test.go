package looper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaybackDaemon_NextBlock_SilenceOnUnderflow(t *testing.T) {
	var sides = &PlaybackSides{}
	var d = NewPlaybackDaemon(sides, 4)

	var block = d.NextBlock()

	assert.Len(t, block, 8)
	for _, s := range block {
		assert.Zero(t, s)
	}
}

func TestPlaybackDaemon_NextBlock_FlipsSidesAtEndOfBuffer(t *testing.T) {
	var sides = &PlaybackSides{}
	sides.Active().Set([]float32{1, 1, 2, 2})
	sides.Inactive().Set([]float32{9, 9})

	var d = NewPlaybackDaemon(sides, 2)

	var first = d.NextBlock()
	assert.Equal(t, []float32{1, 1, 2, 2}, first)

	var second = d.NextBlock()
	assert.Equal(t, []float32{9, 9, 0, 0}, second, "after flip, the new active side (formerly inactive) should be read from the start")
}

func TestPlaybackDaemon_Mute_SuppressesOutputButStillAdvances(t *testing.T) {
	var sides = &PlaybackSides{}
	sides.Active().Set([]float32{1, 1, 2, 2})

	var d = NewPlaybackDaemon(sides, 4)
	d.Mute(true)

	var before = sides.Active()
	var block = d.NextBlock()
	for _, s := range block {
		assert.Zero(t, s)
	}
	assert.NotSame(t, before, sides.Active(), "muted playback must still reach end-of-buffer and flip sides")
}
