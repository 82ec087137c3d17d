package looper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureStore_TruncateThenAppend(t *testing.T) {
	var store = &CaptureStore{}

	store.Append([]float32{1, 1, 2, 2})
	store.Truncate()
	store.Append([]float32{3, 3})

	assert.Equal(t, []float32{3, 3}, store.Frames())
}

func TestPlaybackStore_Block_ShortReadAtEnd(t *testing.T) {
	var store = &PlaybackStore{}
	store.Set([]float32{1, 1, 2, 2})

	var dst = make([]float32, 8)
	var n = store.Block(1, 4, dst)

	assert.Equal(t, 1, n, "only one frame remains from offset 1")
}

func TestPlaybackSides_FlipSwapsActiveAndInactive(t *testing.T) {
	var sides = &PlaybackSides{}
	sides.Active().Set([]float32{1, 1})
	sides.Inactive().Set([]float32{2, 2})

	var wasInactive = sides.Inactive()
	sides.Flip()

	assert.Same(t, wasInactive, sides.Active(), "flip should make the former inactive store active")
}
