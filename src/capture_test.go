package looper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureDaemon_OnlyAppendsWhileArmed(t *testing.T) {
	var store = &CaptureStore{}
	var d = NewCaptureDaemon(store)

	d.OnInputBlock([]float32{9, 9})
	assert.Empty(t, store.Frames(), "blocks before Arm must be ignored")

	d.Arm()
	d.OnInputBlock([]float32{1, 1})
	d.OnInputBlock([]float32{2, 2})

	d.Disarm()
	d.OnInputBlock([]float32{9, 9})

	assert.Equal(t, []float32{1, 1, 2, 2}, store.Frames())
}

func TestCaptureDaemon_Arm_TruncatesPreviousTake(t *testing.T) {
	var store = &CaptureStore{}
	var d = NewCaptureDaemon(store)

	d.Arm()
	d.OnInputBlock([]float32{1, 1})
	d.Disarm()

	d.Arm()
	assert.Empty(t, store.Frames(), "Arm must truncate the store on its rising edge")
}
