package looper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestMixEngine_Trim_Quantises(t *testing.T) {
	var m = NewMixEngine(DefaultConfig())
	const samplesPerBeat = 22050

	rapid.Check(t, func(t *rapid.T) {
		var rawFrames = rapid.IntRange(0, samplesPerBeat*8).Draw(t, "rawFrames")
		var raw = make([]float32, rawFrames*2)

		var out = m.Trim(raw, samplesPerBeat)

		assert.Equal(t, 0, (len(out)/2)%samplesPerBeat, "trimmed length must be an integer multiple of samples_per_beat")
	})
}

func TestAggregate_Idempotent(t *testing.T) {
	var m = NewMixEngine(DefaultConfig())
	const samplesPerBeat = 22050

	rapid.Check(t, func(t *rapid.T) {
		var n = rapid.IntRange(1, 4).Draw(t, "numTakes")
		var takes = make([][]float32, n)

		for i := range takes {
			var frames = rapid.IntRange(1, 3).Draw(t, "frames") * samplesPerBeat
			var raw = make([]float32, frames*2)

			for j := range raw {
				raw[j] = float32(rapid.IntRange(-100, 100).Draw(t, "sample")) / 100
			}

			takes[i] = m.Preprocess(raw, samplesPerBeat)
		}

		var first = Aggregate(takes, samplesPerBeat)
		var second = Aggregate(takes, samplesPerBeat)

		assert.Equal(t, first, second, "recomputing the aggregate from the same takes must be bit-identical")
	})
}

func TestAggregate_LengthMatchesLongestTakeQuantised(t *testing.T) {
	const samplesPerBeat = 22050

	var takes = [][]float32{
		make([]float32, samplesPerBeat*2*2), // 2 beats
		make([]float32, samplesPerBeat*4*2), // 4 beats (longest)
	}

	var loop = Aggregate(takes, samplesPerBeat)

	assert.Equal(t, samplesPerBeat*4, len(loop)/2)
}

func TestMixEngine_Fade_RampsEndpointsToZero(t *testing.T) {
	var cfg = DefaultConfig()
	var m = NewMixEngine(cfg)
	const samplesPerBeat = 22050

	var buf = make([]float32, samplesPerBeat*2)
	for i := range buf {
		buf[i] = 1.0
	}

	var faded = m.Fade(buf, true, true)

	assert.InDelta(t, 0.0, faded[0], 1e-6, "first sample should fade in from 0")
	assert.InDelta(t, 0.0, faded[len(faded)-2], 1e-1, "last sample should fade out toward 0")
}

func TestHalfLoop_DropsMetronomeOnFirstTake(t *testing.T) {
	var m = NewMixEngine(DefaultConfig())
	const samplesPerBeat = 22050

	var metronomeLoop = make([]float32, samplesPerBeat*4*2)
	for i := range metronomeLoop {
		metronomeLoop[i] = 1.0
	}

	var inProgress = make([]float32, samplesPerBeat*2*2)

	var half = m.HalfLoop(metronomeLoop, true, inProgress, samplesPerBeat)

	assert.Equal(t, samplesPerBeat*2, len(half)/2)
	assert.Equal(t, make([]float32, len(half)), half, "first-take half loop must not contain the metronome")
}
