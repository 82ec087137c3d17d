package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Per-take trim/latency-compensate/fade, and aggregation of
 *		all committed takes into one loop buffer, per spec.md §4.F.
 *
 * Description:	Pure functions over []float32 (stereo interleaved); no
 *		I/O, no locking — callers serialize calls to these from
 *		the single mix/state thread (spec.md §5).
 *
 *------------------------------------------------------------------*/

import "math"

// MixEngine holds the derived constants (latency/fade sample counts) for
// one looper instance. These are computed once from Config and the
// BeatClock's sample rate and don't change afterwards.
type MixEngine struct {
	latencySamples int
	fadeSamples    int
}

// NewMixEngine derives latencySamples/fadeSamples from cfg.
func NewMixEngine(cfg Config) *MixEngine {
	return &MixEngine{
		latencySamples: int(math.Round(cfg.LatencySeconds * SampleRate)),
		fadeSamples:    int(math.Round(cfg.FadeTime * SampleRate)),
	}
}

// quantize rounds n to the nearest multiple of samplesPerBeat, per spec.md
// invariant 1 and testable property 1.
func quantize(n, samplesPerBeat int) int {
	if samplesPerBeat == 0 {
		return 0
	}

	return int(math.Round(float64(n)/float64(samplesPerBeat))) * samplesPerBeat
}

// Trim produces a buffer of length quantize(len(raw), samplesPerBeat) by
// taking raw[latencySamples : latencySamples+targetLen), zero-padding if
// raw runs out. When that length rounds to zero, the buffer is one beat
// long instead. This is both the beat-quantisation and the latency
// -compensation step of spec.md §4.F.1.
func (m *MixEngine) Trim(raw []float32, samplesPerBeat int) []float32 {
	var rawFrames = len(raw) / 2
	var targetFrames = quantize(rawFrames, samplesPerBeat)
	if targetFrames == 0 {
		targetFrames = samplesPerBeat
	}

	var out = make([]float32, targetFrames*2)
	var srcStart = m.latencySamples

	for i := 0; i < targetFrames; i++ {
		var srcFrame = srcStart + i
		if srcFrame >= rawFrames {
			break
		}

		out[i*2] = raw[srcFrame*2]
		out[i*2+1] = raw[srcFrame*2+1]
	}

	return out
}

// Fade applies a linear 0->1 ramp to the first fadeSamples frames and a
// 1->0 ramp to the last fadeSamples frames, in place, per spec.md §4.F.2.
func (m *MixEngine) Fade(buf []float32, fadeIn, fadeOut bool) []float32 {
	var frames = len(buf) / 2
	var n = m.fadeSamples

	if n > frames/2 {
		n = frames / 2
	}

	if fadeIn {
		for i := 0; i < n; i++ {
			var gain = float32(i) / float32(n)
			buf[i*2] *= gain
			buf[i*2+1] *= gain
		}
	}

	if fadeOut {
		for i := 0; i < n; i++ {
			var gain = float32(i) / float32(n)
			var frame = frames - 1 - i
			buf[frame*2] *= gain
			buf[frame*2+1] *= gain
		}
	}

	return buf
}

// Preprocess is Trim followed by Fade(in, out), the per-take pipeline
// named in spec.md §4.F.
func (m *MixEngine) Preprocess(raw []float32, samplesPerBeat int) []float32 {
	return m.Fade(m.Trim(raw, samplesPerBeat), true, true)
}

// Aggregate tiles each preprocessed take to the longest take's
// bar-aligned length and sums them element-wise into a fresh buffer, per
// spec.md §4.F's Aggregation rule and invariant 2. takes must already be
// preprocessed (Trim+Fade applied).
func Aggregate(takes [][]float32, samplesPerBeat int) []float32 {
	var maxFrames = 0

	for _, t := range takes {
		if f := len(t) / 2; f > maxFrames {
			maxFrames = f
		}
	}

	var loopFrames = quantize(maxFrames, samplesPerBeat)
	if loopFrames == 0 {
		return nil
	}

	var loop = make([]float32, loopFrames*2)

	for _, t := range takes {
		var tFrames = len(t) / 2
		if tFrames == 0 {
			continue
		}

		var repeats = int(math.Round(float64(loopFrames) / float64(tFrames)))
		if repeats < 1 {
			repeats = 1
		}

		for r := 0; r < repeats; r++ {
			for i := 0; i < tFrames; i++ {
				var dst = r*tFrames + i
				if dst >= loopFrames {
					break
				}

				loop[dst*2] += t[i*2]
				loop[dst*2+1] += t[i*2+1]
			}
		}
	}

	return loop
}

// HalfLoop builds the mid-bar transitional buffer described in spec.md
// §4.F's "Mid-bar commit" paragraph: the first half of the current
// aggregate loop (zeroed if this is the first take, dropping the
// metronome), summed with the trimmed/fade-in'd newly captured portion.
func (m *MixEngine) HalfLoop(currentLoop []float32, firstTake bool, rawInProgress []float32, samplesPerBeat int) []float32 {
	var halfFrames = (len(currentLoop) / 2) / 2
	var half = make([]float32, halfFrames*2)

	if !firstTake {
		copy(half, currentLoop[:halfFrames*2])
	}

	var trimmed = m.Trim(rawInProgress[:min(len(rawInProgress), (halfFrames+m.latencySamples)*2)], samplesPerBeat)
	trimmed = m.Fade(trimmed, true, false)

	for i := 0; i < halfFrames && i*2 < len(trimmed); i++ {
		half[i*2] += trimmed[i*2]
		half[i*2+1] += trimmed[i*2+1]
	}

	return half
}
