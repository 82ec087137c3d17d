package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Build a one-bar (4/4) click buffer from a short sample,
 *		emphasising beat 1, per spec.md §4.E.
 *
 * Description:	The click sample is either loaded from
 *		Config.ClickSamplePath, or, if that's unset, synthesized as
 *		a short decaying sine burst so the looper has a working
 *		metronome with no data file to ship (the original's
 *		high_hat_001.wav is a recovered asset we don't have).
 *
 *------------------------------------------------------------------*/

import "math"

// Metronome holds the raw click sample and can render it into a one-bar
// buffer for any given BeatClock.
type Metronome struct {
	sampleRaw []float32 // interleaved stereo, unity gain
}

// LoadMetronomeSample reads a click sample from disk. The file must be a
// stereo float32 WAV at SampleRate.
func LoadMetronomeSample(path string) (*Metronome, error) {
	var frames, err = ReadWAVFile(path)
	if err != nil {
		return nil, err
	}

	return &Metronome{sampleRaw: frames}, nil
}

// SynthesizeClick builds a short decaying sine burst (a "high hat"-ish
// click) used when no click sample file is configured.
func SynthesizeClick() *Metronome {
	const (
		freqHz   = 3000.0
		durSec   = 0.02
		decayK   = 40.0 // e^-decayK*t over durSec
	)

	var n = int(durSec * SampleRate)
	var out = make([]float32, n*2)

	for i := 0; i < n; i++ {
		var t = float64(i) / SampleRate
		var envelope = math.Exp(-decayK * t)
		var sample = float32(envelope * math.Sin(2*math.Pi*freqHz*t))
		out[i*2] = sample
		out[i*2+1] = sample
	}

	return &Metronome{sampleRaw: out}
}

// BarBuffer renders the one-bar click buffer for clock: beat 0 at unity
// gain, beats 1-3 at half gain, truncated or zero-padded to SamplesPerBeat.
func (m *Metronome) BarBuffer(clock *BeatClock) []float32 {
	var samplesPerBeat = clock.SamplesPerBeat()
	var beat = m.beatAtGain(samplesPerBeat, 1.0)
	var tick = m.beatAtGain(samplesPerBeat, 0.5)

	var bar = make([]float32, samplesPerBeat*4*2)
	copy(bar[0:], beat)
	copy(bar[samplesPerBeat*2:], tick)
	copy(bar[samplesPerBeat*4:], tick)
	copy(bar[samplesPerBeat*6:], tick)

	return bar
}

// beatAtGain returns samplesPerBeat frames (stereo) of the click sample at
// the given gain, zero-padded if the sample is shorter than one beat and
// truncated if longer.
func (m *Metronome) beatAtGain(samplesPerBeat int, gain float32) []float32 {
	var out = make([]float32, samplesPerBeat*2)
	var n = len(m.sampleRaw) / 2

	if n > samplesPerBeat {
		n = samplesPerBeat
	}

	for i := 0; i < n*2; i++ {
		out[i] = m.sampleRaw[i] * gain
	}

	return out
}
