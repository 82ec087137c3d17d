/* loopercal: latency calibration utility, recovered from
 * original_source/src/utility/test_latency.py (spec.md Open Question (i)).
 * Plays a metronome click through the output adapter, records the round
 * trip, takes the loudest captured sample as the click's arrival (no
 * cross-correlation is done), and prints a suggested latency_seconds
 * value for loopstation.yaml. */
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	looper "github.com/fourbutton/loopstation/src"
)

func main() {
	var durationSec = flag.Float64("duration", 2.0, "seconds to record after emitting the calibration click")
	flag.Parse()

	var cfg = looper.DefaultConfig()

	var captured = make(chan []float32, 1)
	var capture looper.CaptureStore

	var adapter, err = looper.OpenAudioIO(cfg, func(block []float32) { capture.Append(block) })
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening audio: %v\n", err)
		os.Exit(1)
	}
	defer adapter.Close()

	var captureStart = time.Now()
	if startErr := adapter.Start(); startErr != nil {
		fmt.Fprintf(os.Stderr, "starting audio: %v\n", startErr)
		os.Exit(1)
	}
	defer adapter.Stop()

	var click = looper.SynthesizeClick()
	var clock = looper.NewBeatClock(looper.DefaultInitialBPM, time.Now())
	var emitTime = time.Now()
	adapter.Inject(click.BarBuffer(clock))

	time.Sleep(time.Duration(*durationSec * float64(time.Second)))

	go func() { captured <- capture.Frames() }()
	var frames = <-captured

	var offsetSamples = findPeakOffset(frames)
	var peakTimeOffset = float64(offsetSamples) / looper.SampleRate
	var measuredLatency = peakTimeOffset - emitTime.Sub(captureStart).Seconds()

	fmt.Printf("suggested latency_seconds: %.4f\n", clampPositive(measuredLatency))
	fmt.Println("add this to loopstation.yaml as `latency_seconds: <value>`")
}

// findPeakOffset returns the frame index of the loudest sample in frames,
// the simplest viable stand-in for the original's cross-correlation peak
// search — robust enough for a single isolated click with silence either
// side.
func findPeakOffset(frames []float32) int {
	var peakIdx int
	var peakMag float32

	for i := 0; i < len(frames)/2; i++ {
		var mag = frames[i*2]
		if mag < 0 {
			mag = -mag
		}

		if mag > peakMag {
			peakMag = mag
			peakIdx = i
		}
	}

	return peakIdx
}

func clampPositive(v float64) float64 {
	if v < 0 {
		return 0
	}

	return v
}
