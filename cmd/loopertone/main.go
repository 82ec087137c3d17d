/* loopertone: offline metronome click inspector/regenerator, exercising
 * src/metronome.go without hardware. Grounded on the teacher's
 * cmd/gen_tone (a standalone tone-generation utility for soak-testing the
 * audio path without a live modem). */
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	looper "github.com/fourbutton/loopstation/src"
)

func main() {
	var bpm = flag.Int("bpm", looper.DefaultInitialBPM, "BPM to render the bar buffer at")
	var clickPath = flag.String("click", "", "path to a stereo float32 WAV click sample (default: synthesized)")
	var outPath = flag.String("out", "", "write the rendered one-bar buffer to this WAV file")
	flag.Parse()

	var metro *looper.Metronome
	if *clickPath != "" {
		var m, err = looper.LoadMetronomeSample(*clickPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading click sample: %v\n", err)
			os.Exit(1)
		}
		metro = m
	} else {
		metro = looper.SynthesizeClick()
	}

	var clock = looper.NewBeatClock(looper.ClampBPM(*bpm), time.Now())
	var bar = metro.BarBuffer(clock)

	var peakBeat, peakOther float32
	var samplesPerBeat = clock.SamplesPerBeat()

	for i := 0; i < len(bar)/2; i++ {
		var mag = abs32(bar[i*2])
		if i < samplesPerBeat {
			if mag > peakBeat {
				peakBeat = mag
			}
		} else if mag > peakOther {
			peakOther = mag
		}
	}

	fmt.Printf("bpm=%d samples_per_beat=%d bar_frames=%d beat0_peak=%.4f other_beat_peak=%.4f\n",
		clock.BPM(), samplesPerBeat, len(bar)/2, peakBeat, peakOther)

	if *outPath != "" {
		if err := looper.WriteWAVFile(*outPath, bar); err != nil {
			fmt.Fprintf(os.Stderr, "writing %s: %v\n", *outPath, err)
			os.Exit(1)
		}

		fmt.Printf("wrote %s\n", *outPath)
	}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}

	return f
}
