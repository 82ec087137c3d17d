package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Audio device I/O, per spec.md §4.A, wrapping
 *		gordonklaus/portaudio (open, configure block size and
 *		latency, run a callback loop, close).
 *
 * Description:	AudioIO owns one full-duplex stream at 44100 Hz stereo
 *		float32. Input blocks are delivered to onInput; Inject
 *		queues output blocks for the callback to play. The playback
 *		producer in looper.go feeds every output block through it,
 *		and cmd/loopercal uses it to emit its calibration click. The
 *		callback
 *		takes portaudio's status-flags form so input overrun and
 *		output underrun (spec.md §4.B/§7) are logged as they occur
 *		rather than going unreported.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"time"

	"github.com/gordonklaus/portaudio"
	"golang.org/x/sys/unix"
)

// AudioBackend is the duplex audio stream Looper drives, narrowed to an
// interface so tests can substitute a fake stream for real portaudio
// hardware, the same way HardwarePanel lets cmd/loopersim substitute a
// simulated control surface for real GPIO lines (gpio.go). *AudioIO
// implements it.
type AudioBackend interface {
	Start() error
	Stop() error
	Close() error
	Inject(block []float32)
}

// AudioOpener opens an AudioBackend wired to deliver captured input blocks
// to onInput. OpenAudioIO, wrapped as openAudioBackend, is the production
// implementation; tests supply a fake opener instead.
type AudioOpener func(cfg Config, onInput func(block []float32)) (AudioBackend, error)

// openAudioBackend is the default AudioOpener, used by NewLooper.
func openAudioBackend(cfg Config, onInput func(block []float32)) (AudioBackend, error) {
	return OpenAudioIO(cfg, onInput)
}

// AudioIO is the open full-duplex stream for one looper instance.
type AudioIO struct {
	stream    *portaudio.Stream
	blockSize int
	onInput   func(block []float32)

	out chan []float32 // output blocks queued by Inject, one consumed per callback
}

// OpenAudioIO initializes the portaudio host, opens a stereo float32
// full-duplex stream at cfg.BlockSize frames and approximately
// cfg.LatencySeconds of device latency, and wires onInput as the capture
// callback. The caller must call Start to begin streaming and Close when
// done.
func OpenAudioIO(cfg Config, onInput func(block []float32)) (*AudioIO, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	var a = &AudioIO{
		blockSize: cfg.BlockSize,
		onInput:   onInput,
		out:       make(chan []float32, cfg.BufferSizeBlocks),
	}

	var inDev, err = portaudio.DefaultInputDevice()
	if err != nil {
		portaudio.Terminate()

		return nil, fmt.Errorf("no default input device: %w", err)
	}

	var outDev *portaudio.DeviceInfo
	outDev, err = portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()

		return nil, fmt.Errorf("no default output device: %w", err)
	}

	if inDev.DefaultSampleRate != SampleRate || outDev.DefaultSampleRate != SampleRate {
		portaudio.Terminate()

		return nil, fmt.Errorf("%w: input=%v output=%v want %v",
			ErrDeviceRateMismatch, inDev.DefaultSampleRate, outDev.DefaultSampleRate, SampleRate)
	}

	var params = portaudio.LowLatencyParameters(inDev, outDev)
	params.Input.Channels = 2
	params.Output.Channels = 2
	params.SampleRate = SampleRate
	params.FramesPerBuffer = cfg.BlockSize
	params.Input.Latency = time.Duration(cfg.LatencySeconds * float64(time.Second))
	params.Output.Latency = time.Duration(cfg.LatencySeconds * float64(time.Second))

	a.stream, err = portaudio.OpenStream(params, a.callback)
	if err != nil {
		portaudio.Terminate()

		return nil, fmt.Errorf("opening audio stream: %w", err)
	}

	return a, nil
}

// Start begins streaming. It makes a best-effort attempt to raise the
// calling process's scheduling priority first, the way the teacher's
// cm108.go reaches into golang.org/x/sys/unix for low-level device
// control; a failure here is not fatal, since portaudio's own callback
// thread is what actually matters for jitter and this is only ever a
// secondary nudge for any Go-side work sharing the process.
func (a *AudioIO) Start() error {
	raisePriority()

	return a.stream.Start()
}

// raisePriority asks the OS scheduler to favour this process, logging
// and ignoring any failure (e.g. CAP_SYS_NICE not held). Audio callback
// scheduling is handled by portaudio/the platform host API; this only
// reduces the odds of this process's own goroutines getting starved
// under load.
func raisePriority() {
	var pid = unix.Getpid()
	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, -11); err != nil {
		Log.Debug("could not raise process scheduling priority", "err", err)
	}
}

// Stop halts streaming without releasing the device.
func (a *AudioIO) Stop() error { return a.stream.Stop() }

// Close stops and releases the stream and the portaudio host.
func (a *AudioIO) Close() error {
	var err = a.stream.Close()
	portaudio.Terminate()

	return err
}

// Inject queues one interleaved stereo block to be written by a later
// output callback; the playback producer sends every loop block through
// it. It never blocks: when the queue is full the block is dropped.
func (a *AudioIO) Inject(block []float32) {
	select {
	case a.out <- block:
	default:
		Log.Warn("audio output inject queue full, dropping output block")
	}
}

// callback takes portaudio's StreamCallbackFlags variant (rather than the
// bare func(in, out []float32) form) so input overrun and output underrun,
// reported by the host API per spec.md §4.B/§7, are actually observable
// instead of silently impossible to detect.
func (a *AudioIO) callback(in, out []float32, _ portaudio.StreamCallbackTimeInfo, flags portaudio.StreamCallbackFlags) {
	if flags&portaudio.InputOverflow != 0 {
		Log.Warn(ErrInputOverflow.Error())
	}
	if flags&portaudio.OutputUnderflow != 0 {
		Log.Warn(ErrOutputUnderflow.Error())
	}

	if a.onInput != nil {
		var cp = make([]float32, len(in))
		copy(cp, in)
		a.onInput(cp)
	}

	for i := range out {
		out[i] = 0
	}

	select {
	case injected := <-a.out:
		var n = len(injected)
		if n > len(out) {
			n = len(out)
		}
		for i := 0; i < n; i++ {
			out[i] += injected[i]
		}
	default:
	}
}
