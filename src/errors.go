package looper

import "errors"

// Error taxonomy, per the looper's error handling design.
//
// DeviceRateMismatch and FilesystemError are fatal: the caller is expected
// to tear the Looper down and let a supervisor restart the process.
// OutputUnderflow, InputOverflow and TimerMissed are recoverable and are
// only ever logged at their point of detection; they are exposed here so
// tests can assert on them.
var (
	// ErrDeviceRateMismatch: input or output device sample rate != SampleRate.
	ErrDeviceRateMismatch = errors.New("looper: audio device sample rate mismatch")

	// ErrOutputUnderflow: playback queue was empty at callback time.
	ErrOutputUnderflow = errors.New("looper: playback queue underflow")

	// ErrInputOverflow: the input callback reported an overrun.
	ErrInputOverflow = errors.New("looper: input overrun")

	// ErrFilesystem: open/write/copy failed on a temp or take file.
	ErrFilesystem = errors.New("looper: filesystem error")

	// ErrTimerMissed: the scheduler fired after its deadline had passed.
	ErrTimerMissed = errors.New("looper: timer missed its deadline")

	// ErrIllegalTransition: the state machine was asked for an undefined
	// (state, trigger) pair reached only through a programming error.
	ErrIllegalTransition = errors.New("looper: illegal state transition")
)
