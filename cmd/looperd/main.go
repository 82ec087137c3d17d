/* loopstation daemon: wires audio, GPIO, the mix engine and the control
 * state machine into one running looper instance. */
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	looper "github.com/fourbutton/loopstation/src"
	"github.com/spf13/pflag"
)

var (
	flagConfig        = pflag.StringP("config", "c", "", "path to loopstation.yaml (default: search standard locations)")
	flagRecordingRoot = pflag.String("recording-root", "", "override recording_root from config")
	flagInitialBPM    = pflag.Int("initial-bpm", 0, "override initial_bpm from config (0 = use config)")
	flagGPIOChip      = pflag.String("gpio-chip", "gpiochip0", "GPIO character device to request lines from")
	flagStatusAddr    = pflag.String("status-addr", ":7980", "address for the read-only status HTTP endpoint")
	flagNoStatus      = pflag.Bool("no-status", false, "disable the status HTTP endpoint and mDNS announcement")
	flagVerbose       = pflag.CountP("verbose", "v", "increase log verbosity, may be repeated")
	flagVersion       = pflag.Bool("version", false, "print version and exit")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: looperd [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *flagVersion {
		looper.PrintVersion(true)

		return
	}

	looper.SetLogLevel(*flagVerbose)
	looper.PrintVersion(false)

	var cfg, cfgErr = looper.LoadConfig(*flagConfig)
	if cfgErr != nil {
		looper.Log.Fatalf("loading config: %v", cfgErr)
	}

	if *flagRecordingRoot != "" {
		cfg.RecordingRoot = *flagRecordingRoot
	}
	if *flagInitialBPM != 0 {
		cfg.InitialBPM = looper.ClampBPM(*flagInitialBPM)
	}

	var pinout = looper.GPIOPinout{
		RecButton: 5, PlayButton: 6, BackButton: 13, ForwButton: 19,
		RecLamp: 12, PlayLamp: 16, BackLamp: 20, ForwLamp: 21,
	}

	var board, boardErr = looper.OpenGPIOBoard(*flagGPIOChip, pinout)
	if boardErr != nil {
		looper.Log.Fatalf("opening gpio board: %v", boardErr)
	}

	var session, sessionErr = looper.NewSession(cfg.RecordingRoot, time.Now())
	if sessionErr != nil {
		looper.Log.Fatalf("creating session: %v", sessionErr)
	}

	var instance, instanceErr = looper.NewLooper(cfg, board, session)
	if instanceErr != nil {
		looper.Log.Fatalf("starting looper: %v", instanceErr)
	}

	var watcher, watchErr = looper.StartDeviceWatcher()
	if watchErr != nil {
		looper.Log.Warnf("device watcher unavailable: %v", watchErr)
	} else {
		instance.AttachDeviceWatcher(watcher)
	}

	if !*flagNoStatus {
		var status = looper.NewStatusServer(*flagStatusAddr)
		if startErr := status.Start(context.Background(), "loopstation"); startErr != nil {
			looper.Log.Warnf("status server unavailable: %v", startErr)
		} else {
			instance.AttachStatusServer(status)
		}
	}

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	looper.Log.Infof("session directory: %s", session.Dir())

	if runErr := instance.Run(ctx); runErr != nil {
		looper.Log.Fatalf("looper exited: %v", runErr)
	}
}
