package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Ambient ALSA device hotplug watcher, per SPEC_FULL.md's
 *		domain-stack expansion — the looper should notice when its
 *		audio interface is unplugged rather than silently wedge.
 *
 * Description:	Grounded on the teacher's cm108.go, which inventories USB
 *		audio/HID devices via golang.org/x/sys and udev concepts;
 *		here done with jochenvg/go-udev's Monitor, declared in the
 *		teacher's go.mod but never wired there. Matches "sound"
 *		subsystem events and reports add/remove to a channel;
 *		looper.go transitions to StateOutOfUse and lights the
 *		error pattern on any "sound" removal event, without
 *		checking which card was removed.
 *
 *------------------------------------------------------------------*/

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/jochenvg/go-udev"
)

// DeviceEventKind is an add or remove hotplug event.
type DeviceEventKind int

const (
	DeviceAdded DeviceEventKind = iota
	DeviceRemoved
)

// DeviceEvent reports one udev "sound" subsystem action.
type DeviceEvent struct {
	Kind   DeviceEventKind
	Syspath string
}

// DeviceWatcher monitors udev for sound-card hotplug events.
type DeviceWatcher struct {
	events chan DeviceEvent
	cancel context.CancelFunc
	log    *log.Logger
}

// StartDeviceWatcher begins monitoring the "sound" subsystem. Call Stop to
// tear it down.
func StartDeviceWatcher() (*DeviceWatcher, error) {
	var u = udev.Udev{}
	var mon = u.NewMonitorFromNetlink("udev")

	if err := mon.FilterAddMatchSubsystem("sound"); err != nil {
		return nil, err
	}

	var ctx, cancel = context.WithCancel(context.Background())

	var deviceChan, errChan, err = mon.DeviceChan(ctx)
	if err != nil {
		cancel()

		return nil, err
	}

	var w = &DeviceWatcher{
		events: make(chan DeviceEvent, 8),
		cancel: cancel,
		log:    Sub("devicewatch"),
	}

	go w.pump(deviceChan, errChan)

	return w, nil
}

func (w *DeviceWatcher) pump(devices <-chan *udev.Device, errs <-chan error) {
	for {
		select {
		case d, ok := <-devices:
			if !ok {
				return
			}

			var kind = DeviceAdded
			if d.Action() == "remove" {
				kind = DeviceRemoved
			}

			select {
			case w.events <- DeviceEvent{Kind: kind, Syspath: d.Syspath()}:
			default:
				w.log.Warn("device event queue full, dropping event")
			}
		case err, ok := <-errs:
			if !ok {
				return
			}

			w.log.Errorf("udev monitor error: %v", err)
		}
	}
}

// Events returns the channel of hotplug events.
func (w *DeviceWatcher) Events() <-chan DeviceEvent { return w.events }

// Stop halts monitoring.
func (w *DeviceWatcher) Stop() { w.cancel() }
