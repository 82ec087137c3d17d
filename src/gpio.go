package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Hardware control surface: four buttons, four lamps, over
 *		Linux GPIO character devices, per spec.md §6.
 *
 * Description:	Wraps github.com/warthog618/go-gpiocdev (declared in the
 *		teacher's go.mod, never wired there). Buttons are requested
 *		with edge detection and pushed onto a channel; lamps are
 *		plain output lines driven through the Lamp interface from
 *		indicator.go. Tests substitute mockOutputLine /
 *		mockInputLine for both, in the teacher's mockGPIODLine
 *		style (ptt_test.go), avoiding any need for real hardware or
 *		the gpio-sim kernel module.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/warthog618/go-gpiocdev"
)

// HardwarePanel is the four-button/four-lamp control surface Looper drives,
// narrowed to an interface so cmd/loopersim can substitute a
// pseudo-terminal panel for real GPIO lines. *GPIOBoard implements it.
type HardwarePanel interface {
	Events() <-chan ButtonEvent
	IsActive(id ButtonID) bool
	Lamp(id ButtonID) Lamp
	Close() error
}

// ButtonID names one of the four physical buttons.
type ButtonID int

const (
	ButtonRec ButtonID = iota
	ButtonPlay
	ButtonBack
	ButtonForw
)

func (b ButtonID) String() string {
	switch b {
	case ButtonRec:
		return "rec"
	case ButtonPlay:
		return "play"
	case ButtonBack:
		return "back"
	case ButtonForw:
		return "forw"
	default:
		return "unknown"
	}
}

// Edge is a button press or release.
type Edge int

const (
	EdgePress Edge = iota
	EdgeRelease
)

// ButtonEvent is one edge from one button.
type ButtonEvent struct {
	Button ButtonID
	Edge   Edge
}

// outputLine is the subset of *gpiocdev.Line this module depends on for
// lamps, narrowed to an interface so tests can supply mockOutputLine.
type outputLine interface {
	SetValue(v int) error
	Close() error
}

// inputLine is the subset used for buttons.
type inputLine interface {
	Value() (int, error)
	Close() error
}

// gpioLamp adapts an outputLine to the Lamp interface from indicator.go.
type gpioLamp struct {
	line outputLine
}

func (l *gpioLamp) On()  { _ = l.line.SetValue(1) }
func (l *gpioLamp) Off() { _ = l.line.SetValue(0) }

// GPIOBoard owns the eight GPIO lines (four buttons, four lamps) for one
// looper instance and is spec.md §6's concrete hardware control surface.
type GPIOBoard struct {
	chip string

	buttons map[ButtonID]inputLine
	lamps   map[ButtonID]outputLine

	events chan ButtonEvent
	log    *log.Logger
}

// GPIOPinout maps each button/lamp to its chip-relative line offset.
type GPIOPinout struct {
	RecButton, PlayButton, BackButton, ForwButton int
	RecLamp, PlayLamp, BackLamp, ForwLamp         int
}

// OpenGPIOBoard requests all eight lines on chip (e.g. "gpiochip0") using
// pinout, with both-edge detection on the button lines.
func OpenGPIOBoard(chip string, pinout GPIOPinout) (*GPIOBoard, error) {
	var board = &GPIOBoard{
		chip:    chip,
		buttons: make(map[ButtonID]inputLine, 4),
		lamps:   make(map[ButtonID]outputLine, 4),
		events:  make(chan ButtonEvent, 16),
		log:     Sub("gpio"),
	}

	var buttonOffsets = map[ButtonID]int{
		ButtonRec:  pinout.RecButton,
		ButtonPlay: pinout.PlayButton,
		ButtonBack: pinout.BackButton,
		ButtonForw: pinout.ForwButton,
	}

	for id, offset := range buttonOffsets {
		var handler = board.makeEventHandler(id)

		var line, err = gpiocdev.RequestLine(chip, offset,
			gpiocdev.AsInput,
			gpiocdev.WithPullUp,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(handler))
		if err != nil {
			board.Close()

			return nil, fmt.Errorf("requesting button line %d: %w", offset, err)
		}

		board.buttons[id] = line
	}

	var lampOffsets = map[ButtonID]int{
		ButtonRec:  pinout.RecLamp,
		ButtonPlay: pinout.PlayLamp,
		ButtonBack: pinout.BackLamp,
		ButtonForw: pinout.ForwLamp,
	}

	for id, offset := range lampOffsets {
		var line, err = gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
		if err != nil {
			board.Close()

			return nil, fmt.Errorf("requesting lamp line %d: %w", offset, err)
		}

		board.lamps[id] = line
	}

	return board, nil
}

func (b *GPIOBoard) makeEventHandler(id ButtonID) func(gpiocdev.LineEvent) {
	return func(evt gpiocdev.LineEvent) {
		var edge = EdgeRelease
		if evt.Type == gpiocdev.LineEventRisingEdge {
			edge = EdgePress
		}

		select {
		case b.events <- ButtonEvent{Button: id, Edge: edge}:
		default:
			b.log.Warnf("button event queue full, dropping %s edge for %s", edge, id)
		}
	}
}

// Events returns the channel of button press/release edges.
func (b *GPIOBoard) Events() <-chan ButtonEvent { return b.events }

// IsActive polls the current level of a button line (used for the held
// -button tempo nudge and the four-buttons-held shutdown detection).
func (b *GPIOBoard) IsActive(id ButtonID) bool {
	var line, ok = b.buttons[id]
	if !ok {
		return false
	}

	var v, err = line.Value()
	if err != nil {
		return false
	}

	return v == 1
}

// Lamp returns the Lamp for id, for wiring into an IndicatorSet.
func (b *GPIOBoard) Lamp(id ButtonID) Lamp {
	return &gpioLamp{line: b.lamps[id]}
}

// Close releases every requested line.
func (b *GPIOBoard) Close() error {
	for _, l := range b.buttons {
		_ = l.Close()
	}

	for _, l := range b.lamps {
		_ = l.Close()
	}

	return nil
}
