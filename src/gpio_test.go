package looper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/go-gpiocdev"
)

// mockOutputLine is a test double for outputLine, avoiding any need for
// real GPIO hardware or the gpio-sim kernel module.
type mockOutputLine struct {
	value  int
	closed bool
}

func (m *mockOutputLine) SetValue(v int) error {
	m.value = v

	return nil
}

func (m *mockOutputLine) Close() error {
	m.closed = true

	return nil
}

// mockInputLine is a test double for inputLine.
type mockInputLine struct {
	value  int
	closed bool
}

func (m *mockInputLine) Value() (int, error) { return m.value, nil }

func (m *mockInputLine) Close() error {
	m.closed = true

	return nil
}

func TestGpioLamp_OnOff_DrivesLine(t *testing.T) {
	var line = &mockOutputLine{}
	var lamp = &gpioLamp{line: line}

	lamp.On()
	assert.Equal(t, 1, line.value)

	lamp.Off()
	assert.Equal(t, 0, line.value)
}

func setupBoard(t *testing.T) (*GPIOBoard, *mockInputLine, *mockOutputLine) {
	t.Helper()

	var btn = &mockInputLine{}
	var lamp = &mockOutputLine{}

	var board = &GPIOBoard{
		buttons: map[ButtonID]inputLine{ButtonRec: btn},
		lamps:   map[ButtonID]outputLine{ButtonRec: lamp},
		events:  make(chan ButtonEvent, 4),
		log:     Sub("gpio-test"),
	}

	t.Cleanup(func() { _ = board.Close() })

	return board, btn, lamp
}

func TestGPIOBoard_IsActive_ReflectsLineValue(t *testing.T) {
	var board, btn, _ = setupBoard(t)

	btn.value = 0
	assert.False(t, board.IsActive(ButtonRec))

	btn.value = 1
	assert.True(t, board.IsActive(ButtonRec))
}

func TestGPIOBoard_IsActive_UnknownButtonIsFalse(t *testing.T) {
	var board, _, _ = setupBoard(t)

	assert.False(t, board.IsActive(ButtonPlay))
}

func TestGPIOBoard_MakeEventHandler_PublishesEdges(t *testing.T) {
	var board, _, _ = setupBoard(t)
	var handler = board.makeEventHandler(ButtonRec)

	handler(fakeRisingEdge())

	select {
	case ev := <-board.Events():
		assert.Equal(t, ButtonRec, ev.Button)
		assert.Equal(t, EdgePress, ev.Edge)
	default:
		t.Fatal("expected a button event to be published")
	}
}

func TestGPIOBoard_Close_ClosesAllLines(t *testing.T) {
	var board, btn, lamp = setupBoard(t)

	require.NoError(t, board.Close())

	assert.True(t, btn.closed)
	assert.True(t, lamp.closed)
}

func fakeRisingEdge() gpiocdev.LineEvent {
	return gpiocdev.LineEvent{Type: gpiocdev.LineEventRisingEdge}
}
