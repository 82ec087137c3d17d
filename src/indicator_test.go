package looper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// mockLamp is a test double for Lamp, avoiding any need for real hardware.
type mockLamp struct {
	onCount, offCount int
}

func (m *mockLamp) On()  { m.onCount++ }
func (m *mockLamp) Off() { m.offCount++ }

func TestBlinkingLamp_OnOff_BypassesBlink(t *testing.T) {
	var sched = NewScheduler()
	t.Cleanup(sched.Stop)

	var mock = &mockLamp{}
	var lamp = NewBlinkingLamp(mock, sched)

	lamp.On()
	assert.Equal(t, 1, mock.onCount)

	lamp.Off()
	assert.Equal(t, 1, mock.offCount)
}

func TestBlinkingLamp_Blink_TogglesOverTime(t *testing.T) {
	var sched = NewScheduler()
	t.Cleanup(sched.Stop)

	var mock = &mockLamp{}
	var lamp = NewBlinkingLamp(mock, sched)

	lamp.Blink(10*time.Millisecond, 10*time.Millisecond)
	t.Cleanup(lamp.stopBlink)

	time.Sleep(60 * time.Millisecond)

	assert.Greater(t, mock.onCount, 1, "lamp should have cycled on more than once")
	assert.Greater(t, mock.offCount, 0, "lamp should have cycled off at least once")
}

func TestIndicatorSet_ApplyState_PlayLightsPlayLampOnly(t *testing.T) {
	var sched = NewScheduler()
	t.Cleanup(sched.Stop)

	var rec, play, back, forw = &mockLamp{}, &mockLamp{}, &mockLamp{}, &mockLamp{}
	var set = &IndicatorSet{
		Rec:  NewBlinkingLamp(rec, sched),
		Play: NewBlinkingLamp(play, sched),
		Back: NewBlinkingLamp(back, sched),
		Forw: NewBlinkingLamp(forw, sched),
	}

	var clock = NewBeatClock(120, time.Now())
	set.ApplyState(StatePlay, clock, DefaultConfig())

	assert.Equal(t, 1, play.onCount)
	assert.Equal(t, 0, rec.onCount)
}

func TestIndicatorSet_ErrorPattern_BlinksRecAndForwAlways(t *testing.T) {
	var sched = NewScheduler()
	t.Cleanup(sched.Stop)

	var rec, play, back, forw = &mockLamp{}, &mockLamp{}, &mockLamp{}, &mockLamp{}
	var set = &IndicatorSet{
		Rec:  NewBlinkingLamp(rec, sched),
		Play: NewBlinkingLamp(play, sched),
		Back: NewBlinkingLamp(back, sched),
		Forw: NewBlinkingLamp(forw, sched),
	}

	set.ErrorPattern(true)
	t.Cleanup(set.AllOff)

	assert.GreaterOrEqual(t, rec.onCount, 1)
	assert.GreaterOrEqual(t, forw.onCount, 1)
	assert.Equal(t, 0, back.onCount, "back lamp should stay off for a DeviceRateMismatch pattern")
}
