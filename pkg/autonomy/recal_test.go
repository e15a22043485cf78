package autonomy

import (
	"context"
	"testing"
	"time"

	"github.com/gwillem/crawler/pkg/robot"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestRecalibrator() (*Recalibrator, *fakeClock, *sleepRecorder) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	sleeps := &sleepRecorder{}
	r := NewRecalibrator(5*time.Second, time.Second)
	r.Now = clock.Now
	r.Sleep = sleeps.sleep
	r.Reset()
	return r, clock, sleeps
}

func TestRecalibrator_NotDue(t *testing.T) {
	r, clock, _ := newTestRecalibrator()
	act := &fakeActuator{}

	clock.advance(4999 * time.Millisecond)
	if r.Check(context.Background(), act, 100) {
		t.Error("Check fired before the interval elapsed")
	}
	if len(act.calls) != 0 {
		t.Errorf("actuator calls = %v, want none", act.calls)
	}
}

func TestRecalibrator_FiresAndResets(t *testing.T) {
	r, clock, sleeps := newTestRecalibrator()
	act := &fakeActuator{}
	ctx := context.Background()

	clock.advance(5 * time.Second)
	if !r.Check(ctx, act, 70) {
		t.Fatal("Check did not fire at the interval")
	}
	if len(act.calls) != 1 || act.calls[0] != (call{robot.Stop, 1, 70}) {
		t.Errorf("actuator calls = %v, want one stop", act.calls)
	}
	if len(sleeps.slept) != 1 || sleeps.slept[0] != time.Second {
		t.Errorf("pauses = %v, want [1s]", sleeps.slept)
	}

	clock.advance(time.Second)
	if r.Check(ctx, act, 70) {
		t.Error("Check fired again right after a reset")
	}
	clock.advance(4 * time.Second)
	if !r.Check(ctx, act, 70) {
		t.Error("Check did not fire one interval after the reset")
	}
}

func TestRecalibrator_StopFailureStillResets(t *testing.T) {
	r, clock, _ := newTestRecalibrator()
	act := &fakeActuator{err: errDevice}

	clock.advance(6 * time.Second)
	if !r.Check(context.Background(), act, 100) {
		t.Fatal("Check did not fire")
	}
	if r.Due() {
		t.Error("still due after a failed stop")
	}
}
