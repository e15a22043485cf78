package autonomy

import (
	"context"
	"testing"
	"time"

	"github.com/gwillem/crawler/pkg/gridmap"
	"github.com/gwillem/crawler/pkg/robot"
)

const phone = "DC:C4:9C:77:4E:43"

type rig struct {
	act    *fakeActuator
	ranger *scriptedRanger
	scan   *scriptedScanner
	needle *fakeNeedle
	audio  *fakeAudio
	sleeps *sleepRecorder
	engine *Engine
	state  *State
}

func newRig(distances []float64, present []bool) *rig {
	r := &rig{
		act:    &fakeActuator{},
		ranger: &scriptedRanger{readings: distances},
		scan:   &scriptedScanner{present: present},
		needle: &fakeNeedle{},
		audio:  &fakeAudio{},
		sleeps: &sleepRecorder{},
	}
	r.engine = NewEngine(Config{
		AlertDistance: 15,
		EvadeSteps:    3,
		Settle:        200 * time.Millisecond,
		PhoneAddress:  phone,
		AlertClip:     "sounds/sign.wav",
		AlertVolume:   100,
	}, Devices{
		Actuator: r.act,
		Ranger:   r.ranger,
		Scanner:  r.scan,
		Needle:   r.needle,
		Audio:    r.audio,
	})
	r.engine.Sleep = r.sleeps.sleep
	r.state = NewState(gridmap.New(20, 20), 100)
	return r
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		present       bool
		d             Distance
		holdOnInvalid bool
		expected      Decision
	}{
		{"far", true, Distance{Value: 50}, false, Advance},
		{"just past alert", true, Distance{Value: 15.01}, false, Advance},
		{"at alert", true, Distance{Value: 15}, false, Evade},
		{"near", true, Distance{Value: 0}, false, Evade},
		{"no echo, mapping", true, Distance{Value: -1}, false, Evade},
		{"no echo, phone", true, Distance{Value: -1}, true, Hold},
		{"degraded, phone", true, Distance{Value: 40, Status: Degraded}, true, Hold},
		{"absent far", false, Distance{Value: 50}, true, Search},
		{"absent near", false, Distance{Value: 3}, true, Search},
		{"absent invalid", false, Distance{Value: -1}, true, Search},
	}

	for _, tt := range tests {
		got := Decide(tt.present, tt.d, 15, tt.holdOnInvalid)
		if got != tt.expected {
			t.Errorf("%s: Decide = %s, want %s", tt.name, got, tt.expected)
		}
	}
}

func TestStep_MappingScenario(t *testing.T) {
	r := newRig([]float64{50, 5, 50}, nil)
	ctx := context.Background()

	var got []Decision
	for i := 0; i < 3; i++ {
		got = append(got, r.engine.Step(ctx, Mapping, r.state).Decision)
	}

	wantDec := []Decision{Advance, Evade, Advance}
	for i := range wantDec {
		if got[i] != wantDec[i] {
			t.Errorf("tick %d decision = %s, want %s", i+1, got[i], wantDec[i])
		}
	}

	wantCalls := []call{
		{robot.Forward, 1, 100},
		{robot.TurnLeftAngle, 3, 100},
		{robot.Forward, 1, 100},
	}
	if len(r.act.calls) != len(wantCalls) {
		t.Fatalf("actuator calls = %v, want %v", r.act.calls, wantCalls)
	}
	for i := range wantCalls {
		if r.act.calls[i] != wantCalls[i] {
			t.Errorf("call %d = %+v, want %+v", i, r.act.calls[i], wantCalls[i])
		}
	}

	if r.state.Cursor != (gridmap.Point{X: 10, Y: 12}) {
		t.Errorf("cursor = %v, want (10,12)", r.state.Cursor)
	}
	for _, p := range []gridmap.Point{{X: 10, Y: 11}, {X: 10, Y: 12}} {
		if c, _ := r.state.Grid.At(p); c != gridmap.Visited {
			t.Errorf("cell %v = %d, want visited", p, c)
		}
	}
	if n := r.state.Grid.Count(gridmap.Visited); n != 2 {
		t.Errorf("visited cells = %d, want 2", n)
	}
	if r.state.Heading.Current() != 90 {
		t.Errorf("heading = %f, want 90", r.state.Heading.Current())
	}
	if len(r.scan.asked) != 0 {
		t.Error("mapping scanned for the phone")
	}
	if len(r.needle.angles) != 0 {
		t.Error("mapping rendered the needle")
	}
	if len(r.sleeps.slept) != 3 || r.sleeps.slept[0] != 200*time.Millisecond {
		t.Errorf("settle sleeps = %v, want 3x200ms", r.sleeps.slept)
	}
}

func TestStep_PhoneFindingScenario(t *testing.T) {
	r := newRig([]float64{99, 50, 10}, []bool{false, true, true})
	ctx := context.Background()

	var got []Decision
	for i := 0; i < 3; i++ {
		got = append(got, r.engine.Step(ctx, PhoneFinding, r.state).Decision)
	}
	r.engine.Wait()

	wantDec := []Decision{Search, Advance, Evade}
	for i := range wantDec {
		if got[i] != wantDec[i] {
			t.Errorf("tick %d decision = %s, want %s", i+1, got[i], wantDec[i])
		}
	}

	wantMotions := []robot.Motion{robot.TurnLeftAngle, robot.Forward, robot.TurnLeftAngle}
	motions := r.act.motions()
	if len(motions) != len(wantMotions) {
		t.Fatalf("motions = %v, want %v", motions, wantMotions)
	}
	for i := range wantMotions {
		if motions[i] != wantMotions[i] {
			t.Errorf("motion %d = %s, want %s", i, motions[i], wantMotions[i])
		}
	}

	// tick 1 renders after the sweep, ticks 2 and 3 render before moving
	wantAngles := []float64{90, 90, 90}
	if len(r.needle.angles) != len(wantAngles) {
		t.Fatalf("needle angles = %v, want %v", r.needle.angles, wantAngles)
	}
	for i := range wantAngles {
		if r.needle.angles[i] != wantAngles[i] {
			t.Errorf("needle render %d = %f, want %f", i, r.needle.angles[i], wantAngles[i])
		}
	}

	if clips := r.audio.played(); len(clips) != 1 || clips[0] != "sounds/sign.wav" {
		t.Errorf("alert clips = %v, want one sounds/sign.wav", clips)
	}
	if r.state.Heading.Current() != 180 {
		t.Errorf("heading = %f, want 180", r.state.Heading.Current())
	}
	if r.state.Cursor != (gridmap.Point{X: 10, Y: 11}) {
		t.Errorf("cursor = %v, want (10,11)", r.state.Cursor)
	}
	for _, addr := range r.scan.asked {
		if addr != phone {
			t.Errorf("scanned for %q, want %q", addr, phone)
		}
	}
}

func TestStep_PhoneAbsentNeverAdvances(t *testing.T) {
	for _, d := range []float64{-1, 0, 5, 15, 16, 50, 1000} {
		r := newRig([]float64{d}, []bool{false})
		rep := r.engine.Step(context.Background(), PhoneFinding, r.state)

		if rep.Decision != Search {
			t.Errorf("distance %f: decision = %s, want search", d, rep.Decision)
		}
		for _, m := range r.act.motions() {
			if m == robot.Forward {
				t.Errorf("distance %f: advanced while the phone was absent", d)
			}
		}
		if r.state.Cursor != r.state.Grid.Center() {
			t.Errorf("distance %f: cursor moved to %v", d, r.state.Cursor)
		}
	}
}

func TestStep_PhoneInvalidDistanceHolds(t *testing.T) {
	r := newRig([]float64{-1}, []bool{true})
	rep := r.engine.Step(context.Background(), PhoneFinding, r.state)

	if rep.Decision != Hold {
		t.Errorf("decision = %s, want hold", rep.Decision)
	}
	if len(r.act.calls) != 0 {
		t.Errorf("actuator calls = %v, want none", r.act.calls)
	}
	if len(r.sleeps.slept) != 0 {
		t.Errorf("slept %v on a hold tick", r.sleeps.slept)
	}
	if len(r.needle.angles) != 1 {
		t.Errorf("needle renders = %d, want 1", len(r.needle.angles))
	}
}

func TestStep_MappingInvalidDistanceEvades(t *testing.T) {
	r := newRig([]float64{-1}, nil)
	rep := r.engine.Step(context.Background(), Mapping, r.state)
	if rep.Decision != Evade {
		t.Errorf("decision = %s, want evade", rep.Decision)
	}
}

func TestStep_ScannerFailureMeansAbsent(t *testing.T) {
	r := newRig([]float64{50}, []bool{true})
	r.scan.err = errDevice

	rep := r.engine.Step(context.Background(), PhoneFinding, r.state)
	if rep.Presence.Status != Degraded || rep.Presence.Found {
		t.Errorf("presence = %+v, want degraded not found", rep.Presence)
	}
	if rep.Decision != Search {
		t.Errorf("decision = %s, want search", rep.Decision)
	}
}

func TestStep_RangerFailureIsDegraded(t *testing.T) {
	r := newRig(nil, []bool{true})
	r.ranger.err = errDevice

	rep := r.engine.Step(context.Background(), PhoneFinding, r.state)
	if rep.Distance.Status != Degraded {
		t.Errorf("distance status = %s, want degraded", rep.Distance.Status)
	}
	if rep.Decision != Hold {
		t.Errorf("decision = %s, want hold", rep.Decision)
	}
}

func TestStep_AudioFailureIsSwallowed(t *testing.T) {
	r := newRig([]float64{5}, []bool{true})
	r.audio.err = errDevice

	rep := r.engine.Step(context.Background(), PhoneFinding, r.state)
	r.engine.Wait()

	if rep.Decision != Evade {
		t.Errorf("decision = %s, want evade", rep.Decision)
	}
	if r.state.Heading.Current() != 90 {
		t.Errorf("heading = %f, want 90 despite the audio failure", r.state.Heading.Current())
	}
}

func TestStep_ActuatorFailureKeepsState(t *testing.T) {
	r := newRig([]float64{50, 5}, nil)
	r.act.err = errDevice
	ctx := context.Background()

	r.engine.Step(ctx, Mapping, r.state)
	r.engine.Step(ctx, Mapping, r.state)

	if r.state.Cursor != r.state.Grid.Center() {
		t.Errorf("cursor = %v after failed step, want center", r.state.Cursor)
	}
	if r.state.Heading.Current() != 0 {
		t.Errorf("heading = %f after failed turn, want 0", r.state.Heading.Current())
	}
}

func TestStep_CursorLeavesGrid(t *testing.T) {
	r := newRig([]float64{50}, nil)
	r.state.Cursor = gridmap.Point{X: 10, Y: 19}

	for i := 0; i < 3; i++ {
		r.engine.Step(context.Background(), Mapping, r.state)
	}
	if r.state.Cursor.Y != 22 {
		t.Errorf("cursor = %v, want y=22", r.state.Cursor)
	}
	if n := r.state.Grid.Count(gridmap.Visited); n != 0 {
		t.Errorf("visited cells = %d, want 0 while outside the grid", n)
	}
}
