package control

import (
	"testing"

	"github.com/gwillem/crawler/pkg/autonomy"
)

func effectKinds(effects []Effect) []EffectKind {
	var kinds []EffectKind
	for _, e := range effects {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestMode_Apply(t *testing.T) {
	start := InitialMode(autonomy.Mapping)

	tests := []struct {
		name     string
		from     Mode
		action   Action
		expected Mode
		effects  []EffectKind
	}{
		{
			name:     "camera on",
			from:     start,
			action:   ToggleCamera,
			expected: Mode{Supervision: Manual, Behavior: autonomy.Mapping, CameraOn: true},
			effects:  []EffectKind{StartCamera, Announce},
		},
		{
			name:     "camera off",
			from:     Mode{CameraOn: true},
			action:   ToggleCamera,
			expected: Mode{},
			effects:  []EffectKind{StopCamera, Announce},
		},
		{
			name:     "manual to autonomous",
			from:     start,
			action:   ToggleSupervision,
			expected: Mode{Supervision: Autonomous, Behavior: autonomy.Mapping},
			effects:  []EffectKind{Announce},
		},
		{
			name:     "autonomous to manual keeps behavior",
			from:     Mode{Supervision: Autonomous, Behavior: autonomy.PhoneFinding},
			action:   ToggleSupervision,
			expected: Mode{Supervision: Manual, Behavior: autonomy.PhoneFinding},
			effects:  []EffectKind{Announce},
		},
		{
			name:     "mapping to phone finding",
			from:     Mode{Supervision: Autonomous, Behavior: autonomy.Mapping},
			action:   ToggleBehavior,
			expected: Mode{Supervision: Autonomous, Behavior: autonomy.PhoneFinding},
			effects:  []EffectKind{Announce},
		},
		{
			name:     "behavior toggles under manual control too",
			from:     start,
			action:   ToggleBehavior,
			expected: Mode{Supervision: Manual, Behavior: autonomy.PhoneFinding},
			effects:  []EffectKind{Announce},
		},
		{
			name:     "picture leaves mode alone",
			from:     start,
			action:   TakePicture,
			expected: start,
			effects:  []EffectKind{CapturePicture},
		},
		{
			name:     "movement is not a transition",
			from:     start,
			action:   MoveForward,
			expected: start,
		},
		{
			name:     "speed is not a transition",
			from:     start,
			action:   SetSpeed,
			expected: start,
		},
	}

	for _, tt := range tests {
		got, effects := tt.from.Apply(tt.action)
		if got != tt.expected {
			t.Errorf("%s: mode = %+v, want %+v", tt.name, got, tt.expected)
		}
		kinds := effectKinds(effects)
		if len(kinds) != len(tt.effects) {
			t.Errorf("%s: effects = %v, want %v", tt.name, kinds, tt.effects)
			continue
		}
		for i := range kinds {
			if kinds[i] != tt.effects[i] {
				t.Errorf("%s: effect %d = %v, want %v", tt.name, i, kinds[i], tt.effects[i])
			}
		}
	}
}

func TestMode_ToggleTwiceRestores(t *testing.T) {
	start := InitialMode(autonomy.PhoneFinding)
	for _, a := range []Action{ToggleCamera, ToggleSupervision, ToggleBehavior} {
		once, _ := start.Apply(a)
		if once == start {
			t.Errorf("%s: first toggle did not change the mode", a)
		}
		twice, _ := once.Apply(a)
		if twice != start {
			t.Errorf("%s: two toggles = %+v, want %+v", a, twice, start)
		}
	}
}

func TestInitialMode(t *testing.T) {
	m := InitialMode(autonomy.Mapping)
	if m.Supervision != Manual {
		t.Errorf("supervision = %s, want manual", m.Supervision)
	}
	if m.CameraOn {
		t.Error("camera starts on")
	}
}
