// Package control runs the crawler's top-level loop: who drives (keyboard
// or autonomy), which autonomous behavior is active, and what each key does.
package control

import "github.com/gwillem/crawler/pkg/autonomy"

// Supervision says whether the keyboard or the autonomous loop is driving.
type Supervision int

const (
	Manual Supervision = iota
	Autonomous
)

func (s Supervision) String() string {
	if s == Autonomous {
		return "autonomous"
	}
	return "manual"
}

// Mode is the coordinator's switchable state. Behavior only matters while
// Supervision is Autonomous but is kept across toggles.
type Mode struct {
	Supervision Supervision
	Behavior    autonomy.Kind
	CameraOn    bool
}

// InitialMode starts under manual control with behavior b selected.
func InitialMode(b autonomy.Kind) Mode {
	return Mode{Supervision: Manual, Behavior: b}
}

// EffectKind is a side effect requested by a mode transition.
type EffectKind int

const (
	Announce EffectKind = iota
	StartCamera
	StopCamera
	CapturePicture
)

// Effect is performed by the coordinator after a transition.
type Effect struct {
	Kind    EffectKind
	Message string
}

func announce(msg string) Effect {
	return Effect{Kind: Announce, Message: msg}
}

// Apply returns the mode after action a and the effects to perform.
// Actions that are not toggles leave the mode unchanged with no effects.
func (m Mode) Apply(a Action) (Mode, []Effect) {
	switch a {
	case ToggleCamera:
		m.CameraOn = !m.CameraOn
		if m.CameraOn {
			return m, []Effect{{Kind: StartCamera}, announce("Camera turned ON")}
		}
		return m, []Effect{{Kind: StopCamera}, announce("Camera turned OFF")}

	case ToggleSupervision:
		if m.Supervision == Manual {
			m.Supervision = Autonomous
			return m, []Effect{announce("Manual control OFF, " + m.Behavior.String() + " active")}
		}
		m.Supervision = Manual
		return m, []Effect{announce("Manual control ON")}

	case ToggleBehavior:
		if m.Behavior == autonomy.Mapping {
			m.Behavior = autonomy.PhoneFinding
			return m, []Effect{announce("Switched to phone finding")}
		}
		m.Behavior = autonomy.Mapping
		return m, []Effect{announce("Switched to mapping")}

	case TakePicture:
		return m, []Effect{{Kind: CapturePicture}}
	}
	return m, nil
}
