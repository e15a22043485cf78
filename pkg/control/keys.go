package control

// Action is what a key asks for.
type Action int

const (
	NoAction Action = iota
	MoveForward
	MoveBackward
	TurnLeft
	TurnRight
	SetSpeed
	ToggleCamera
	ToggleSupervision
	ToggleBehavior
	TakePicture
)

func (a Action) String() string {
	switch a {
	case MoveForward:
		return "forward"
	case MoveBackward:
		return "backward"
	case TurnLeft:
		return "turn left"
	case TurnRight:
		return "turn right"
	case SetSpeed:
		return "speed"
	case ToggleCamera:
		return "camera"
	case ToggleSupervision:
		return "supervision"
	case ToggleBehavior:
		return "behavior"
	case TakePicture:
		return "picture"
	default:
		return "none"
	}
}

// IsToggle reports whether a is followed by the debounce pause.
func (a Action) IsToggle() bool {
	switch a {
	case ToggleCamera, ToggleSupervision, ToggleBehavior, TakePicture:
		return true
	}
	return false
}

// IsMove reports whether a drives the legs directly.
func (a Action) IsMove() bool {
	switch a {
	case MoveForward, MoveBackward, TurnLeft, TurnRight:
		return true
	}
	return false
}

// Event is a decoded key.
type Event struct {
	Action Action
	Speed  int // percent, set for SetSpeed
}

var keyActions = map[string]Action{
	"w": MoveForward,
	"s": MoveBackward,
	"a": TurnLeft,
	"d": TurnRight,
	"c": ToggleCamera,
	"m": ToggleSupervision,
	"t": ToggleBehavior,
	"p": TakePicture,
}

// ParseKey decodes a key. Digits 1-9 set the speed to ten times the digit
// and 0 sets it to 100. Unknown keys return false.
func ParseKey(key string) (Event, bool) {
	if a, ok := keyActions[key]; ok {
		return Event{Action: a}, true
	}
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		n := int(key[0] - '0')
		if n == 0 {
			n = 10
		}
		return Event{Action: SetSpeed, Speed: n * 10}, true
	}
	return Event{}, false
}
