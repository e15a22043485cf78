package robot

import "context"

// Motion is an actuator command.
type Motion string

const (
	Forward       Motion = "forward"
	Backward      Motion = "backward"
	TurnLeft      Motion = "turn left"
	TurnRight     Motion = "turn right"
	TurnLeftAngle Motion = "turn left angle"
	Stop          Motion = "stop"
)

// Actuator moves the crawler. steps is a repeat count and speed a
// percentage of full speed.
type Actuator interface {
	Do(ctx context.Context, m Motion, steps, speed int) error
}

// NoEcho is the distance a Ranger reports when nothing came back.
const NoEcho = -1.0

// Ranger measures the distance ahead. A negative distance means the
// reading is invalid.
type Ranger interface {
	Read(ctx context.Context) (float64, error)
}

// PresenceScanner reports whether the device with the given address is
// currently discoverable.
type PresenceScanner interface {
	Scan(ctx context.Context, address string) (bool, error)
}

// Needle renders a heading on the gauge display.
type Needle interface {
	Render(angleDeg float64) error
}

// Audio plays a sound clip. volume is 0-100.
type Audio interface {
	Play(clip string, volume int) error
}

// Camera is the on-board camera.
type Camera interface {
	Start() error
	Stop() error
	Capture(filename string) error
}
