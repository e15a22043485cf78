// Package robot provides the crawler's hardware contracts and the
// servo-driven leg actuator.
package robot

// Leg identifies one of the four legs.
type Leg string

// Legs of the crawler, named by side and end.
const (
	LeftFront  Leg = "lf"
	RightFront Leg = "rf"
	LeftBack   Leg = "lb"
	RightBack  Leg = "rb"
)

// AllLegs returns the legs in servo ID order.
func AllLegs() []Leg {
	return []Leg{RightFront, LeftFront, LeftBack, RightBack}
}

// JointName identifies a servo on the crawler, e.g. "rf_hip".
type JointName string

// Segment is the part of a leg a servo moves.
type Segment string

const (
	Hip   Segment = "hip"   // swings the leg forward/back
	Femur Segment = "femur" // lifts the leg
	Tibia Segment = "tibia" // extends the foot
)

// Joint returns the joint name for a leg segment.
func Joint(l Leg, s Segment) JointName {
	return JointName(string(l) + "_" + string(s))
}

// AllJoints returns all joint names in order (matching servo IDs 1-12).
func AllJoints() []JointName {
	joints := make([]JointName, 0, 12)
	for _, l := range AllLegs() {
		joints = append(joints, Joint(l, Hip), Joint(l, Femur), Joint(l, Tibia))
	}
	return joints
}

// IsLeftSide reports whether the leg is on the left of the body. Hip
// servos on the left are mounted mirrored.
func (l Leg) IsLeftSide() bool {
	return l == LeftFront || l == LeftBack
}
