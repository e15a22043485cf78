package robot

// Frame is one key pose of a gait: normalized joint targets in [-100, 100].
type Frame map[JointName]float64

// Gait geometry in normalized units.
const (
	hipSwing   = 30.0
	femurStand = -20.0
	femurLift  = 40.0
	tibiaStand = 0.0
)

// swingOrder lifts diagonal legs in turn so three feet stay down.
var swingOrder = []Leg{RightFront, LeftBack, LeftFront, RightBack}

// StandFrame returns the neutral standing pose.
func StandFrame() Frame {
	f := make(Frame, 12)
	for _, l := range AllLegs() {
		f[Joint(l, Hip)] = 0
		f[Joint(l, Femur)] = femurStand
		f[Joint(l, Tibia)] = tibiaStand
	}
	return f
}

// Gait returns the key frames for one step of the given motion. Stop and
// unknown motions return just the standing pose.
func Gait(m Motion) []Frame {
	if m == Stop {
		return []Frame{StandFrame()}
	}
	if _, ok := swingSign(m, RightFront); !ok {
		return []Frame{StandFrame()}
	}

	cur := StandFrame()
	frames := make([]Frame, 0, len(swingOrder)*3+1)
	emit := func() {
		frames = append(frames, cur.clone())
	}

	for _, l := range swingOrder {
		sign, _ := swingSign(m, l)
		cur[Joint(l, Femur)] = femurLift
		emit()
		cur[Joint(l, Hip)] = sign * hipSwing
		emit()
		cur[Joint(l, Femur)] = femurStand
		emit()
	}

	// Pull all hips back together: the feet stay planted, the body moves
	for _, l := range AllLegs() {
		cur[Joint(l, Hip)] = 0
	}
	emit()

	return frames
}

// swingSign gives the hip direction for a leg. Hips on the left side are
// mirrored, so "forward" is negative there.
func swingSign(m Motion, l Leg) (float64, bool) {
	side := 1.0
	if l.IsLeftSide() {
		side = -1.0
	}
	switch m {
	case Forward:
		return side, true
	case Backward:
		return -side, true
	case TurnLeft, TurnLeftAngle:
		return 1, true
	case TurnRight:
		return -1, true
	default:
		return 0, false
	}
}

func (f Frame) clone() Frame {
	c := make(Frame, len(f))
	for k, v := range f {
		c[k] = v
	}
	return c
}
