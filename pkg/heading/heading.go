// Package heading tracks the crawler's cumulative heading.
package heading

import "math"

// Tracker holds a heading in degrees, always within [0, 360).
// The zero value points at 0 degrees.
type Tracker struct {
	deg float64
}

// Turn adds delta degrees and returns the new heading.
func (t *Tracker) Turn(delta float64) float64 {
	t.deg = Wrap(t.deg + delta)
	return t.deg
}

// Current returns the heading in degrees.
func (t *Tracker) Current() float64 {
	return t.deg
}

// Reset points the tracker back at 0 degrees.
func (t *Tracker) Reset() {
	t.deg = 0
}

// Wrap normalizes deg into [0, 360) using a true (never negative) modulo.
func Wrap(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -tiny + 360 rounds to 360
	if deg >= 360 {
		deg -= 360
	}
	return deg
}
