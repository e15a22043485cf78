package gridmap

import "fmt"

// Direction is a unit step along the fixed grid axes.
type Direction int

const (
	Forward Direction = iota
	Backward
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Point is a cursor position. It is not bounded by any grid.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Step moves one cell: forward/backward change Y, left/right change X.
//
// The axes are fixed and ignore the heading, so after a turn "forward"
// still walks along +Y. This mirrors how the crawler has always tracked
// itself; there is no dead reckoning.
func (p Point) Step(d Direction) Point {
	switch d {
	case Forward:
		p.Y++
	case Backward:
		p.Y--
	case Left:
		p.X--
	case Right:
		p.X++
	}
	return p
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}
