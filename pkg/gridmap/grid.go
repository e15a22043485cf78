// Package gridmap provides the fixed-size occupancy grid the crawler marks
// as it moves, plus its on-disk store.
package gridmap

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tiendc/go-deepcopy"
)

// Default grid dimensions.
const (
	DefaultWidth  = 20
	DefaultHeight = 20
)

// ErrMalformed is returned when a stored grid is empty or ragged.
var ErrMalformed = errors.New("malformed grid")

// Cell is the state of one grid cell.
type Cell int

// Cell states. Obstacles are not recorded, only traversal.
const (
	Unvisited Cell = 0
	Visited   Cell = 1
)

// Grid is a W x H array of cells indexed as Cells[x][y].
// It never grows: writes outside the bounds are dropped.
type Grid struct {
	Cells [][]Cell
}

// New returns a zeroed grid. Non-positive sizes fall back to the defaults.
func New(width, height int) *Grid {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	cells := make([][]Cell, width)
	for x := range cells {
		cells[x] = make([]Cell, height)
	}
	return &Grid{Cells: cells}
}

// Width returns the size of the x axis.
func (g *Grid) Width() int {
	return len(g.Cells)
}

// Height returns the size of the y axis.
func (g *Grid) Height() int {
	if len(g.Cells) == 0 {
		return 0
	}
	return len(g.Cells[0])
}

// Center returns the start cursor (W/2, H/2).
func (g *Grid) Center() Point {
	return Point{X: g.Width() / 2, Y: g.Height() / 2}
}

// InBounds reports whether p lies within [0,W) x [0,H).
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.Width() && p.Y >= 0 && p.Y < g.Height()
}

// Mark writes v at p. It returns false, without touching the grid, when p is
// out of bounds.
func (g *Grid) Mark(p Point, v Cell) bool {
	if !g.InBounds(p) {
		return false
	}
	g.Cells[p.X][p.Y] = v
	return true
}

// At returns the cell at p and whether p is in bounds.
func (g *Grid) At(p Point) (Cell, bool) {
	if !g.InBounds(p) {
		return Unvisited, false
	}
	return g.Cells[p.X][p.Y], true
}

// Count returns how many cells hold v.
func (g *Grid) Count(v Cell) int {
	n := 0
	for _, col := range g.Cells {
		for _, c := range col {
			if c == v {
				n++
			}
		}
	}
	return n
}

// Equal reports whether both grids have the same shape and cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width() != o.Width() || g.Height() != o.Height() {
		return false
	}
	for x := range g.Cells {
		for y := range g.Cells[x] {
			if g.Cells[x][y] != o.Cells[x][y] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy that shares no memory with g.
func (g *Grid) Clone() (*Grid, error) {
	dst := new(Grid)
	if err := deepcopy.Copy(dst, g); err != nil {
		return nil, fmt.Errorf("copy grid: %w", err)
	}
	return dst, nil
}

// MarshalJSON encodes the grid as nested arrays of integers.
func (g *Grid) MarshalJSON() ([]byte, error) {
	if g.Cells == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g.Cells)
}

// UnmarshalJSON decodes nested arrays of integers and rejects ragged input.
func (g *Grid) UnmarshalJSON(data []byte) error {
	var cells [][]Cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return err
	}
	if err := validate(cells); err != nil {
		return err
	}
	g.Cells = cells
	return nil
}

func validate(cells [][]Cell) error {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return fmt.Errorf("%w: empty", ErrMalformed)
	}
	h := len(cells[0])
	for x, col := range cells {
		if len(col) != h {
			return fmt.Errorf("%w: column %d has %d cells, want %d", ErrMalformed, x, len(col), h)
		}
	}
	return nil
}
