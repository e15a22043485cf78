// Package autonomy runs the crawler's two autonomous behaviors, mapping
// and phone finding, one control tick at a time.
package autonomy

import (
	"context"
	"time"

	"github.com/gwillem/crawler/pkg/gridmap"
	"github.com/gwillem/crawler/pkg/heading"
)

// State is what the control loop knows about the crawler. It is owned by
// the coordinator and handed to each step by reference.
type State struct {
	Heading heading.Tracker
	Grid    *gridmap.Grid
	Cursor  gridmap.Point
	Speed   int // percent
}

// NewState puts the cursor at the grid center.
func NewState(g *gridmap.Grid, speed int) *State {
	return &State{
		Grid:   g,
		Cursor: g.Center(),
		Speed:  speed,
	}
}

// Move steps the cursor and marks the new cell visited.
func (s *State) Move(d gridmap.Direction) {
	s.Cursor = s.Cursor.Step(d)
	s.Grid.Mark(s.Cursor, gridmap.Visited)
}

// MarkHere marks the cell under the cursor visited.
func (s *State) MarkHere() {
	s.Grid.Mark(s.Cursor, gridmap.Visited)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
