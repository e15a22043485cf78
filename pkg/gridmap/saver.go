package gridmap

import (
	"context"
	"log/slog"
	"sync"
)

// Saver persists grids on a background goroutine so the control loop does
// not wait on the disk. Only the latest snapshot is kept; a failed write is
// logged and the next snapshot tries again.
type Saver struct {
	path    string
	pending chan *Grid

	mu      sync.Mutex
	lastErr error
	saves   int
}

// NewSaver creates a saver writing to path. Call Run to start it.
func NewSaver(path string) *Saver {
	return &Saver{
		path:    path,
		pending: make(chan *Grid, 1),
	}
}

// Save queues a copy of g, replacing any snapshot not yet written.
func (s *Saver) Save(g *Grid) {
	snap, err := g.Clone()
	if err != nil {
		slog.Error("map snapshot failed", "err", err)
		return
	}
	select {
	case s.pending <- snap:
	default:
		// Drop the stale snapshot, keep the new one
		select {
		case <-s.pending:
		default:
		}
		s.pending <- snap
	}
}

// Run writes queued snapshots until ctx is cancelled, then writes whatever
// is still pending and returns.
func (s *Saver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			select {
			case g := <-s.pending:
				s.write(g)
			default:
			}
			return
		case g := <-s.pending:
			s.write(g)
		}
	}
}

// Err returns the result of the most recent write.
func (s *Saver) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Saves returns how many snapshots were written successfully.
func (s *Saver) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Saver) write(g *Grid) {
	err := Save(g, s.path)
	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.saves++
	}
	s.mu.Unlock()
	if err != nil {
		slog.Warn("map save failed, will retry next tick", "path", s.path, "err", err)
	}
}

// SyncSaver writes on the caller's goroutine. Errors are logged, never returned.
type SyncSaver struct {
	Path string
}

// Save writes g immediately.
func (s SyncSaver) Save(g *Grid) {
	if err := Save(g, s.Path); err != nil {
		slog.Warn("map save failed, will retry next tick", "path", s.Path, "err", err)
	}
}
