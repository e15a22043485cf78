package autonomy

import (
	"context"
	"log/slog"
	"time"

	"github.com/gwillem/crawler/pkg/robot"
)

// Recalibrator forces a full stop at a fixed wall-clock interval so gait
// drift does not pile up.
type Recalibrator struct {
	interval time.Duration
	pause    time.Duration
	epoch    time.Time

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

// NewRecalibrator starts the interval now.
func NewRecalibrator(interval, pause time.Duration) *Recalibrator {
	r := &Recalibrator{
		interval: interval,
		pause:    pause,
		Now:      time.Now,
		Sleep:    Sleep,
	}
	r.epoch = r.Now()
	return r
}

// Reset restarts the interval from now.
func (r *Recalibrator) Reset() {
	r.epoch = r.Now()
}

// Due reports whether the interval has elapsed.
func (r *Recalibrator) Due() bool {
	return r.Now().Sub(r.epoch) >= r.interval
}

// Check stops the crawler, pauses and restarts the interval when it is due.
// It reports whether a stop was issued.
func (r *Recalibrator) Check(ctx context.Context, act robot.Actuator, speed int) bool {
	if !r.Due() {
		return false
	}
	if err := act.Do(ctx, robot.Stop, 1, speed); err != nil {
		slog.Warn("recalibration stop failed", "err", err)
	}
	r.Sleep(ctx, r.pause)
	r.Reset()
	return true
}
