package autonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gwillem/crawler/pkg/robot"
)

// Status tells a real reading apart from a fallback.
type Status int

const (
	OK       Status = iota
	Degraded        // the device failed; the value is a safe default
)

func (s Status) String() string {
	if s == Degraded {
		return "degraded"
	}
	return "ok"
}

// Distance is one ranging result.
type Distance struct {
	Value  float64
	Status Status
	Err    error
}

// Valid reports whether the reading is a usable, non-negative distance.
func (d Distance) Valid() bool {
	return d.Status == OK && d.Value >= 0
}

func (d Distance) String() string {
	if !d.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%.1f", d.Value)
}

// Presence is one presence-scan result.
type Presence struct {
	Found  bool
	Status Status
	Err    error
}

// ReadDistance reads the ranger. A failed read becomes a Degraded
// distance carrying the no-echo sentinel.
func ReadDistance(ctx context.Context, r robot.Ranger) Distance {
	v, err := r.Read(ctx)
	if err != nil {
		slog.Warn("ranging failed", "err", err)
		return Distance{Value: robot.NoEcho, Status: Degraded, Err: err}
	}
	return Distance{Value: v}
}

// ScanPresence scans for address. A failed scan counts as not present.
func ScanPresence(ctx context.Context, s robot.PresenceScanner, address string) Presence {
	found, err := s.Scan(ctx, address)
	if err != nil {
		slog.Warn("presence scan failed", "address", address, "err", err)
		return Presence{Found: false, Status: Degraded, Err: err}
	}
	return Presence{Found: found}
}
