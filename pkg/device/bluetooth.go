package device

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// Seen is a device heard during a scan.
type Seen struct {
	Address string
	Name    string
	RSSI    int16
}

// BLEScanner finds nearby Bluetooth LE devices by address.
type BLEScanner struct {
	mu      sync.Mutex
	adapter *bluetooth.Adapter
	window  time.Duration
}

// NewBLEScanner enables the default adapter. Each scan listens for at
// most window.
func NewBLEScanner(window time.Duration) (*BLEScanner, error) {
	a := bluetooth.DefaultAdapter
	if err := a.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth adapter: %w", err)
	}
	if window <= 0 {
		window = 3 * time.Second
	}
	return &BLEScanner{adapter: a, window: window}, nil
}

// SameAddress compares two MAC addresses ignoring case and surrounding space.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Scan implements robot.PresenceScanner. It returns as soon as address is
// heard, or false once the window closes.
func (s *BLEScanner) Scan(ctx context.Context, address string) (bool, error) {
	found := false
	_, err := s.listen(ctx, func(d Seen) bool {
		if SameAddress(d.Address, address) {
			found = true
		}
		return found
	})
	return found, err
}

// Discover lists every device heard in one window, strongest first.
func (s *BLEScanner) Discover(ctx context.Context) ([]Seen, error) {
	seen, err := s.listen(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Seen, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RSSI > out[j].RSSI })
	return out, nil
}

// listen scans until the window closes or done returns true. done runs
// under the result lock.
func (s *BLEScanner) listen(ctx context.Context, done func(Seen) bool) (map[string]Seen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.window)
	defer cancel()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
		case <-finished:
			return
		}
		// StopScan fails until the scan has actually started
		for s.adapter.StopScan() != nil {
			select {
			case <-finished:
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
	}()

	var mu sync.Mutex
	seen := map[string]Seen{}
	err := s.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		d := Seen{Address: r.Address.String(), Name: r.LocalName(), RSSI: r.RSSI}
		mu.Lock()
		defer mu.Unlock()
		seen[strings.ToUpper(d.Address)] = d
		if done != nil && done(d) {
			cancel()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bluetooth scan: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	return seen, nil
}
