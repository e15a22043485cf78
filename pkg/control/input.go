package control

import (
	"context"
	"errors"
	"time"
)

// ErrNoEvent is returned by Input.Next when the wait timed out.
var ErrNoEvent = errors.New("no input event")

// Input produces one key per call.
type Input interface {
	// Next blocks until a key arrives, ctx is done, or timeout elapses.
	// A zero timeout waits for a key indefinitely.
	Next(ctx context.Context, timeout time.Duration) (string, error)
}

// ChanInput is an Input fed from another goroutine, typically the TUI.
type ChanInput struct {
	keys chan string
}

// NewChanInput creates an input that buffers up to size keys.
func NewChanInput(size int) *ChanInput {
	if size < 1 {
		size = 1
	}
	return &ChanInput{keys: make(chan string, size)}
}

// Send queues a key. It never blocks; a full buffer drops the key and
// returns false.
func (in *ChanInput) Send(key string) bool {
	select {
	case in.keys <- key:
		return true
	default:
		return false
	}
}

// Next implements Input.
func (in *ChanInput) Next(ctx context.Context, timeout time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case k := <-in.keys:
		return k, nil
	case <-expired:
		return "", ErrNoEvent
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
