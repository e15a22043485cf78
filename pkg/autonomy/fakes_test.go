package autonomy

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gwillem/crawler/pkg/robot"
)

type call struct {
	motion robot.Motion
	steps  int
	speed  int
}

type fakeActuator struct {
	calls []call
	err   error
}

func (a *fakeActuator) Do(_ context.Context, m robot.Motion, steps, speed int) error {
	a.calls = append(a.calls, call{m, steps, speed})
	return a.err
}

func (a *fakeActuator) motions() []robot.Motion {
	out := make([]robot.Motion, len(a.calls))
	for i, c := range a.calls {
		out[i] = c.motion
	}
	return out
}

var errDevice = errors.New("device unplugged")

// scriptedRanger returns readings in order, then repeats the last one.
type scriptedRanger struct {
	readings []float64
	err      error
	n        int
}

func (r *scriptedRanger) Read(context.Context) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	i := r.n
	if i >= len(r.readings) {
		i = len(r.readings) - 1
	}
	r.n++
	return r.readings[i], nil
}

type scriptedScanner struct {
	present []bool
	err     error
	n       int
	asked   []string
}

func (s *scriptedScanner) Scan(_ context.Context, address string) (bool, error) {
	s.asked = append(s.asked, address)
	if s.err != nil {
		return false, s.err
	}
	i := s.n
	if i >= len(s.present) {
		i = len(s.present) - 1
	}
	s.n++
	return s.present[i], nil
}

type fakeNeedle struct {
	angles []float64
}

func (n *fakeNeedle) Render(angle float64) error {
	n.angles = append(n.angles, angle)
	return nil
}

type fakeAudio struct {
	mu    sync.Mutex
	clips []string
	err   error
}

func (a *fakeAudio) Play(clip string, _ int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clips = append(a.clips, clip)
	return a.err
}

func (a *fakeAudio) played() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.clips...)
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) {
	s.slept = append(s.slept, d)
}
