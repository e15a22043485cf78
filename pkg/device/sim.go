package device

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/gwillem/crawler/pkg/robot"
)

// SimRoom is a pretend room for running without hardware. It is both the
// actuator and the ranger: walking forward closes in on the wall ahead and
// turning faces a new wall at a random distance.
type SimRoom struct {
	mu       sync.Mutex
	rng      *rand.Rand
	ahead    float64
	stepCm   float64
	stepTime time.Duration
}

// NewSimRoom creates a room seeded with seed. Each gait cycle takes
// stepTime at full speed.
func NewSimRoom(seed uint64, stepTime time.Duration) *SimRoom {
	r := &SimRoom{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		stepCm:   5,
		stepTime: stepTime,
	}
	r.ahead = r.wall()
	return r
}

func (r *SimRoom) wall() float64 {
	return 10 + r.rng.Float64()*110
}

// Do implements robot.Actuator.
func (r *SimRoom) Do(ctx context.Context, m robot.Motion, steps, speed int) error {
	if speed < 1 {
		speed = 1
	}
	d := r.stepTime * time.Duration(steps) * 100 / time.Duration(min(speed, 100))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	switch m {
	case robot.Forward:
		r.ahead -= r.stepCm * float64(steps)
	case robot.Backward:
		r.ahead += r.stepCm * float64(steps)
	case robot.TurnLeft, robot.TurnRight, robot.TurnLeftAngle:
		r.ahead = r.wall()
	}
	slog.Debug("sim actuator", "motion", m, "steps", steps, "speed", speed, "ahead", r.ahead)
	return nil
}

// Read implements robot.Ranger. One ping in twenty gets no echo.
func (r *SimRoom) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return robot.NoEcho, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rng.IntN(20) == 0 {
		return robot.NoEcho, nil
	}
	if r.ahead < 0 {
		return 0, nil
	}
	return r.ahead, nil
}

// SimScanner reports the phone present with a fixed probability.
type SimScanner struct {
	mu     sync.Mutex
	rng    *rand.Rand
	chance float64
}

// NewSimScanner creates a scanner that finds any address with probability chance.
func NewSimScanner(seed uint64, chance float64) *SimScanner {
	return &SimScanner{rng: rand.New(rand.NewPCG(seed, seed+1)), chance: chance}
}

// Scan implements robot.PresenceScanner.
func (s *SimScanner) Scan(ctx context.Context, address string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	found := s.rng.Float64() < s.chance
	slog.Debug("sim scan", "address", address, "found", found)
	return found, nil
}

// LogNeedle logs headings instead of drawing them.
type LogNeedle struct{}

func (LogNeedle) Render(angle float64) error {
	slog.Debug("needle", "angle", angle)
	return nil
}

// LogAudio logs clips instead of playing them.
type LogAudio struct{}

func (LogAudio) Play(clip string, volume int) error {
	slog.Info("sound", "clip", clip, "volume", volume)
	return nil
}

// SimCamera writes a grey test card for every picture.
type SimCamera struct {
	mu sync.Mutex
	on bool
}

func (c *SimCamera) Start() error {
	c.mu.Lock()
	c.on = true
	c.mu.Unlock()
	return nil
}

func (c *SimCamera) Stop() error {
	c.mu.Lock()
	c.on = false
	c.mu.Unlock()
	return nil
}

func (c *SimCamera) Capture(filename string) error {
	img := image.NewGray(image.Rect(0, 0, 160, 120))
	for y := 0; y < 120; y++ {
		for x := 0; x < 160; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
