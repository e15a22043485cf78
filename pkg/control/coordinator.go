package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gwillem/crawler/pkg/autonomy"
	"github.com/gwillem/crawler/pkg/gridmap"
	"github.com/gwillem/crawler/pkg/robot"
)

// Snapshot is the state after one tick.
type Snapshot struct {
	Time        time.Time     `json:"time"`
	Tick        int           `json:"tick"`
	Supervision string        `json:"supervision"`
	Behavior    string        `json:"behavior"`
	CameraOn    bool          `json:"camera_on"`
	Heading     float64       `json:"heading"`
	Cursor      gridmap.Point `json:"cursor"`
	Speed       int           `json:"speed"`
	Key         string        `json:"key,omitempty"`
	Decision    string        `json:"decision,omitempty"`
	Distance    float64       `json:"distance"`
	DistanceOK  bool          `json:"distance_ok"`
	PhoneFound  bool          `json:"phone_found"`
	Visited     int           `json:"visited"`

	// Grid is a copy of the map, safe to read from another goroutine.
	Grid *gridmap.Grid `json:"-"`
}

// Sink receives a snapshot after every tick. Publish must not block.
type Sink interface {
	Publish(s Snapshot)
}

// MapSaver persists the grid. Failures are its own business.
type MapSaver interface {
	Save(g *gridmap.Grid)
}

// Devices are the peripherals the coordinator drives. Camera may be nil.
type Devices struct {
	autonomy.Devices
	Camera robot.Camera
}

// Coordinator owns the control loop and all control state.
type Coordinator struct {
	cfg    Config
	dev    Devices
	in     Input
	saver  MapSaver
	engine *autonomy.Engine
	recal  *autonomy.Recalibrator

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)

	mu      sync.RWMutex
	mode    Mode
	state   *autonomy.State
	tick    int
	running bool
	sinks   []Sink
	stateCh chan Snapshot
	logCh   chan string
}

// NewCoordinator creates a coordinator driving grid g.
func NewCoordinator(cfg Config, dev Devices, g *gridmap.Grid, in Input, saver MapSaver) *Coordinator {
	c := &Coordinator{
		cfg:     cfg,
		dev:     dev,
		in:      in,
		saver:   saver,
		engine:  autonomy.NewEngine(cfg.Engine, dev.Devices),
		recal:   autonomy.NewRecalibrator(cfg.RecalInterval, cfg.RecalPause),
		Now:     time.Now,
		Sleep:   autonomy.Sleep,
		mode:    InitialMode(cfg.InitialBehavior),
		state:   autonomy.NewState(g, cfg.Speed),
		stateCh: make(chan Snapshot, 1),
		logCh:   make(chan string, 32),
	}
	c.engine.Sleep = func(ctx context.Context, d time.Duration) { c.Sleep(ctx, d) }
	c.recal.Sleep = func(ctx context.Context, d time.Duration) { c.Sleep(ctx, d) }
	c.recal.Now = func() time.Time { return c.Now() }
	return c
}

// AddSink registers a snapshot consumer. Call before Run.
func (c *Coordinator) AddSink(s Sink) {
	c.sinks = append(c.sinks, s)
}

// States returns a channel that receives the latest snapshot.
func (c *Coordinator) States() <-chan Snapshot {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Coordinator) Logs() <-chan string {
	return c.logCh
}

// Mode returns the current mode.
func (c *Coordinator) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Coordinator) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	slog.Info(text)
	msg := fmt.Sprintf("[%s] %s", c.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Run ticks until ctx is cancelled, then stops the legs and waits for
// background sounds.
func (c *Coordinator) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.running = true
	c.mu.Unlock()

	// The crawler stands on its start cell
	c.state.MarkHere()
	c.recal.Reset()
	c.log("Crawler started, manual control ON, %s selected", c.mode.Behavior)

	for {
		if err := ctx.Err(); err != nil {
			c.shutdown()
			return err
		}
		c.Tick(ctx)
	}
}

// Tick runs one pass of the loop: an autonomous step when autonomous, one
// input event, and a map save.
func (c *Coordinator) Tick(ctx context.Context) Snapshot {
	mode := c.Mode()

	var rep *autonomy.Report
	if mode.Supervision == Autonomous {
		r := c.engine.Step(ctx, mode.Behavior, c.state)
		rep = &r
		if c.recal.Check(ctx, c.dev.Actuator, c.state.Speed) {
			c.log("Recalibration stop")
		}
	}

	key, err := c.in.Next(ctx, c.inputTimeout(mode))
	switch {
	case err == nil:
		c.Dispatch(ctx, key)
	case errors.Is(err, ErrNoEvent):
	default:
		if ctx.Err() == nil {
			slog.Warn("input failed", "err", err)
		}
	}

	c.saver.Save(c.state.Grid)

	snap := c.snapshot(key, rep)
	c.sendState(snap)
	for _, s := range c.sinks {
		s.Publish(snap)
	}
	return snap
}

// inputTimeout keeps autonomy moving without a key when an idle tick is
// configured. Under manual control the loop always waits for a key.
func (c *Coordinator) inputTimeout(m Mode) time.Duration {
	if m.Supervision == Autonomous {
		return c.cfg.IdleTick
	}
	return 0
}

// Dispatch handles one key. Movement keys work in every mode.
func (c *Coordinator) Dispatch(ctx context.Context, key string) {
	ev, ok := ParseKey(key)
	if !ok {
		return
	}

	switch {
	case ev.Action.IsMove():
		c.teleop(ctx, ev.Action)
	case ev.Action == SetSpeed:
		c.state.Speed = ev.Speed
		c.log("Speed set to %d%%", ev.Speed)
	case ev.Action.IsToggle():
		c.mu.Lock()
		next, effects := c.mode.Apply(ev.Action)
		c.mode = next
		c.mu.Unlock()
		c.perform(effects)
		c.Sleep(ctx, c.cfg.Debounce)
	}
}

func (c *Coordinator) teleop(ctx context.Context, a Action) {
	var (
		motion robot.Motion
		dir    gridmap.Direction
		turn   float64
	)
	switch a {
	case MoveForward:
		motion, dir = robot.Forward, gridmap.Forward
	case MoveBackward:
		motion, dir = robot.Backward, gridmap.Backward
	case TurnLeft:
		motion, dir, turn = robot.TurnLeft, gridmap.Left, c.cfg.TeleopTurnDegrees
	case TurnRight:
		motion, dir, turn = robot.TurnRight, gridmap.Right, -c.cfg.TeleopTurnDegrees
	default:
		return
	}

	if err := c.dev.Actuator.Do(ctx, motion, 1, c.state.Speed); err != nil {
		c.log("Warning: %s failed: %v", motion, err)
		return
	}
	c.state.Move(dir)
	if turn != 0 {
		c.state.Heading.Turn(turn)
	}
}

func (c *Coordinator) perform(effects []Effect) {
	for _, e := range effects {
		switch e.Kind {
		case Announce:
			c.log("%s", e.Message)
		case StartCamera:
			c.camera("start", func(cam robot.Camera) error { return cam.Start() })
		case StopCamera:
			c.camera("stop", func(cam robot.Camera) error { return cam.Stop() })
		case CapturePicture:
			name := PictureName(c.cfg.PictureDir, c.Now())
			if c.camera("capture", func(cam robot.Camera) error { return cam.Capture(name) }) {
				c.log("Picture taken: %s", name)
			}
		}
	}
}

// camera runs op against the camera, logging failures. It reports success.
func (c *Coordinator) camera(op string, fn func(robot.Camera) error) bool {
	if c.dev.Camera == nil {
		c.log("Warning: camera %s: no camera", op)
		return false
	}
	if err := fn(c.dev.Camera); err != nil {
		c.log("Warning: camera %s: %v", op, err)
		return false
	}
	return true
}

// PictureName is pic_<unix seconds>.jpg inside dir.
func PictureName(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("pic_%d.jpg", t.Unix()))
}

func (c *Coordinator) snapshot(key string, rep *autonomy.Report) Snapshot {
	c.mu.Lock()
	c.tick++
	tick, mode := c.tick, c.mode
	c.mu.Unlock()

	s := Snapshot{
		Time:        c.Now(),
		Tick:        tick,
		Supervision: mode.Supervision.String(),
		Behavior:    mode.Behavior.String(),
		CameraOn:    mode.CameraOn,
		Heading:     c.state.Heading.Current(),
		Cursor:      c.state.Cursor,
		Speed:       c.state.Speed,
		Key:         key,
		Visited:     c.state.Grid.Count(gridmap.Visited),
	}
	if rep != nil {
		s.Decision = rep.Decision.String()
		s.Distance = rep.Distance.Value
		s.DistanceOK = rep.Distance.Valid()
		s.PhoneFound = rep.Presence.Found
	}
	if g, err := c.state.Grid.Clone(); err == nil {
		s.Grid = g
	}
	return s
}

func (c *Coordinator) sendState(s Snapshot) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Coordinator) shutdown() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err := c.dev.Actuator.Do(context.Background(), robot.Stop, 1, c.state.Speed); err != nil {
		c.log("Warning: final stop failed: %v", err)
	}
	c.engine.Wait()
	c.saver.Save(c.state.Grid)
	c.log("Crawler stopped")
}
