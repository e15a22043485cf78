package robot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// FrameTime is how long one gait frame takes at 100% speed.
const FrameTime = 80 * time.Millisecond

// Crawler is the four-legged body: twelve servos on one bus.
type Crawler struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
	enabled     bool
}

// NewCrawler opens the servo bus and prepares the crawler.
func NewCrawler(port string, cal Calibration) (*Crawler, error) {
	if !cal.Complete() {
		return nil, fmt.Errorf("calibration incomplete: %d of %d joints", len(cal), len(AllJoints()))
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ids := cal.ServoIDs()
	group := feetech.NewServoGroupByIDs(bus, ids...)

	return &Crawler{
		bus:         bus,
		group:       group,
		calibration: cal,
	}, nil
}

// Close relaxes the servos and closes the bus.
func (c *Crawler) Close() error {
	if c.enabled {
		if err := c.Disable(context.Background()); err != nil {
			slog.Warn("disable servos on close", "err", err)
		}
	}
	return c.bus.Close()
}

// Enable enables torque on all servos.
func (c *Crawler) Enable(ctx context.Context) error {
	if err := c.group.EnableAll(ctx); err != nil {
		return err
	}
	c.enabled = true
	return nil
}

// Disable disables torque on all servos.
func (c *Crawler) Disable(ctx context.Context) error {
	if err := c.group.DisableAll(ctx); err != nil {
		return err
	}
	c.enabled = false
	return nil
}

// ReadPose reads current normalized positions from all joints.
func (c *Crawler) ReadPose(ctx context.Context) (Frame, error) {
	rawPositions, err := c.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	pose := make(Frame, len(rawPositions))
	for id, raw := range rawPositions {
		name, cal, ok := c.calibration.ByID(id)
		if !ok {
			continue
		}
		pose[name] = cal.Normalize(raw)
	}

	return pose, nil
}

// WritePose writes normalized targets to the joints in f.
func (c *Crawler) WritePose(ctx context.Context, f Frame) error {
	rawPositions := make(feetech.PositionMap, len(f))
	for name, norm := range f {
		cal, ok := c.calibration[name]
		if !ok {
			continue
		}
		rawPositions[cal.ID] = cal.Denormalize(norm)
	}

	if err := c.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}

	return nil
}

// Do plays the gait for m steps times at the given speed percentage.
func (c *Crawler) Do(ctx context.Context, m Motion, steps, speed int) error {
	if !c.enabled {
		if err := c.Enable(ctx); err != nil {
			return fmt.Errorf("enable servos: %w", err)
		}
	}
	if steps < 1 {
		steps = 1
	}

	frames := Gait(m)
	delay := FrameDelay(speed)
	for i := 0; i < steps; i++ {
		for _, f := range frames {
			if err := c.WritePose(ctx, f); err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}

// FrameDelay scales FrameTime by the speed percentage, clamped to 1-100.
func FrameDelay(speed int) time.Duration {
	if speed < 1 {
		speed = 1
	}
	if speed > 100 {
		speed = 100
	}
	return FrameTime * 100 / time.Duration(speed)
}
