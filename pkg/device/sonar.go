// Package device has the concrete peripherals behind the robot interfaces:
// ultrasonic ranger, needle display, Bluetooth scanner, audio and camera.
package device

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/gwillem/crawler/pkg/robot"
)

// Speed of sound used for ranging, in cm/s.
const soundSpeed = 34000.0

// Sonar is an HC-SR04 style ultrasonic ranger on two GPIO pins.
type Sonar struct {
	mu      sync.Mutex
	trig    gpio.PinIO
	echo    gpio.PinIO
	timeout time.Duration
}

// NewSonar claims the trigger and echo pins by name, e.g. "GPIO27".
func NewSonar(trigger, echo string, timeout time.Duration) (*Sonar, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	t := gpioreg.ByName(trigger)
	if t == nil {
		return nil, fmt.Errorf("trigger pin %s not found", trigger)
	}
	e := gpioreg.ByName(echo)
	if e == nil {
		return nil, fmt.Errorf("echo pin %s not found", echo)
	}
	if err := t.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("trigger pin %s: %w", trigger, err)
	}
	if err := e.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("echo pin %s: %w", echo, err)
	}
	if timeout <= 0 {
		timeout = 20 * time.Millisecond
	}
	return &Sonar{trig: t, echo: e, timeout: timeout}, nil
}

// Read fires one ping and returns the distance in cm, or robot.NoEcho
// when the echo never started or never ended.
func (s *Sonar) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return robot.NoEcho, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.trig.Out(gpio.High); err != nil {
		return robot.NoEcho, fmt.Errorf("trigger: %w", err)
	}
	time.Sleep(10 * time.Microsecond)
	if err := s.trig.Out(gpio.Low); err != nil {
		return robot.NoEcho, fmt.Errorf("trigger: %w", err)
	}

	deadline := time.Now().Add(s.timeout)
	for s.echo.Read() == gpio.Low {
		if !s.echo.WaitForEdge(time.Until(deadline)) {
			return robot.NoEcho, nil
		}
	}
	start := time.Now()
	for s.echo.Read() == gpio.High {
		if !s.echo.WaitForEdge(time.Until(deadline)) {
			return robot.NoEcho, nil
		}
	}
	return Centimeters(time.Since(start)), nil
}

// Centimeters converts an echo pulse width to a distance, rounded to
// two decimals.
func Centimeters(pulse time.Duration) float64 {
	cm := pulse.Seconds() * soundSpeed / 2
	return math.Round(cm*100) / 100
}
