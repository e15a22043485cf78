package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwillem/crawler/pkg/autonomy"
	"github.com/gwillem/crawler/pkg/control"
	"github.com/gwillem/crawler/pkg/device"
	"github.com/gwillem/crawler/pkg/robot"
)

// unavailable stands in for a peripheral that failed to open, so every
// call takes the degraded path instead of crashing the loop.
type unavailable struct {
	name string
	err  error
}

func (u unavailable) Read(context.Context) (float64, error) {
	return robot.NoEcho, fmt.Errorf("%s: %w", u.name, u.err)
}

func (u unavailable) Scan(context.Context, string) (bool, error) {
	return false, fmt.Errorf("%s: %w", u.name, u.err)
}

type hardware struct {
	devices control.Devices
	camera  *device.Camera // nil in simulation
	closers []func() error
}

func (h *hardware) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			slog.Warn("close device", "err", err)
		}
	}
}

func openSimulation() *hardware {
	seed := uint64(time.Now().UnixNano())
	room := device.NewSimRoom(seed, 4*robot.FrameTime)
	return &hardware{
		devices: control.Devices{
			Devices: autonomy.Devices{
				Actuator: room,
				Ranger:   room,
				Scanner:  device.NewSimScanner(seed, 0.5),
				Needle:   device.LogNeedle{},
				Audio:    device.LogAudio{},
			},
			Camera: &device.SimCamera{},
		},
	}
}

// openHardware opens every peripheral. The legs are required; anything
// else that fails is logged and replaced so the crawler still drives.
func openHardware(cfg *robot.Config) (*hardware, error) {
	if !cfg.HasServos() {
		return nil, errors.New("servos not configured, run 'crawler setup' first (or use --sim)")
	}
	h := &hardware{}

	crawler, err := robot.NewCrawler(cfg.Servo.Port, cfg.Servo.Calibration)
	if err != nil {
		return nil, fmt.Errorf("open crawler: %w", err)
	}
	h.closers = append(h.closers, crawler.Close)
	h.devices.Actuator = crawler

	sonar, err := device.NewSonar(cfg.Sonar.TriggerPin, cfg.Sonar.EchoPin, robot.Millis(cfg.Sonar.TimeoutMs))
	if err != nil {
		slog.Warn("sonar unavailable", "err", err)
		h.devices.Ranger = unavailable{"sonar", err}
	} else {
		h.devices.Ranger = sonar
	}

	if cfg.Phone.Address == "" {
		slog.Warn("no phone address configured, phone finding will only search")
	}
	scanner, err := device.NewBLEScanner(time.Duration(cfg.Phone.ScanSeconds) * time.Second)
	if err != nil {
		slog.Warn("bluetooth unavailable", "err", err)
		h.devices.Scanner = unavailable{"bluetooth", err}
	} else {
		h.devices.Scanner = scanner
	}

	needle, err := device.NewNeedleDisplay(cfg.Display.I2CBus, cfg.Display.Address)
	if err != nil {
		slog.Warn("needle display unavailable", "err", err)
	} else {
		h.devices.Needle = needle
		h.closers = append(h.closers, needle.Close)
	}

	h.devices.Audio = device.NewAudioPlayer()

	h.camera = device.NewCamera(cfg.Camera.Device)
	h.devices.Camera = h.camera
	h.closers = append(h.closers, h.camera.Stop)

	return h, nil
}
