package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const DefaultConfigFile = "crawler.json"

// Config holds the crawler configuration
type Config struct {
	Servo     ServoConfig     `json:"servo"`
	Sonar     SonarConfig     `json:"sonar"`
	Display   DisplayConfig   `json:"display"`
	Phone     PhoneConfig     `json:"phone"`
	Audio     AudioConfig     `json:"audio"`
	Camera    CameraConfig    `json:"camera"`
	Map       MapConfig       `json:"map"`
	Control   ControlConfig   `json:"control"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// ServoConfig holds the servo bus and per-joint calibration
type ServoConfig struct {
	Port        string      `json:"port"`
	Calibration Calibration `json:"calibration,omitempty"`
}

// SonarConfig holds the HC-SR04 pins
type SonarConfig struct {
	TriggerPin string `json:"trigger_pin"`
	EchoPin    string `json:"echo_pin"`
	TimeoutMs  int    `json:"timeout_ms"`
}

// DisplayConfig holds the needle display location
type DisplayConfig struct {
	I2CBus  string `json:"i2c_bus"` // "" picks the first bus
	Address uint16 `json:"address"`
}

// PhoneConfig holds the Bluetooth target
type PhoneConfig struct {
	Address     string `json:"address"`
	ScanSeconds int    `json:"scan_seconds"`
}

// AudioConfig holds the alert sound
type AudioConfig struct {
	AlertClip string `json:"alert_clip"`
	Volume    int    `json:"volume"`
}

// CameraConfig holds the camera device and where pictures go
type CameraConfig struct {
	Device     string `json:"device"`
	PictureDir string `json:"picture_dir"`
}

// MapConfig holds the grid file and size
type MapConfig struct {
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ControlConfig holds the control loop tuning
type ControlConfig struct {
	AlertDistance        float64 `json:"alert_distance"`
	Speed                int     `json:"speed"`
	EvadeSteps           int     `json:"evade_steps"`
	TeleopTurnDegrees    float64 `json:"teleop_turn_degrees"`
	SettleMs             int     `json:"settle_ms"`
	DebounceMs           int     `json:"debounce_ms"`
	RecalibrationSeconds int     `json:"recalibration_seconds"`
	RecalibrationPauseMs int     `json:"recalibration_pause_ms"`
	InitialBehavior      string  `json:"initial_behavior"` // "mapping" or "phone"
	IdleTickMs           int     `json:"idle_tick_ms"`     // 0 waits for a key every tick
}

// TelemetryConfig holds the optional outputs; empty values disable them
type TelemetryConfig struct {
	MQTTBroker   string `json:"mqtt_broker,omitempty"`
	MQTTTopic    string `json:"mqtt_topic,omitempty"`
	MQTTClientID string `json:"mqtt_client_id,omitempty"`
	HTTPAddr     string `json:"http_addr,omitempty"`
}

// DefaultConfig returns a config with every tunable at its default
func DefaultConfig() *Config {
	return &Config{
		Sonar: SonarConfig{
			TriggerPin: "GPIO27",
			EchoPin:    "GPIO22",
			TimeoutMs:  20,
		},
		Display: DisplayConfig{
			Address: 0x3C,
		},
		Phone: PhoneConfig{
			ScanSeconds: 3,
		},
		Audio: AudioConfig{
			AlertClip: "sounds/sign.wav",
			Volume:    100,
		},
		Camera: CameraConfig{
			Device:     "/dev/video0",
			PictureDir: ".",
		},
		Map: MapConfig{
			File:   "room_map.json",
			Width:  20,
			Height: 20,
		},
		Control: ControlConfig{
			AlertDistance:        15,
			Speed:                100,
			EvadeSteps:           3,
			TeleopTurnDegrees:    90,
			SettleMs:             200,
			DebounceMs:           500,
			RecalibrationSeconds: 5,
			RecalibrationPauseMs: 1000,
			InitialBehavior:      "mapping",
		},
		Telemetry: TelemetryConfig{
			MQTTTopic:    "crawler/state",
			MQTTClientID: "crawler",
		},
	}
}

// Validate checks that all values are in range
func (c *Config) Validate() error {
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		return fmt.Errorf("map size must be positive, got %dx%d", c.Map.Width, c.Map.Height)
	}
	if c.Control.AlertDistance < 0 {
		return fmt.Errorf("alert_distance must not be negative, got %f", c.Control.AlertDistance)
	}
	if c.Control.Speed < 1 || c.Control.Speed > 100 {
		return fmt.Errorf("speed must be 1-100, got %d", c.Control.Speed)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume must be 0-100, got %d", c.Audio.Volume)
	}
	if c.Control.EvadeSteps < 1 {
		return fmt.Errorf("evade_steps must be at least 1, got %d", c.Control.EvadeSteps)
	}
	if c.Control.IdleTickMs < 0 {
		return fmt.Errorf("idle_tick_ms must not be negative, got %d", c.Control.IdleTickMs)
	}
	switch c.Control.InitialBehavior {
	case "mapping", "phone":
	default:
		return fmt.Errorf("initial_behavior must be \"mapping\" or \"phone\", got %q", c.Control.InitialBehavior)
	}
	return nil
}

// HasServos returns true if the servo bus is configured and calibrated
func (c *Config) HasServos() bool {
	return c.Servo.Port != "" && c.Servo.Calibration.Complete()
}

// Millis converts a millisecond setting to a duration
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Keys missing from the file keep their defaults; explicit zeros stay zero
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	return ConfigExistsAt(DefaultConfigFile)
}

// ConfigExistsAt returns true if the config file at path exists
func ConfigExistsAt(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
