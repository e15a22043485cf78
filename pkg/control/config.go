package control

import (
	"time"

	"github.com/gwillem/crawler/pkg/autonomy"
	"github.com/gwillem/crawler/pkg/robot"
)

// Config tunes the coordinator.
type Config struct {
	Engine            autonomy.Config
	InitialBehavior   autonomy.Kind
	Speed             int
	TeleopTurnDegrees float64
	Debounce          time.Duration
	RecalInterval     time.Duration
	RecalPause        time.Duration
	IdleTick          time.Duration // 0 blocks on input every tick
	PictureDir        string
}

// ConfigFrom maps the file configuration onto the coordinator.
func ConfigFrom(rc *robot.Config) Config {
	behavior := autonomy.Mapping
	if rc.Control.InitialBehavior == "phone" {
		behavior = autonomy.PhoneFinding
	}
	return Config{
		Engine: autonomy.Config{
			AlertDistance: rc.Control.AlertDistance,
			EvadeSteps:    rc.Control.EvadeSteps,
			Settle:        robot.Millis(rc.Control.SettleMs),
			PhoneAddress:  rc.Phone.Address,
			AlertClip:     rc.Audio.AlertClip,
			AlertVolume:   rc.Audio.Volume,
		},
		InitialBehavior:   behavior,
		Speed:             rc.Control.Speed,
		TeleopTurnDegrees: rc.Control.TeleopTurnDegrees,
		Debounce:          robot.Millis(rc.Control.DebounceMs),
		RecalInterval:     time.Duration(rc.Control.RecalibrationSeconds) * time.Second,
		RecalPause:        robot.Millis(rc.Control.RecalibrationPauseMs),
		IdleTick:          robot.Millis(rc.Control.IdleTickMs),
		PictureDir:        rc.Camera.PictureDir,
	}
}
