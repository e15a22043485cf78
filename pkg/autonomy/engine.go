package autonomy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gwillem/crawler/pkg/gridmap"
	"github.com/gwillem/crawler/pkg/robot"
)

// Kind selects an autonomous behavior.
type Kind int

const (
	Mapping Kind = iota
	PhoneFinding
)

func (k Kind) String() string {
	switch k {
	case Mapping:
		return "mapping"
	case PhoneFinding:
		return "phone finding"
	default:
		return "unknown"
	}
}

// Decision is what a step chose to do.
type Decision int

const (
	Hold    Decision = iota // no motion this tick
	Advance                 // step forward and mark the map
	Evade                   // obstacle ahead, turn away
	Search                  // target not seen, sweep by turning
)

func (d Decision) String() string {
	switch d {
	case Hold:
		return "hold"
	case Advance:
		return "advance"
	case Evade:
		return "evade"
	case Search:
		return "search"
	default:
		return "unknown"
	}
}

// EvadeDegrees is how far the heading moves for one evasive turn.
const EvadeDegrees = 90.0

// Decide applies the ranging gate. Without the target present the answer
// is always Search. An invalid distance holds still only when holdOnInvalid
// is set; otherwise it compares like any other value, and a negative
// reading is inside the alert distance.
func Decide(present bool, d Distance, alert float64, holdOnInvalid bool) Decision {
	if !present {
		return Search
	}
	if holdOnInvalid && !d.Valid() {
		return Hold
	}
	if d.Value <= alert {
		return Evade
	}
	return Advance
}

// Config tunes the engine.
type Config struct {
	AlertDistance float64
	EvadeSteps    int
	Settle        time.Duration
	PhoneAddress  string
	AlertClip     string
	AlertVolume   int
}

// Devices are the collaborators a step talks to. Needle and Audio may be nil.
type Devices struct {
	Actuator robot.Actuator
	Ranger   robot.Ranger
	Scanner  robot.PresenceScanner
	Needle   robot.Needle
	Audio    robot.Audio
}

// Report describes one step.
type Report struct {
	Kind     Kind
	Distance Distance
	Presence Presence
	Decision Decision
}

// behavior parameterizes the shared advance-or-evade step.
type behavior struct {
	present       func(ctx context.Context) Presence
	holdOnInvalid bool
	alertOnEvade  bool
	needle        bool
}

// Engine runs one step of the active behavior per call.
type Engine struct {
	cfg Config
	dev Devices

	// Sleep is replaced in tests.
	Sleep func(ctx context.Context, d time.Duration)

	bg sync.WaitGroup
}

// NewEngine creates an engine.
func NewEngine(cfg Config, dev Devices) *Engine {
	if cfg.EvadeSteps < 1 {
		cfg.EvadeSteps = 1
	}
	return &Engine{
		cfg:   cfg,
		dev:   dev,
		Sleep: Sleep,
	}
}

func (e *Engine) behavior(k Kind) behavior {
	if k == PhoneFinding {
		return behavior{
			present: func(ctx context.Context) Presence {
				return ScanPresence(ctx, e.dev.Scanner, e.cfg.PhoneAddress)
			},
			holdOnInvalid: true,
			alertOnEvade:  true,
			needle:        true,
		}
	}
	return behavior{
		present: func(context.Context) Presence { return Presence{Found: true} },
	}
}

// Step runs one tick of behavior k against st.
func (e *Engine) Step(ctx context.Context, k Kind, st *State) Report {
	b := e.behavior(k)

	p := b.present(ctx)
	d := ReadDistance(ctx, e.dev.Ranger)
	slog.Debug("autonomy step", "behavior", k, "distance", d.Value, "present", p.Found)

	if p.Found && b.needle {
		e.render(st.Heading.Current())
	}

	dec := Decide(p.Found, d, e.cfg.AlertDistance, b.holdOnInvalid)
	switch dec {
	case Hold:
		return Report{Kind: k, Distance: d, Presence: p, Decision: dec}
	case Advance:
		e.advance(ctx, st)
	case Evade:
		if b.alertOnEvade {
			e.alert()
		}
		e.evade(ctx, st)
	case Search:
		e.evade(ctx, st)
		if b.needle {
			e.render(st.Heading.Current())
		}
	}
	e.Sleep(ctx, e.cfg.Settle)

	return Report{Kind: k, Distance: d, Presence: p, Decision: dec}
}

// Wait blocks until background alert sounds have finished.
func (e *Engine) Wait() {
	e.bg.Wait()
}

func (e *Engine) advance(ctx context.Context, st *State) {
	if err := e.dev.Actuator.Do(ctx, robot.Forward, 1, st.Speed); err != nil {
		slog.Warn("forward step failed", "err", err)
		return
	}
	st.Move(gridmap.Forward)
}

func (e *Engine) evade(ctx context.Context, st *State) {
	if err := e.dev.Actuator.Do(ctx, robot.TurnLeftAngle, e.cfg.EvadeSteps, st.Speed); err != nil {
		slog.Warn("evasive turn failed", "err", err)
		return
	}
	st.Heading.Turn(EvadeDegrees)
}

func (e *Engine) render(angle float64) {
	if e.dev.Needle == nil {
		return
	}
	if err := e.dev.Needle.Render(angle); err != nil {
		slog.Warn("needle render failed", "err", err)
	}
}

// alert plays the alert clip in the background. Failures are logged only.
func (e *Engine) alert() {
	if e.dev.Audio == nil || e.cfg.AlertClip == "" {
		return
	}
	a, clip, vol := e.dev.Audio, e.cfg.AlertClip, e.cfg.AlertVolume
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		if err := a.Play(clip, vol); err != nil {
			slog.Warn("alert sound failed", "clip", clip, "err", err)
		}
	}()
}
