package game

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	TickRate     = 60 // simulation steps per second
	TickDuration = time.Second / TickRate
	Step         = 1.0 / float64(TickRate)
)

// ErrInvalidTuning is returned when a tuning set cannot drive a run
var ErrInvalidTuning = errors.New("invalid tuning")

// SpawnWeights are relative odds for each spawn kind. All zero disables spawning.
type SpawnWeights struct {
	Crawler     float64 `yaml:"crawler"`
	Flyer       float64 `yaml:"flyer"`
	Filth       float64 `yaml:"filth"`
	Collectible float64 `yaml:"collectible"`
}

func (w SpawnWeights) total() float64 {
	return w.Crawler + w.Flyer + w.Filth + w.Collectible
}

// Tuning holds every physics, spawn and timing constant of a run
type Tuning struct {
	FieldW  float64 `yaml:"field_w"`
	FieldH  float64 `yaml:"field_h"`
	GroundY float64 `yaml:"ground_y"` // top of the ground band

	PlayerW      float64 `yaml:"player_w"`
	PlayerH      float64 `yaml:"player_h"`
	PlayerStartX float64 `yaml:"player_start_x"`

	Gravity      float64 `yaml:"gravity"`       // px/s²
	JumpVelocity float64 `yaml:"jump_velocity"` // px/s, upward
	Accel        float64 `yaml:"accel"`         // px/s²
	Friction     float64 `yaml:"friction"`      // px/s² deceleration with no input
	MaxSpeed     float64 `yaml:"max_speed"`     // px/s
	WorldSpeed   float64 `yaml:"world_speed"`   // base leftward scroll, px/s

	Duration       float64 `yaml:"duration"`        // seconds of running time
	Countdown      float64 `yaml:"countdown"`       // seconds before spawns/collisions start
	MaxHP          int     `yaml:"max_hp"`
	InvulnDuration float64 `yaml:"invuln_duration"` // seconds after a hit
	KnockbackX     float64 `yaml:"knockback_x"`
	KnockbackY     float64 `yaml:"knockback_y"`

	StompTolerance float64 `yaml:"stomp_tolerance"` // px the previous bottom may sink below an enemy top
	StompBounce    float64 `yaml:"stomp_bounce"`
	StompGrace     float64 `yaml:"stomp_grace"`
	StompScore     int     `yaml:"stomp_score"`

	SlowFactor   float64 `yaml:"slow_factor"`
	SlowDuration float64 `yaml:"slow_duration"`

	CollectScore  int `yaml:"collect_score"`
	AffinityBonus int `yaml:"affinity_bonus"`

	SpawnInterval   float64      `yaml:"spawn_interval"`
	SpawnWeights    SpawnWeights `yaml:"spawn_weights"`
	SpawnMargin     float64      `yaml:"spawn_margin"` // distance past the right edge
	SafeZone        float64      `yaml:"safe_zone"`    // no-spawn distance ahead of the player
	MaxEnemies      int          `yaml:"max_enemies"`
	MaxCollectibles int          `yaml:"max_collectibles"`
	PurgeMargin     float64      `yaml:"purge_margin"`

	MaxFrameDelta   time.Duration `yaml:"max_frame_delta"`
	MaxCatchUpSteps int           `yaml:"max_catch_up_steps"`
	ResultDelay     time.Duration `yaml:"result_delay"`
	BlinkPeriod     time.Duration `yaml:"blink_period"`
}

// DefaultTuning returns the canonical tuning set
func DefaultTuning() Tuning {
	return Tuning{
		FieldW:  640,
		FieldH:  480,
		GroundY: 384,

		PlayerW:      36,
		PlayerH:      36,
		PlayerStartX: 80,

		Gravity:      1700,
		JumpVelocity: 620,
		Accel:        1400,
		Friction:     1800,
		MaxSpeed:     240,
		WorldSpeed:   260,

		Duration:       20,
		Countdown:      3,
		MaxHP:          3,
		InvulnDuration: 1.2,
		KnockbackX:     220,
		KnockbackY:     260,

		StompTolerance: 8,
		StompBounce:    420,
		StompGrace:     0.25,
		StompScore:     5,

		SlowFactor:   0.4,
		SlowDuration: 0.8,

		CollectScore:  1,
		AffinityBonus: 2,

		SpawnInterval: 0.9,
		SpawnWeights: SpawnWeights{
			Crawler:     0.35,
			Flyer:       0.10,
			Filth:       0.30,
			Collectible: 0.25,
		},
		SpawnMargin:     40,
		SafeZone:        120,
		MaxEnemies:      12,
		MaxCollectibles: 12,
		PurgeMargin:     60,

		MaxFrameDelta:   250 * time.Millisecond,
		MaxCatchUpSteps: 5,
		ResultDelay:     800 * time.Millisecond,
		BlinkPeriod:     100 * time.Millisecond,
	}
}

// Validate reports the first constant that would break a run
func (t Tuning) Validate() error {
	switch {
	case t.FieldW <= 0 || t.FieldH <= 0:
		return fmt.Errorf("%w: field size %vx%v", ErrInvalidTuning, t.FieldW, t.FieldH)
	case t.GroundY <= t.PlayerH || t.GroundY > t.FieldH:
		return fmt.Errorf("%w: ground_y %v", ErrInvalidTuning, t.GroundY)
	case t.PlayerW <= 0 || t.PlayerH <= 0 || t.PlayerW >= t.FieldW:
		return fmt.Errorf("%w: player size %vx%v", ErrInvalidTuning, t.PlayerW, t.PlayerH)
	case t.Duration <= 0:
		return fmt.Errorf("%w: duration %v", ErrInvalidTuning, t.Duration)
	case t.Countdown < 0:
		return fmt.Errorf("%w: countdown %v", ErrInvalidTuning, t.Countdown)
	case t.MaxHP < 1:
		return fmt.Errorf("%w: max_hp %d", ErrInvalidTuning, t.MaxHP)
	case t.SlowFactor <= 0 || t.SlowFactor > 1:
		return fmt.Errorf("%w: slow_factor %v", ErrInvalidTuning, t.SlowFactor)
	case t.SpawnWeights.total() > 0 && t.SpawnInterval <= 0:
		return fmt.Errorf("%w: spawn_interval %v", ErrInvalidTuning, t.SpawnInterval)
	case t.MaxEnemies < 1 || t.MaxCollectibles < 1:
		return fmt.Errorf("%w: population caps %d/%d", ErrInvalidTuning, t.MaxEnemies, t.MaxCollectibles)
	case t.MaxFrameDelta <= 0 || t.MaxCatchUpSteps < 1:
		return fmt.Errorf("%w: frame clamp %v/%d", ErrInvalidTuning, t.MaxFrameDelta, t.MaxCatchUpSteps)
	}
	return nil
}

// LoadTuning reads a YAML file over the defaults. Keys missing from the file keep their default.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// ticks converts seconds to whole simulation steps, rounding to nearest
func ticks(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(seconds*TickRate + 0.5)
}
