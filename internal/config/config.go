package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.02
	DefaultDuration  = 10.0
	DefaultCount     = 2
	DefaultSpacing   = 1.0
	DefaultSoftening = 0.1
	DefaultPull      = 80.0
	DefaultPush      = 60.0
	DefaultGunRange  = 25.0

	DefaultWallAnchor = "wall"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Vec is a 3-vector written as a YAML flow sequence.
type Vec [3]float64

func (v Vec) Vec3() mgl64.Vec3 { return mgl64.Vec3(v) }

// IsZero lets omitempty drop unset vectors.
func (v Vec) IsZero() bool { return v == Vec{} }

type Config struct {
	Scene       string        `yaml:"scene"`
	Integrator  string        `yaml:"integrator"`
	Controller  string        `yaml:"controller"`
	Rule        string        `yaml:"rule"`
	Dt          float64       `yaml:"dt"`
	Duration    float64       `yaml:"duration"`
	Seed        int64         `yaml:"seed"`
	RecordEvery int           `yaml:"record_every"`
	Layout      LayoutConfig  `yaml:"layout"`
	Solver      SolverConfig  `yaml:"solver"`
	Physics     PhysicsConfig `yaml:"physics"`
	Gun         GunConfig     `yaml:"gun"`
	Wall        WallConfig    `yaml:"wall"`
	Bodies      []BodyConfig  `yaml:"bodies,omitempty"`
	Metrics     []string      `yaml:"metrics,omitempty"`
}

// LayoutConfig parameterises the generated scenes.
type LayoutConfig struct {
	Count   int     `yaml:"count"`
	Spacing float64 `yaml:"spacing"`
	Speed   float64 `yaml:"speed"`
	Spread  float64 `yaml:"spread"`
}

type SolverConfig struct {
	K               float64 `yaml:"k"`
	Power           float64 `yaml:"power"`
	MinEpsilon      float64 `yaml:"min_epsilon"`
	NearRadius      float64 `yaml:"near_radius"`
	NearMinFactor   float64 `yaml:"near_min_factor"`
	Damping         float64 `yaml:"damping"`
	HorizontalOnly  bool    `yaml:"horizontal_only"`
	Up              Vec     `yaml:"up,flow"`
	MaxForcePerPair float64 `yaml:"max_force"`
	UseSnap         bool    `yaml:"use_snap"`
	SnapDistance    float64 `yaml:"snap_distance"`
	SnapMode        string  `yaml:"snap_mode"`
	SnapPullForce   float64 `yaml:"snap_pull_force"`
	BreakForce      float64 `yaml:"break_force"`
	BreakTorque     float64 `yaml:"break_torque"`
	Apply           string  `yaml:"apply"`
	ForceMode       string  `yaml:"force_mode"`
}

type PhysicsConfig struct {
	Gravity     Vec     `yaml:"gravity,flow"`
	GravityMag  float64 `yaml:"gravity_magnitude"`
	LinearDrag  float64 `yaml:"linear_drag"`
	AngularDrag float64 `yaml:"angular_drag"`
}

type GunConfig struct {
	Origin       Vec          `yaml:"origin,flow"`
	Aim          Vec          `yaml:"aim,flow"`
	Mode         string       `yaml:"mode"`
	BlueOnly     bool         `yaml:"blue_only"`
	PullForce    float64      `yaml:"pull_force"`
	PushForce    float64      `yaml:"push_force"`
	SameTypePush bool         `yaml:"same_type_push"`
	MaxDistance  float64      `yaml:"max_distance"`
	Fire         [][2]float64 `yaml:"fire,flow"`
}

// WallConfig describes a magnetic box surface and the kinematic body its
// joints attach to.
type WallConfig struct {
	Center        Vec     `yaml:"center,flow"`
	HalfExtents   Vec     `yaml:"half_extents,flow"`
	Anchor        string  `yaml:"anchor"`
	Mask          *uint32 `yaml:"mask,omitempty"`
	MaxRange      float64 `yaml:"max_range"`
	PullStrength  float64 `yaml:"pull_strength"`
	Damping       float64 `yaml:"damping"`
	MaxPullSpeed  float64 `yaml:"max_pull_speed"`
	UseSnap       bool    `yaml:"use_snap"`
	SnapDistance  float64 `yaml:"snap_distance"`
	SurfaceOffset float64 `yaml:"surface_offset"`
	SnapJoint     bool    `yaml:"snap_joint"`
	BreakForce    float64 `yaml:"break_force"`
	BreakTorque   float64 `yaml:"break_torque"`
	Align         bool    `yaml:"align"`
}

type BodyConfig struct {
	Name            string       `yaml:"name"`
	Mass            float64      `yaml:"mass"`
	Inertia         float64      `yaml:"inertia,omitempty"`
	Position        Vec          `yaml:"position,flow"`
	Velocity        Vec          `yaml:"velocity,flow,omitempty"`
	AngularVelocity Vec          `yaml:"angular_velocity,flow,omitempty"`
	Kinematic       bool         `yaml:"kinematic,omitempty"`
	Poles           []PoleConfig `yaml:"poles"`
}

type PoleConfig struct {
	Offset       Vec      `yaml:"offset,flow,omitempty"`
	Strength     float64  `yaml:"strength"`
	Polarity     float64  `yaml:"polarity"`
	Type         int      `yaml:"type,omitempty"`
	Softening    *float64 `yaml:"softening,omitempty"`
	Range        float64  `yaml:"range,omitempty"`
	Layer        uint8    `yaml:"layer,omitempty"`
	Mask         *uint32  `yaml:"mask,omitempty"`
	Disabled     bool     `yaml:"disabled,omitempty"`
	SnapDistance float64  `yaml:"snap_distance,omitempty"`
	BreakForce   float64  `yaml:"break_force,omitempty"`
	BreakTorque  float64  `yaml:"break_torque,omitempty"`
}

func DefaultSolverConfig() SolverConfig {
	p := magnet.DefaultParams()
	return SolverConfig{
		K:               p.K,
		Power:           p.Power,
		MinEpsilon:      p.MinEpsilon,
		NearRadius:      p.NearRadius,
		NearMinFactor:   p.NearMinFactor,
		Damping:         p.Damping,
		HorizontalOnly:  p.HorizontalOnly,
		Up:              Vec(p.Up),
		MaxForcePerPair: p.MaxForcePerPair,
		UseSnap:         p.UseSnap,
		SnapDistance:    p.SnapDistance,
		SnapMode:        p.SnapMode.String(),
		SnapPullForce:   p.SnapPullForce,
		BreakForce:      p.BreakForce,
		BreakTorque:     p.BreakTorque,
		Apply:           p.Apply.String(),
		ForceMode:       p.ForceMode.String(),
	}
}

func DefaultConfig() *Config {
	return &Config{
		Scene:       "pair",
		Integrator:  "semi_implicit",
		Controller:  "none",
		Rule:        "polarity",
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		RecordEvery: 1,
		Layout: LayoutConfig{
			Count:   DefaultCount,
			Spacing: DefaultSpacing,
		},
		Solver: DefaultSolverConfig(),
		Gun: GunConfig{
			Aim:          Vec{0, 0, 1},
			Mode:         "blue",
			BlueOnly:     true,
			PullForce:    DefaultPull,
			PushForce:    DefaultPush,
			SameTypePush: true,
			MaxDistance:  DefaultGunRange,
		},
		Wall: WallConfig{
			HalfExtents:   Vec{2, 1, 0.1},
			Anchor:        DefaultWallAnchor,
			MaxRange:      3,
			PullStrength:  60,
			Damping:       4,
			MaxPullSpeed:  25,
			UseSnap:       true,
			SnapDistance:  0.08,
			SurfaceOffset: 0.01,
			SnapJoint:     true,
			BreakForce:    1200,
			BreakTorque:   1200,
			Align:         true,
		},
		Metrics: []string{"kinetic_energy", "peak_force", "joints"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be tweaked without leaking.
func (c *Config) Clone() *Config {
	out := *c
	out.Metrics = append([]string(nil), c.Metrics...)
	out.Gun.Fire = append([][2]float64(nil), c.Gun.Fire...)
	if c.Wall.Mask != nil {
		mask := *c.Wall.Mask
		out.Wall.Mask = &mask
	}
	if c.Bodies != nil {
		out.Bodies = make([]BodyConfig, len(c.Bodies))
		for i, b := range c.Bodies {
			b.Poles = append([]PoleConfig(nil), b.Poles...)
			out.Bodies[i] = b
		}
	}
	return &out
}

// Params converts the solver section into validated solver parameters.
func (c *Config) Params() (magnet.Params, error) {
	s := c.Solver
	p := magnet.Params{
		K:               s.K,
		Power:           s.Power,
		MinEpsilon:      s.MinEpsilon,
		NearRadius:      s.NearRadius,
		NearMinFactor:   s.NearMinFactor,
		Damping:         s.Damping,
		HorizontalOnly:  s.HorizontalOnly,
		Up:              s.Up.Vec3(),
		MaxForcePerPair: s.MaxForcePerPair,
		UseSnap:         s.UseSnap,
		SnapDistance:    s.SnapDistance,
		SnapPullForce:   s.SnapPullForce,
		BreakForce:      s.BreakForce,
		BreakTorque:     s.BreakTorque,
	}
	var err error
	if p.SnapMode, err = magnet.ParseSnapMode(s.SnapMode); err != nil {
		return p, err
	}
	if p.Apply, err = magnet.ParseApplyMode(s.Apply); err != nil {
		return p, err
	}
	if p.ForceMode, err = magnet.ParseForceMode(s.ForceMode); err != nil {
		return p, err
	}
	if p.Rule, err = magnet.RuleByName(c.Rule); err != nil {
		return p, fmt.Errorf("%w: %w", magnet.ErrInvalidParams, err)
	}
	return p, p.Validate()
}

// Validate fails fast on anything a run could not start with.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalid, c.Duration)
	}
	if c.RecordEvery < 0 {
		return fmt.Errorf("%w: record_every must not be negative", ErrInvalid)
	}
	if c.Layout.Count < 0 {
		return fmt.Errorf("%w: layout count must not be negative", ErrInvalid)
	}
	if _, err := c.Params(); err != nil {
		return fmt.Errorf("%w: solver: %w", ErrInvalid, err)
	}
	seen := make(map[string]bool, len(c.Bodies))
	for i, b := range c.Bodies {
		if b.Name == "" {
			return fmt.Errorf("%w: body %d has no name", ErrInvalid, i)
		}
		if seen[b.Name] {
			return fmt.Errorf("%w: duplicate body name %q", ErrInvalid, b.Name)
		}
		seen[b.Name] = true
	}
	if len(c.Bodies) > 0 {
		if _, err := BuildWorld(c.Bodies); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return nil
}

// BuildWorld creates a world holding the configured bodies and poles.
func BuildWorld(bodies []BodyConfig) (*magnet.World, error) {
	w := magnet.NewWorld()
	for _, bc := range bodies {
		b := magnet.NewBody(bc.Name, bc.Mass)
		if bc.Inertia > 0 {
			b.Inertia = bc.Inertia
		}
		b.Position = bc.Position.Vec3()
		b.Velocity = bc.Velocity.Vec3()
		b.AngularVelocity = bc.AngularVelocity.Vec3()
		b.Kinematic = bc.Kinematic

		id, err := w.AddValidBody(b)
		if err != nil {
			return nil, err
		}
		for i, pc := range bc.Poles {
			if _, err := w.AddPole(pc.Pole(id)); err != nil {
				return nil, fmt.Errorf("body %q pole %d: %w", bc.Name, i, err)
			}
		}
	}
	return w, nil
}

// Pole converts the pole settings for a body handle.
func (pc PoleConfig) Pole(body magnet.BodyID) magnet.Pole {
	p := magnet.NewPole(body, pc.Strength, pc.Polarity)
	p.Offset = pc.Offset.Vec3()
	p.Type = pc.Type
	p.Softening = DefaultSoftening
	if pc.Softening != nil {
		p.Softening = *pc.Softening
	}
	p.Range = pc.Range
	p.Layer = pc.Layer
	if pc.Mask != nil {
		p.Mask = *pc.Mask
	}
	p.Enabled = !pc.Disabled
	p.SnapDistance = pc.SnapDistance
	p.BreakForce = pc.BreakForce
	p.BreakTorque = pc.BreakTorque
	return p
}
