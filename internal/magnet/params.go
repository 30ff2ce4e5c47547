package magnet

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SnapMode selects what happens when attracting poles come within snap
// distance.
type SnapMode int

const (
	// SnapJoint connects the two bodies with a breakable fixed joint.
	SnapJoint SnapMode = iota
	// SnapPull replaces the force law by a constant pull.
	SnapPull
)

func (m SnapMode) String() string {
	if m == SnapPull {
		return "pull"
	}
	return "joint"
}

// ApplyMode selects where pair forces act on a body.
type ApplyMode int

const (
	// ApplyAtPole applies each pair force at the pole position, producing torque.
	ApplyAtPole ApplyMode = iota
	// ApplyAtCenter sums pair forces per body and applies the net force at the
	// center of mass, once per step.
	ApplyAtCenter
)

func (m ApplyMode) String() string {
	if m == ApplyAtCenter {
		return "center"
	}
	return "pole"
}

// ForceMode tells the host how to interpret a force.
type ForceMode int

const (
	// ModeForce divides by the body mass.
	ModeForce ForceMode = iota
	// ModeAcceleration ignores the body mass.
	ModeAcceleration
)

func (m ForceMode) String() string {
	if m == ModeAcceleration {
		return "acceleration"
	}
	return "force"
}

// Params tunes the force law and the snap transition.
type Params struct {
	K             float64 // global strength constant
	Power         float64 // distance exponent p in 1/r^p
	MinEpsilon    float64 // floor for the softening radius
	NearRadius    float64 // distance below which the force ramps down
	NearMinFactor float64 // smallest near-field scale factor, in [0, 1]
	Damping       float64 // relative velocity damping along the line of action

	HorizontalOnly bool
	Up             mgl64.Vec3

	MaxForcePerPair float64 // 0 means unlimited

	UseSnap       bool
	SnapDistance  float64
	SnapMode      SnapMode
	SnapPullForce float64
	BreakForce    float64 // 0 means unbreakable
	BreakTorque   float64

	Apply     ApplyMode
	ForceMode ForceMode
	Rule      Rule
}

func DefaultParams() Params {
	return Params{
		K:               5,
		Power:           2,
		MinEpsilon:      1e-4,
		NearRadius:      0.25,
		NearMinFactor:   0.2,
		Damping:         5,
		Up:              mgl64.Vec3{0, 1, 0},
		MaxForcePerPair: 200,
		UseSnap:         true,
		SnapDistance:    0.06,
		SnapMode:        SnapJoint,
		SnapPullForce:   15,
		BreakForce:      800,
		BreakTorque:     800,
		Apply:           ApplyAtPole,
		ForceMode:       ModeForce,
		Rule:            PolarityRule{},
	}
}

// Validate rejects parameters the per-step path cannot handle.
func (p Params) Validate() error {
	check := func(ok bool, field string, v float64) error {
		if ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return nil
		}
		return fmt.Errorf("%w: %s out of range (%g)", ErrInvalidParams, field, v)
	}
	for _, err := range []error{
		check(p.K >= 0, "k", p.K),
		check(p.Power > 0, "power", p.Power),
		check(p.MinEpsilon > 0, "min_epsilon", p.MinEpsilon),
		check(p.NearRadius > 0, "near_radius", p.NearRadius),
		check(p.NearMinFactor >= 0 && p.NearMinFactor <= 1, "near_min_factor", p.NearMinFactor),
		check(p.Damping >= 0, "damping", p.Damping),
		check(p.MaxForcePerPair >= 0, "max_force", p.MaxForcePerPair),
		check(p.SnapDistance >= 0, "snap_distance", p.SnapDistance),
		check(p.SnapPullForce >= 0, "snap_pull_force", p.SnapPullForce),
		check(p.BreakForce >= 0, "break_force", p.BreakForce),
		check(p.BreakTorque >= 0, "break_torque", p.BreakTorque),
	} {
		if err != nil {
			return err
		}
	}
	if p.HorizontalOnly && p.Up.LenSqr() < 1e-12 {
		return fmt.Errorf("%w: up vector must be non-zero", ErrInvalidParams)
	}
	if p.Rule == nil {
		return fmt.Errorf("%w: rule is required", ErrInvalidParams)
	}
	if p.SnapMode != SnapJoint && p.SnapMode != SnapPull {
		return fmt.Errorf("%w: unknown snap mode %d", ErrInvalidParams, p.SnapMode)
	}
	return nil
}

// GetParams exposes the continuous parameters for live tuning.
func (p *Params) GetParams() map[string]float64 {
	return map[string]float64{
		"k":          p.K,
		"power":      p.Power,
		"damping":    p.Damping,
		"nearRadius": p.NearRadius,
		"maxForce":   p.MaxForcePerPair,
		"snapDist":   p.SnapDistance,
	}
}

// SetParam updates one continuous parameter, refusing values Validate would
// reject.
func (p *Params) SetParam(name string, value float64) error {
	next := *p
	switch name {
	case "k":
		next.K = value
	case "power":
		next.Power = value
	case "damping":
		next.Damping = value
	case "nearRadius":
		next.NearRadius = value
	case "maxForce":
		next.MaxForcePerPair = value
	case "snapDist":
		next.SnapDistance = value
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParams, name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}

// ParseSnapMode accepts "joint" or "pull"; empty selects joint.
func ParseSnapMode(s string) (SnapMode, error) {
	switch s {
	case "", "joint":
		return SnapJoint, nil
	case "pull":
		return SnapPull, nil
	}
	return 0, fmt.Errorf("%w: unknown snap mode %q", ErrInvalidParams, s)
}

// ParseApplyMode accepts "pole" or "center"; empty selects pole.
func ParseApplyMode(s string) (ApplyMode, error) {
	switch s {
	case "", "pole":
		return ApplyAtPole, nil
	case "center":
		return ApplyAtCenter, nil
	}
	return 0, fmt.Errorf("%w: unknown apply mode %q", ErrInvalidParams, s)
}

// ParseForceMode accepts "force" or "acceleration"; empty selects force.
func ParseForceMode(s string) (ForceMode, error) {
	switch s {
	case "", "force":
		return ModeForce, nil
	case "acceleration":
		return ModeAcceleration, nil
	}
	return 0, fmt.Errorf("%w: unknown force mode %q", ErrInvalidParams, s)
}
