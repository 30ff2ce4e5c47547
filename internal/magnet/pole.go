package magnet

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// AllLayers is the interaction mask accepting every layer.
const AllLayers = ^uint32(0)

// MaxLayer is the highest layer index a pole may sit on.
const MaxLayer = 31

// Pole is a point on a body carrying magnetic strength.
type Pole struct {
	Body      BodyID
	Offset    mgl64.Vec3 // body-local position
	Strength  float64
	Polarity  float64 // sign decides like/unlike under PolarityRule
	Type      int     // decides like/unlike under TypeRule
	Softening float64 // minimum distance used by the force law
	Range     float64 // 0 means unbounded
	Layer     uint8
	Mask      uint32 // layers this pole interacts with
	Enabled   bool

	// Per-pole snap overrides; zero falls back to the solver parameters.
	SnapDistance float64
	BreakForce   float64
	BreakTorque  float64
}

// NewPole returns an enabled pole at the body origin interacting with all
// layers.
func NewPole(body BodyID, strength, polarity float64) Pole {
	return Pole{
		Body:      body,
		Strength:  strength,
		Polarity:  polarity,
		Softening: 0.1,
		Mask:      AllLayers,
		Enabled:   true,
	}
}

// CanInteract applies the layer masks in both directions.
func (p *Pole) CanInteract(other *Pole) bool {
	if p.Mask&(1<<other.Layer) == 0 {
		return false
	}
	return other.Mask&(1<<p.Layer) != 0
}

// InRange reports whether separation r is within both poles' ranges.
func (p *Pole) InRange(other *Pole, r float64) bool {
	if p.Range > 0 && r > p.Range {
		return false
	}
	return other.Range <= 0 || r <= other.Range
}

func (p *Pole) validate() error {
	switch {
	case p.Strength < 0:
		return fmt.Errorf("%w: strength must be non-negative, got %g", ErrInvalidPole, p.Strength)
	case p.Softening < 0:
		return fmt.Errorf("%w: softening must be non-negative, got %g", ErrInvalidPole, p.Softening)
	case p.Range < 0:
		return fmt.Errorf("%w: range must be non-negative, got %g", ErrInvalidPole, p.Range)
	case p.Layer > MaxLayer:
		return fmt.Errorf("%w: layer %d above %d", ErrInvalidPole, p.Layer, MaxLayer)
	case p.SnapDistance < 0 || p.BreakForce < 0 || p.BreakTorque < 0:
		return fmt.Errorf("%w: snap overrides must be non-negative", ErrInvalidPole)
	}
	return nil
}
