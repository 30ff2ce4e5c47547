package magnet

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is a rigid entity carrying poles. Position is the center of mass.
type Body struct {
	Name            string
	Mass            float64
	Inertia         float64 // scalar moment of inertia about the center of mass
	Position        mgl64.Vec3
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Orientation     mgl64.Quat
	Kinematic       bool // moved only by the caller, never by forces
	Enabled         bool

	poles []PoleID
}

// NewBody returns an enabled body at the origin with a unit-sphere inertia
// estimate for the given mass.
func NewBody(name string, mass float64) Body {
	return Body{
		Name:        name,
		Mass:        mass,
		Inertia:     SphereInertia(mass, 0.5),
		Orientation: mgl64.QuatIdent(),
		Enabled:     true,
	}
}

// SphereInertia returns the moment of inertia of a solid sphere.
func SphereInertia(mass, radius float64) float64 {
	return 0.4 * mass * radius * radius
}

// Poles returns the handles of the poles attached to the body.
func (b *Body) Poles() []PoleID {
	out := make([]PoleID, len(b.poles))
	copy(out, b.poles)
	return out
}

// WorldPoint maps a body-local offset to world space.
func (b *Body) WorldPoint(local mgl64.Vec3) mgl64.Vec3 {
	return b.Position.Add(b.Orientation.Rotate(local))
}

// PointVelocity returns the velocity of a world-space point rigidly attached
// to the body.
func (b *Body) PointVelocity(p mgl64.Vec3) mgl64.Vec3 {
	return b.Velocity.Add(b.AngularVelocity.Cross(p.Sub(b.Position)))
}

// Valid reports whether the body state holds only finite numbers.
func (b *Body) Valid() bool {
	for _, v := range [...]mgl64.Vec3{b.Position, b.Velocity, b.AngularVelocity} {
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return true
}

func (b *Body) validate() error {
	if b.Kinematic {
		return nil
	}
	if !(b.Mass > 0) || math.IsInf(b.Mass, 0) {
		return fmt.Errorf("%w: %q mass must be positive, got %g", ErrInvalidBody, b.Name, b.Mass)
	}
	if !(b.Inertia > 0) || math.IsInf(b.Inertia, 0) {
		return fmt.Errorf("%w: %q inertia must be positive, got %g", ErrInvalidBody, b.Name, b.Inertia)
	}
	return nil
}
