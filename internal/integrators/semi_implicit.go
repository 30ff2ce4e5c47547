package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
)

// SemiImplicit (symplectic Euler) updates velocities first and moves with the
// new velocity. It keeps orbiting and oscillating pairs from gaining energy,
// which the explicit scheme does at fixed dt.
type SemiImplicit struct{}

func NewSemiImplicit() *SemiImplicit {
	return &SemiImplicit{}
}

func (s *SemiImplicit) Name() string { return "semi_implicit" }

func (s *SemiImplicit) Integrate(b *magnet.Body, linAcc, angAcc mgl64.Vec3, dt float64) {
	b.Velocity = b.Velocity.Add(linAcc.Mul(dt))
	b.AngularVelocity = b.AngularVelocity.Add(angAcc.Mul(dt))
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	b.Orientation = rotate(b.Orientation, b.AngularVelocity, dt)
}
