package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
)

// Integrator advances one body by dt given its linear and angular
// accelerations for the step.
type Integrator interface {
	Name() string
	Integrate(b *magnet.Body, linAcc, angAcc mgl64.Vec3, dt float64)
}

// Euler is the explicit scheme: positions move with the velocity at the start
// of the step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) Integrate(b *magnet.Body, linAcc, angAcc mgl64.Vec3, dt float64) {
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	b.Orientation = rotate(b.Orientation, b.AngularVelocity, dt)
	b.Velocity = b.Velocity.Add(linAcc.Mul(dt))
	b.AngularVelocity = b.AngularVelocity.Add(angAcc.Mul(dt))
}

// rotate integrates an orientation under angular velocity w for dt.
func rotate(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	if w.LenSqr() == 0 {
		return q
	}
	spin := mgl64.Quat{W: 0, V: w}.Mul(q).Scale(0.5 * dt)
	return q.Add(spin).Normalize()
}
