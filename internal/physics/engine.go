package physics

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/integrators"
	"github.com/san-kum/magsim/internal/magnet"
)

type accum struct {
	lin mgl64.Vec3
	ang mgl64.Vec3
}

// Engine integrates the bodies of one world.
type Engine struct {
	world  *magnet.World
	integ  integrators.Integrator
	logger *log.Logger

	gravity     mgl64.Vec3
	LinearDrag  float64
	AngularDrag float64

	acc    map[magnet.BodyID]accum
	joints map[magnet.JointID]*Joint
	order  []magnet.JointID
	next   magnet.JointID
	broken []magnet.JointID
}

// NewEngine returns an engine without gravity. A nil integrator selects
// semi-implicit Euler.
func NewEngine(w *magnet.World, integ integrators.Integrator) *Engine {
	if integ == nil {
		integ = integrators.NewSemiImplicit()
	}
	return &Engine{
		world:  w,
		integ:  integ,
		acc:    make(map[magnet.BodyID]accum),
		joints: make(map[magnet.JointID]*Joint),
	}
}

func (e *Engine) World() *magnet.World { return e.world }

func (e *Engine) Integrator() integrators.Integrator { return e.integ }

func (e *Engine) SetIntegrator(integ integrators.Integrator) {
	if integ != nil {
		e.integ = integ
	}
}

// SetLogger enables tracing of joint creation and breakage.
func (e *Engine) SetLogger(l *log.Logger) { e.logger = l }

// SetGravity sets gravity from a direction and a magnitude. A zero direction
// turns gravity off.
func (e *Engine) SetGravity(dir mgl64.Vec3, magnitude float64) {
	if dir.LenSqr() == 0 {
		e.gravity = mgl64.Vec3{}
		return
	}
	e.gravity = dir.Normalize().Mul(magnitude)
}

func (e *Engine) Gravity() mgl64.Vec3 { return e.gravity }

// AddForce accumulates a force through the center of mass.
func (e *Engine) AddForce(id magnet.BodyID, force mgl64.Vec3, mode magnet.ForceMode) {
	b, ok := e.dynamic(id)
	if !ok {
		return
	}
	a := e.acc[id]
	if mode == magnet.ModeAcceleration {
		a.lin = a.lin.Add(force)
	} else {
		a.lin = a.lin.Add(force.Mul(1 / b.Mass))
	}
	e.acc[id] = a
}

// AddForceAtPosition accumulates a force and the torque it exerts about the
// center of mass.
func (e *Engine) AddForceAtPosition(id magnet.BodyID, force, point mgl64.Vec3, mode magnet.ForceMode) {
	b, ok := e.dynamic(id)
	if !ok {
		return
	}
	torque := point.Sub(b.Position).Cross(force)
	a := e.acc[id]
	if mode == magnet.ModeAcceleration {
		a.lin = a.lin.Add(force)
		a.ang = a.ang.Add(torque)
	} else {
		a.lin = a.lin.Add(force.Mul(1 / b.Mass))
		a.ang = a.ang.Add(torque.Mul(1 / b.Inertia))
	}
	e.acc[id] = a
}

// AddTorque accumulates a pure torque.
func (e *Engine) AddTorque(id magnet.BodyID, torque mgl64.Vec3, mode magnet.ForceMode) {
	b, ok := e.dynamic(id)
	if !ok {
		return
	}
	a := e.acc[id]
	if mode == magnet.ModeAcceleration {
		a.ang = a.ang.Add(torque)
	} else {
		a.ang = a.ang.Add(torque.Mul(1 / b.Inertia))
	}
	e.acc[id] = a
}

// Acceleration returns the linear acceleration accumulated for a body since
// the last step, excluding gravity and drag.
func (e *Engine) Acceleration(id magnet.BodyID) mgl64.Vec3 { return e.acc[id].lin }

// Step advances the world by dt and clears the accumulators. Joints that
// broke during the step are available from Broken until the next call.
func (e *Engine) Step(dt float64) {
	e.broken = e.broken[:0]
	e.dropDead()

	e.world.EachBody(func(id magnet.BodyID, b *magnet.Body) {
		if b.Kinematic || !b.Enabled {
			return
		}
		a := e.acc[id]
		lin := a.lin.Add(e.gravity).Sub(b.Velocity.Mul(e.LinearDrag))
		ang := a.ang.Sub(b.AngularVelocity.Mul(e.AngularDrag))
		e.integ.Integrate(b, lin, ang, dt)
	})
	clear(e.acc)

	e.solveJoints(dt)
}

// KineticEnergy sums translational and rotational energy of dynamic bodies.
func (e *Engine) KineticEnergy() float64 {
	var ke float64
	e.world.EachBody(func(_ magnet.BodyID, b *magnet.Body) {
		if b.Kinematic {
			return
		}
		ke += 0.5*b.Mass*b.Velocity.LenSqr() + 0.5*b.Inertia*b.AngularVelocity.LenSqr()
	})
	return ke
}

func (e *Engine) dynamic(id magnet.BodyID) (*magnet.Body, bool) {
	b, ok := e.world.Body(id)
	if !ok || b.Kinematic || !b.Enabled {
		return nil, false
	}
	return b, true
}

func invMass(b *magnet.Body) float64 {
	if b.Kinematic || !b.Enabled || math.IsInf(b.Mass, 1) {
		return 0
	}
	return 1 / b.Mass
}

func invInertia(b *magnet.Body) float64 {
	if b.Kinematic || !b.Enabled {
		return 0
	}
	return 1 / b.Inertia
}
