package physics

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/magsim/internal/magnet"
)

// Joint rigidly attaches Other to Host.
type Joint struct {
	ID          magnet.JointID
	Host, Other magnet.BodyID
	BreakForce  float64 // zero never breaks
	BreakTorque float64

	// Force and Torque are the constraint loads measured on the last step.
	Force, Torque float64

	relPos mgl64.Vec3
	relRot mgl64.Quat
}

// Connect creates a fixed joint holding the current relative pose. It
// returns zero when either body is missing.
func (e *Engine) Connect(host, other magnet.BodyID, breakForce, breakTorque float64) magnet.JointID {
	hb, ok := e.world.Body(host)
	if !ok {
		return 0
	}
	ob, ok := e.world.Body(other)
	if !ok || host == other {
		return 0
	}
	inv := hb.Orientation.Inverse()

	e.next++
	j := &Joint{
		ID:          e.next,
		Host:        host,
		Other:       other,
		BreakForce:  breakForce,
		BreakTorque: breakTorque,
		relPos:      inv.Rotate(ob.Position.Sub(hb.Position)),
		relRot:      inv.Mul(ob.Orientation),
	}
	e.joints[j.ID] = j
	e.order = append(e.order, j.ID)
	if e.logger != nil {
		e.logger.Printf("physics: joint %d connects %s to %s", j.ID, other, host)
	}
	return j.ID
}

// Connected reports whether the joint exists and both its bodies are alive.
func (e *Engine) Connected(id magnet.JointID) bool {
	j, ok := e.joints[id]
	if !ok {
		return false
	}
	return e.world.Alive(j.Host) && e.world.Alive(j.Other)
}

// Disconnect removes a joint. It reports whether the joint existed.
func (e *Engine) Disconnect(id magnet.JointID) bool {
	if _, ok := e.joints[id]; !ok {
		return false
	}
	e.remove(id)
	return true
}

// Joint returns a joint by id.
func (e *Engine) Joint(id magnet.JointID) (*Joint, bool) {
	j, ok := e.joints[id]
	return j, ok
}

// Joints returns the live joints in creation order.
func (e *Engine) Joints() []*Joint {
	out := make([]*Joint, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.joints[id])
	}
	return out
}

func (e *Engine) NumJoints() int { return len(e.joints) }

// Broken lists the joints that broke on the last step.
func (e *Engine) Broken() []magnet.JointID { return e.broken }

func (e *Engine) remove(id magnet.JointID) {
	delete(e.joints, id)
	if i := slices.Index(e.order, id); i >= 0 {
		e.order = slices.Delete(e.order, i, i+1)
	}
}

func (e *Engine) dropDead() {
	for _, id := range slices.Clone(e.order) {
		if !e.Connected(id) {
			e.remove(id)
		}
	}
}

func (e *Engine) solveJoints(dt float64) {
	for _, id := range slices.Clone(e.order) {
		j := e.joints[id]
		hb, ok1 := e.world.Body(j.Host)
		ob, ok2 := e.world.Body(j.Other)
		if !ok1 || !ok2 {
			e.remove(id)
			continue
		}
		if !e.solve(j, hb, ob, dt) {
			e.remove(id)
			e.broken = append(e.broken, id)
			if e.logger != nil {
				e.logger.Printf("physics: joint %d broke (force %.1f, torque %.1f)", id, j.Force, j.Torque)
			}
		}
	}
}

// solve applies the velocity and pose correction for one joint. It reports
// false when a threshold is exceeded, leaving both bodies untouched.
func (e *Engine) solve(j *Joint, hb, ob *magnet.Body, dt float64) bool {
	wh, wo := invMass(hb), invMass(ob)
	ih, io := invInertia(hb), invInertia(ob)
	if wh+wo == 0 {
		return true
	}

	arm := hb.Orientation.Rotate(j.relPos)
	dv := ob.Velocity.Sub(hb.Velocity.Add(hb.AngularVelocity.Cross(arm)))
	impulse := dv.Mul(1 / (wh + wo))

	var angImpulse mgl64.Vec3
	if ih+io > 0 {
		angImpulse = ob.AngularVelocity.Sub(hb.AngularVelocity).Mul(1 / (ih + io))
	}

	j.Force = impulse.Len() / dt
	j.Torque = angImpulse.Len() / dt
	if j.BreakForce > 0 && j.Force > j.BreakForce {
		return false
	}
	if j.BreakTorque > 0 && j.Torque > j.BreakTorque {
		return false
	}

	hb.Velocity = hb.Velocity.Add(impulse.Mul(wh))
	ob.Velocity = ob.Velocity.Sub(impulse.Mul(wo))
	hb.AngularVelocity = hb.AngularVelocity.Add(angImpulse.Mul(ih))
	ob.AngularVelocity = ob.AngularVelocity.Sub(angImpulse.Mul(io))

	drift := ob.Position.Sub(hb.Position).Sub(arm)
	hb.Position = hb.Position.Add(drift.Mul(wh / (wh + wo)))
	ob.Position = ob.Position.Sub(drift.Mul(wo / (wh + wo)))
	ob.Orientation = hb.Orientation.Mul(j.relRot).Normalize()
	return true
}
