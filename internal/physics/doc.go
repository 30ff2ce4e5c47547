// Package physics is the rigid-body host the magnet solver drives.
//
// [Engine] implements [magnet.Host] over a [magnet.World]. Forces and
// torques accumulate between steps; [Engine.Step] converts them to
// accelerations, adds gravity and drag, advances every dynamic body through
// a pluggable [integrators.Integrator], then enforces fixed joints.
//
// # Joints
//
// A fixed joint keeps the pose of its second body relative to the first as
// recorded by [Engine.Connect]. Each step the joint removes the relative
// velocity of the pair with an impulse split by inverse mass. The impulse
// divided by dt is the constraint force; when it exceeds a non-zero break
// threshold the joint is removed and the bodies continue freely.
//
//	w := magnet.NewWorld()
//	eng := physics.NewEngine(w, integrators.NewSemiImplicit())
//	eng.SetGravity(mgl64.Vec3{0, -1, 0}, 9.81)
//	solver.Step(w, eng)
//	eng.Step(0.02)
package physics
