// Package control provides actuators that act on a magnet world each tick.
//
// Controllers implement [dynamo.Controller] and run before the pairwise
// solver, so any force they add is integrated in the same step:
//
//   - [Gun]: aimable magnetic gun that locks and pulls opposite-type
//     targets and pushes same-type ones
//   - [Manual]: constant user force on one body, for interactive views
//   - [None]: does nothing
//
// # Usage
//
//	gun := control.NewGun(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 1})
//	gun.Firing = true
//	sim.AddController(gun)
package control
