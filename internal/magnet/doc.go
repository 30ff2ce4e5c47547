// Package magnet implements a pairwise magnetic force solver for rigid bodies.
//
// A [World] owns the bodies and poles taking part in a simulation. Each fixed
// step the [Solver] sweeps every unordered pole pair, evaluates a softened
// power-law force, damps it along the line of action and hands the result to
// a [Host], the rigid-body engine that integrates motion:
//
//   - [Pole]: a point on a body carrying strength, polarity and type
//   - [Body]: a rigid entity owning one or more poles
//   - [Rule]: decides whether a pole pair attracts, repels or ignores
//   - [Params]: force-law and snap tuning, validated up front
//   - [Report]: everything the solver decided during one step
//
// When two attracting poles come within snap distance the solver asks the
// host to connect their bodies with a breakable fixed joint. While the joint
// holds, no force is applied between the two bodies; once the host reports it
// broken the pair interacts freely again.
//
// # Example
//
//	w := magnet.NewWorld()
//	a := w.AddBody(magnet.NewBody("a", 1))
//	b := w.AddBody(magnet.NewBody("b", 1))
//	w.AddPole(magnet.NewPole(a, 1, +1))
//	w.AddPole(magnet.NewPole(b, 1, -1))
//	s, _ := magnet.NewSolver(magnet.DefaultParams())
//	rep := s.Step(w, engine)
//
// # Thread Safety
//
// A World and its Solver are single-threaded: mutate the world only between
// steps. Independent worlds may run on separate goroutines.
package magnet
