// Package dynamo runs magnet worlds forward in time.
//
// A [Simulator] owns one world, the pairwise [magnet.Solver] and the
// [physics.Engine] that hosts it. Every fixed tick it applies controllers,
// lets the solver hand its forces and joint requests to the engine, advances
// the engine, then feeds metrics and observers and records a [Frame].
//
// # Example
//
//	w := magnet.NewWorld()
//	solver, _ := magnet.NewSolver(magnet.DefaultParams())
//	eng := physics.NewEngine(w, nil)
//	sim := dynamo.New(w, solver, eng)
//	result, _ := sim.Run(ctx, dynamo.DefaultConfig())
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe and the world must not be mutated
// while a tick runs. For parallel runs use [Ensemble], which builds an
// independent world per run.
package dynamo
