// Package analysis turns recorded runs into numbers and pictures.
//
//   - [Separation], [ClosingSpeed]: distance between two bodies over a run
//   - [PowerSpectrum], [DominantFrequency]: oscillation content of a signal
//   - [PhasePortrait]: separation against closing speed
//   - [LyapunovExponent]: sensitivity of a scene to a perturbed body
//   - [Sweep]: a solver parameter swept against a measured outcome
//
// # Oscillation
//
// A bound pair that never snaps oscillates about its equilibrium; the
// dominant frequency of its separation measures the stiffness of the law:
//
//	sep := analysis.Separation(result, "north", "south")
//	f := analysis.DominantFrequency(sep, dt*float64(cfg.RecordEvery))
package analysis
