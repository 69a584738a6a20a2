// Package llg integrates the Landau-Lifshitz-Gilbert equation for a stack
// of exchange-coupled macrospins.
//
// Each layer obeys
//
//	dm/dt = -γ'/(1+α²) · [ m×H + α·m×(m×H) ]
//
// with γ' = 2.211e5 m/(A·s) and H the layer's effective field (A/m):
// applied field, Oersted drive, uniaxial anisotropy, diagonal demagnetization
// and bilinear/biquadratic interlayer exchange with the adjacent layers.
//
// Two step orderings are offered. [Sequential], the default, steps each layer
// on its own with both neighbours frozen at their previous-step vectors for
// all Runge-Kutta stages. [Synchronized] steps all 3N components together.
//
// Options.Tolerance enables error-controlled substeps inside every window
// step for steppers with an embedded estimate (rk45).
//
//	solver, _ := llg.NewSolver(stack, llg.DefaultOptions())
//	traj, err := solver.Run(ctx, m0, llg.Window{Field: h, Drive: drive, Duration: 5e-9, Steps: 5000})
package llg
