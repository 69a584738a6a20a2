// Package dynamo provides core simulation primitives for the magnetization
// solver.
//
// The package defines the fundamental interfaces and types for numerical
// integration of ordinary differential equations (ODEs):
//
//   - [State]: flat vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step numerical integrator interface
//   - [Metric]: per-step observer reducing a trajectory to one number
//   - [Pool]: bounded fan-out of independent tasks with ordered result slots
//
// Errors are classified with errors.Is against the sentinels in errors.go;
// [ConfigError], [SimulationError] and [WorkerError] carry context.
//
// # Example
//
//	pool := dynamo.NewPool(0)
//	errs := pool.Run(ctx, len(freqs), func(ctx context.Context, i int) error {
//	    return simulate(ctx, freqs[i])
//	})
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe. Tasks run by a
// [Pool] must build their own.
package dynamo
