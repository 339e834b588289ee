// Package dynamo provides core primitives for integrating the crystallizer
// equations.
//
// The package defines the fundamental interfaces and types shared by the
// integrators and the population balance solver:
//
//   - [State]: vector representing the discretized system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Integrator]: fixed-step integrator interface
//   - [AdaptiveIntegrator]: embedded-pair integrator with error control
//   - [Config]: tolerances and step budget for one integration
//   - [Warning]: a non-fatal diagnostic surfaced alongside a result
//
// # Example
//
//	sys := pbe.NewSystem(...)
//	integ := integrators.NewRK45()
//	x, stats, err := integrators.Integrate(ctx, sys, integ, x0, 0, 10, dynamo.DefaultConfig(), nil)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT thread-safe. Independent runs
// must each own their integrator.
package dynamo
