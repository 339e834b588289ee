// Package pbe integrates a one-dimensional population balance for a
// crystallizer: a size distribution growing and nucleating while a solute
// mass balance, temperature and antisolvent profiles drive it.
//
// Three discretizations share one contract and are picked once per run:
//
//   - [CentralDifference]: fixed grid, centred face fluxes
//   - [HighResolution]: fixed grid, van Leer limited upwind face fluxes
//   - [MovingPivot]: pivots advected by the growth law itself
//
// The solver stops exactly at every output time and every profile
// breakpoint, so a step change in temperature or antisolvent feed is never
// stepped over.
//
// # Units
//
// Any consistent unit system works. The solver tracks the absolute number
// density n = M·N and the solute mass, so dilution by antisolvent needs no
// extra term. Reported distributions and concentrations are per unit medium
// mass.
//
// # Example
//
//	scheme, _ := pbe.ParseScheme("high-resolution")
//	res, err := pbe.New(scheme).Run(ctx, problem, []float64{0, 50, 100})
package pbe
