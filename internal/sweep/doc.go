// Package sweep drives a stack through a stimulus grid.
//
// For every sweep point the driver runs one relaxation window with a short
// Oersted pulse (the PIMM branch) and then, for every spin-diode frequency,
// one RF-driven window seeded from the relaxed PIMM state (the VSD branch).
// Only the PIMM end state is carried to the next point, so RF excitation
// never leaks into the baseline.
//
// Pause and cancel requests are honoured between points. A cancel also
// aborts the point in flight, whose partial result is dropped.
package sweep
