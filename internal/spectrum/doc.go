// Package spectrum turns magnetization and resistance time series into
// measured quantities: the PIMM ferromagnetic-resonance spectrum and the
// rectified spin-diode voltage with its first two harmonics.
package spectrum
