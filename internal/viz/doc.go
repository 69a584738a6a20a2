// Package viz renders sweep results in the terminal: lipgloss styles shared
// with the live monitor, asciigraph line plots of the resistance, PIMM peak
// and rectified-voltage curves, and a braille projection of magnetization
// trajectories on the unit sphere.
package viz
