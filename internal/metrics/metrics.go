// Package metrics scores a run from the frames the loop emits.
package metrics

import "github.com/san-kum/hoversim/internal/sim"

// DefaultStabilityBand is the distance from the target counted as on station.
const DefaultStabilityBand = 75.0

// Default returns the metric set recorded for every stored run.
func Default(mass, moment float64) []sim.Metric {
	return []sim.Metric{
		NewPositionRMS(),
		NewAngleRMS(),
		NewMaxDeviation(),
		NewControlEffort(),
		NewStability(DefaultStabilityBand),
		NewEnergy(mass, moment),
		NewFallbacks(),
	}
}
