package query

import (
	"math"

	"multiverse/internal/stat7"
)

// ResonanceFunc scores the affinity of two STAT7 addresses into [0,1].
// HybridScore blends it with semantic similarity as
// weight_semantic*sim + weight_stat7*resonance; the query service's ranking
// does not apply it. The function itself is a pluggable capability and
// deliberately not fixed by the engine.
type ResonanceFunc func(a, b stat7.Address) float64

// DefaultResonance compares the three bounded gauges (resonance, velocity,
// density) by normalized inverse L1 distance.
func DefaultResonance(a, b stat7.Address) float64 {
	distance := math.Abs(float64(a.Resonance-b.Resonance)) +
		math.Abs(float64(a.Velocity-b.Velocity)) +
		math.Abs(float64(a.Density-b.Density))
	return 1 - distance/(3*stat7.GaugeMax)
}

// HybridScore blends a semantic similarity with a resonance score.
func HybridScore(weightSemantic, similarity, resonance float64) float64 {
	return weightSemantic*similarity + (1-weightSemantic)*resonance
}
