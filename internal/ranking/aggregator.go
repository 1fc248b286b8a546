package ranking

import (
	"gonum.org/v1/gonum/floats"
)

// aggregate returns Σ weight(s) × normalized(s, c) for every pool candidate.
// Contextual sources are skipped; they act through the multiplier.
func aggregate(runs []*sourceRun, poolSize int) []float64 {
	composite := make([]float64, poolSize)
	for _, run := range runs {
		if run.contextual || run.weight == 0 {
			continue
		}
		floats.AddScaled(composite, run.weight, run.normalized)
	}
	return composite
}

// rescale min-max scales the composite over the eligible candidates only.
// A flat pool carries no relative information, so its values are clamped instead.
func rescale(composite []float64, eligible []int) {
	if len(eligible) == 0 {
		return
	}
	values := make([]float64, len(eligible))
	for i, idx := range eligible {
		values[i] = composite[idx]
	}
	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	for _, idx := range eligible {
		if span == 0 {
			composite[idx] = clamp01(composite[idx])
			continue
		}
		composite[idx] = (composite[idx] - lo) / span
	}
}
