package ranking

import (
	"github.com/temcen/signalrank/pkg/models"
)

// factor converts one contextual signal for one candidate into a clamped multiplier.
func factor(mode MultiplierMode, emitted bool, raw, normalized float64, rng models.MultiplierRange) float64 {
	if !emitted {
		return rng.Clamp(1)
	}
	switch mode {
	case Direct:
		return rng.Clamp(raw)
	default:
		return rng.Clamp(1 + normalized*(rng.Max-1))
	}
}

// multipliers returns the product of every contextual factor per pool candidate.
func multipliers(runs []*sourceRun, cfg *models.RankingConfig, poolSize int) []float64 {
	product := make([]float64, poolSize)
	for i := range product {
		product[i] = 1
	}
	for _, run := range runs {
		if !run.contextual {
			continue
		}
		rng := cfg.FactorRange(run.name)
		run.factors = make([]float64, poolSize)
		for i := 0; i < poolSize; i++ {
			f := factor(run.mode, run.emitted[i], run.raw[i], run.normalized[i], rng)
			run.factors[i] = f
			product[i] *= f
		}
	}
	return product
}
