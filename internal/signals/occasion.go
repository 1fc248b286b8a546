package signals

import (
	"fmt"

	"github.com/temcen/signalrank/internal/ranking"
	"github.com/temcen/signalrank/pkg/models"
)

// OccasionContextKey is the RankingConfig.Context key naming the occasion.
const OccasionContextKey = "occasion"

// DefaultOccasions maps occasions to per-category multipliers.
func DefaultOccasions() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"birthday": {
			"toys":        1.3,
			"games":       1.2,
			"electronics": 1.1,
		},
		"anniversary": {
			"jewelry":  1.4,
			"flowers":  1.3,
			"clothing": 1.1,
		},
		"holiday": {
			"home":        1.2,
			"books":       1.1,
			"electronics": 1.2,
			"toys":        1.2,
		},
		"graduation": {
			"books":       1.2,
			"electronics": 1.3,
			"office":      0.9,
		},
	}
}

// OccasionSource applies occasion-specific multipliers directly.
type OccasionSource struct {
	table map[string]map[string]float64
}

func NewOccasionSource(table map[string]map[string]float64) *OccasionSource {
	normalized := make(map[string]map[string]float64, len(table))
	for occasion, categories := range table {
		normalized[models.NormalizeKey(occasion)] = models.NormalizePreferences(categories)
	}
	return &OccasionSource{table: normalized}
}

func (s *OccasionSource) Name() string { return Occasion }

func (s *OccasionSource) MultiplierMode() ranking.MultiplierMode { return ranking.Direct }

func (s *OccasionSource) Compute(inv *ranking.Invocation) (*ranking.SignalResult, error) {
	result := ranking.NewSignalResult()
	if inv.Config == nil {
		return result, nil
	}
	occasion := models.NormalizeKey(inv.Config.Context[OccasionContextKey])
	if occasion == "" {
		return result, nil
	}
	factors, ok := s.table[occasion]
	if !ok {
		return result, nil
	}

	for i := range inv.Candidates {
		c := &inv.Candidates[i]
		if f, ok := factors[c.GroupKey()]; ok {
			rationale := ""
			if f > 1 {
				rationale = fmt.Sprintf("A good fit for a %s", occasion)
			}
			result.Set(c.ID, f, rationale)
		}
	}
	return result, nil
}
