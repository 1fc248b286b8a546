package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestRankingRequest_Apply(t *testing.T) {
	base := DefaultRankingConfig()
	base.Weights = map[string]float64{"preference": 0.5, "history": 0.5}
	base.MaxPerGroup = intPtr(3)
	base.Constraints.InStockOnly = true

	t.Run("nil request keeps base", func(t *testing.T) {
		var req *RankingRequest
		cfg := req.Apply(base)
		assert.Equal(t, base.Weights, cfg.Weights)
		assert.Equal(t, 3, *cfg.MaxPerGroup)
	})

	t.Run("overrides", func(t *testing.T) {
		req := &RankingRequest{
			Weights:            map[string]float64{"engagement": 1},
			MinScoreThreshold:  floatPtr(0.2),
			MaxRecommendations: intPtr(4),
			BoundedOutput:      boolPtr(false),
			ContextualFactors:  map[string]MultiplierRange{"seasonal": {Min: 1, Max: 2}},
			TieBreakers:        []TieBreaker{TieBreakQuality},
			MaxRationales:      intPtr(0),
			Context:            map[string]string{"occasion": "birthday"},
		}
		cfg := req.Apply(base)

		assert.Equal(t, map[string]float64{"engagement": 1}, cfg.Weights)
		assert.Equal(t, 0.2, cfg.MinScoreThreshold)
		assert.Equal(t, 4, cfg.MaxRecommendations)
		assert.False(t, cfg.BoundedOutput)
		assert.Equal(t, MultiplierRange{Min: 1, Max: 2}, cfg.FactorRange("seasonal"))
		assert.Equal(t, []TieBreaker{TieBreakQuality}, cfg.TieBreakers)
		assert.Equal(t, 0, cfg.MaxRationales)
		assert.Equal(t, "birthday", cfg.Context["occasion"])
		assert.True(t, cfg.Constraints.InStockOnly)
	})

	t.Run("zero quota disables diversity", func(t *testing.T) {
		cfg := (&RankingRequest{MaxPerGroup: intPtr(0)}).Apply(base)
		assert.Nil(t, cfg.MaxPerGroup)
	})

	t.Run("constraints replace base", func(t *testing.T) {
		cfg := (&RankingRequest{Constraints: &ConstraintConfig{ExcludedCategories: []string{"toys"}}}).Apply(base)
		assert.False(t, cfg.Constraints.InStockOnly)
		assert.Equal(t, []string{"toys"}, cfg.Constraints.ExcludedCategories)
	})

	t.Run("base is not mutated", func(t *testing.T) {
		req := &RankingRequest{ContextualFactors: map[string]MultiplierRange{"occasion": {Min: 0.5, Max: 3}}}
		cfg := req.Apply(base)
		cfg.Weights["preference"] = 9

		require.NotContains(t, base.ContextualFactors, "occasion")
		assert.Equal(t, 0.5, base.Weights["preference"])
	})
}
