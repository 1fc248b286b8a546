package models

// RankingRequest is the body of a ranking call. Unset fields fall back to the
// deployment defaults. When Candidates is empty the active catalog is ranked.
type RankingRequest struct {
	Candidates         []Candidate                `json:"candidates,omitempty" validate:"omitempty,max=5000,dive"`
	Weights            map[string]float64         `json:"weights,omitempty" validate:"omitempty,dive,gte=0"`
	MinScoreThreshold  *float64                   `json:"min_score_threshold,omitempty" validate:"omitempty,gte=0"`
	MaxRecommendations *int                       `json:"max_recommendations,omitempty" validate:"omitempty,gte=1,lte=100"`
	MaxPerGroup        *int                       `json:"max_per_group,omitempty" validate:"omitempty,gte=0"`
	BoundedOutput      *bool                      `json:"bounded_output,omitempty"`
	ContextualFactors  map[string]MultiplierRange `json:"contextual_factors,omitempty"`
	Constraints        *ConstraintConfig          `json:"constraints,omitempty"`
	TieBreakers        []TieBreaker               `json:"tie_breakers,omitempty"`
	MaxRationales      *int                       `json:"max_rationales,omitempty" validate:"omitempty,gte=0,lte=10"`
	Context            map[string]string          `json:"context,omitempty"`
	SkipCache          bool                       `json:"skip_cache,omitempty"`
}

// Apply overlays the request onto base and returns the resulting configuration.
// Weights replace the base map as a whole. A MaxPerGroup of zero disables the quota.
func (r *RankingRequest) Apply(base RankingConfig) RankingConfig {
	cfg := base
	cfg.Weights = copyMap(base.Weights)
	cfg.ContextualFactors = copyMap(base.ContextualFactors)
	cfg.Context = copyMap(base.Context)

	if r == nil {
		return cfg
	}

	if r.Weights != nil {
		cfg.Weights = copyMap(r.Weights)
	}
	if r.MinScoreThreshold != nil {
		cfg.MinScoreThreshold = *r.MinScoreThreshold
	}
	if r.MaxRecommendations != nil {
		cfg.MaxRecommendations = *r.MaxRecommendations
	}
	if r.MaxPerGroup != nil {
		if *r.MaxPerGroup == 0 {
			cfg.MaxPerGroup = nil
		} else {
			n := *r.MaxPerGroup
			cfg.MaxPerGroup = &n
		}
	}
	if r.BoundedOutput != nil {
		cfg.BoundedOutput = *r.BoundedOutput
	}
	for name, rng := range r.ContextualFactors {
		cfg.ContextualFactors[name] = rng
	}
	if r.Constraints != nil {
		cfg.Constraints = *r.Constraints
	}
	if r.TieBreakers != nil {
		cfg.TieBreakers = append([]TieBreaker(nil), r.TieBreakers...)
	}
	if r.MaxRationales != nil {
		cfg.MaxRationales = *r.MaxRationales
	}
	for k, v := range r.Context {
		cfg.Context[k] = v
	}

	return cfg
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
