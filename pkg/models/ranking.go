package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Stage selects when a hard constraint runs relative to scoring.
type Stage string

const (
	StagePre  Stage = "pre"
	StagePost Stage = "post"
)

// TieBreaker names a secondary sort key applied when final scores are equal.
// The candidate identifier is always the last key.
type TieBreaker string

const (
	TieBreakFreshness TieBreaker = "freshness"
	TieBreakQuality   TieBreaker = "quality"
)

const (
	DefaultMaxRecommendations = 10
	DefaultMaxRationales      = 3
)

// DefaultMultiplierRange bounds contextual factors that have no explicit range.
var DefaultMultiplierRange = MultiplierRange{Min: 0.8, Max: 1.5}

// MultiplierRange bounds a single contextual factor.
type MultiplierRange struct {
	Min float64 `json:"min" mapstructure:"min"`
	Max float64 `json:"max" mapstructure:"max"`
}

// Clamp limits v to the range.
func (r MultiplierRange) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

func (r MultiplierRange) validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min < 0 || r.Max < r.Min {
		return fmt.Errorf("multiplier range [%v, %v] is invalid", r.Min, r.Max)
	}
	return nil
}

// ExpressionConstraint is a boolean expression a candidate must satisfy.
// Post-stage expressions may read score, composite and signals.
type ExpressionConstraint struct {
	Name  string `json:"name" mapstructure:"name"`
	Expr  string `json:"expr" mapstructure:"expr" validate:"required"`
	Stage Stage  `json:"stage" mapstructure:"stage"`
}

// ConstraintConfig enumerates the hard constraints for one invocation.
type ConstraintConfig struct {
	InStockOnly        bool                   `json:"in_stock_only" mapstructure:"in_stock_only"`
	Price              *PriceRange            `json:"price,omitempty" mapstructure:"price"`
	PriceStage         Stage                  `json:"price_stage,omitempty" mapstructure:"price_stage"`
	ExcludedCategories []string               `json:"excluded_categories,omitempty" mapstructure:"excluded_categories"`
	Expressions        []ExpressionConstraint `json:"expressions,omitempty" mapstructure:"expressions"`
}

// RankingConfig is the immutable per-call configuration of a ranking.
type RankingConfig struct {
	Weights            map[string]float64         `json:"weights"`
	MinScoreThreshold  float64                    `json:"min_score_threshold"`
	MaxRecommendations int                        `json:"max_recommendations"`
	MaxPerGroup        *int                       `json:"max_per_group,omitempty"`
	BoundedOutput      bool                       `json:"bounded_output"`
	ContextualFactors  map[string]MultiplierRange `json:"contextual_factors,omitempty"`
	Constraints        ConstraintConfig           `json:"constraints"`
	TieBreakers        []TieBreaker               `json:"tie_breakers,omitempty"`
	MaxRationales      int                        `json:"max_rationales"`
	Context            map[string]string          `json:"context,omitempty"`
}

// DefaultRankingConfig returns a configuration with every documented default applied.
func DefaultRankingConfig() RankingConfig {
	return RankingConfig{
		Weights:            map[string]float64{},
		MaxRecommendations: DefaultMaxRecommendations,
		BoundedOutput:      true,
		ContextualFactors:  map[string]MultiplierRange{},
		TieBreakers:        []TieBreaker{TieBreakFreshness},
		MaxRationales:      DefaultMaxRationales,
	}
}

// Weight returns the configured weight for a source, zero when absent.
func (c *RankingConfig) Weight(source string) float64 {
	return c.Weights[source]
}

// FactorRange returns the clamp range for a contextual factor.
func (c *RankingConfig) FactorRange(name string) MultiplierRange {
	if r, ok := c.ContextualFactors[name]; ok {
		return r
	}
	return DefaultMultiplierRange
}

// Validate checks the structural rules of the configuration. Every problem is reported.
func (c *RankingConfig) Validate() error {
	var errs []error

	for name, w := range c.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, fmt.Errorf("weight for %q must be a finite non-negative number, got %v", name, w))
		}
	}
	if c.MaxRecommendations <= 0 {
		errs = append(errs, fmt.Errorf("max_recommendations must be positive, got %d", c.MaxRecommendations))
	}
	if math.IsNaN(c.MinScoreThreshold) || c.MinScoreThreshold < 0 {
		errs = append(errs, fmt.Errorf("min_score_threshold must be non-negative, got %v", c.MinScoreThreshold))
	} else if c.BoundedOutput && c.MinScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("min_score_threshold must be within [0, 1] for bounded output, got %v", c.MinScoreThreshold))
	}
	if c.MaxPerGroup != nil && *c.MaxPerGroup < 1 {
		errs = append(errs, fmt.Errorf("max_per_group must be at least 1 when set, got %d", *c.MaxPerGroup))
	}
	if c.MaxRationales < 0 {
		errs = append(errs, fmt.Errorf("max_rationales must be non-negative, got %d", c.MaxRationales))
	}
	for name, r := range c.ContextualFactors {
		if err := r.validate(); err != nil {
			errs = append(errs, fmt.Errorf("contextual factor %q: %w", name, err))
		}
	}
	for _, tb := range c.TieBreakers {
		if tb != TieBreakFreshness && tb != TieBreakQuality {
			errs = append(errs, fmt.Errorf("unknown tie breaker %q", tb))
		}
	}

	cc := c.Constraints
	if cc.Price != nil && cc.Price.Max > 0 && cc.Price.Max < cc.Price.Min {
		errs = append(errs, fmt.Errorf("price range [%v, %v] is invalid", cc.Price.Min, cc.Price.Max))
	}
	if !validStage(cc.PriceStage) {
		errs = append(errs, fmt.Errorf("unknown price stage %q", cc.PriceStage))
	}
	for i, e := range cc.Expressions {
		if e.Expr == "" {
			errs = append(errs, fmt.Errorf("expression constraint %d is empty", i))
		}
		if !validStage(e.Stage) {
			errs = append(errs, fmt.Errorf("expression constraint %d: unknown stage %q", i, e.Stage))
		}
	}

	return errors.Join(errs...)
}

func validStage(s Stage) bool {
	return s == "" || s == StagePre || s == StagePost
}

// ScoredCandidate is one entry of a RankedList.
type ScoredCandidate struct {
	CandidateID string             `json:"candidate_id"`
	Score       float64            `json:"score"`
	Composite   float64            `json:"composite"`
	Multiplier  float64            `json:"multiplier"`
	Signals     map[string]float64 `json:"signals,omitempty"`
	Rationales  []string           `json:"rationales,omitempty"`
	GroupKey    string             `json:"group_key"`
	Position    int                `json:"position"`
}

// RankedList is the sole output of a ranking invocation.
type RankedList struct {
	EntityID        string            `json:"entity_id"`
	Items           []ScoredCandidate `json:"items"`
	Eligible        int               `json:"eligible"`
	DegradedSources []string          `json:"degraded_sources,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// CandidateIDs returns item identifiers in rank order.
func (l *RankedList) CandidateIDs() []string {
	ids := make([]string, len(l.Items))
	for i, item := range l.Items {
		ids[i] = item.CandidateID
	}
	return ids
}
