// Package profile derives entity-level aggregates from interaction history.
package profile

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/temcen/signalrank/pkg/models"
)

const (
	// DefaultHalfLife is the age at which an interaction counts half as much as a fresh one.
	DefaultHalfLife = 30 * 24 * time.Hour
	// MaxPreference is the weight given to the strongest extracted category.
	MaxPreference = 5.0
)

// DefaultKindWeights weights interactions by how much intent they express.
var DefaultKindWeights = map[string]float64{
	"purchase": 3.0,
	"rating":   2.0,
	"like":     1.5,
	"share":    1.5,
	"click":    1.0,
	"view":     0.5,
}

// Options tunes history decay.
type Options struct {
	HalfLife    time.Duration
	KindWeights map[string]float64
}

// DefaultOptions returns the default half-life and kind weights.
func DefaultOptions() Options {
	return Options{HalfLife: DefaultHalfLife, KindWeights: DefaultKindWeights}
}

func (o Options) kindWeight(kind string) float64 {
	if w, ok := o.KindWeights[models.NormalizeKey(kind)]; ok {
		return w
	}
	return 1.0
}

// Decay returns 0.5^(age/halfLife). Future timestamps count as age zero.
func Decay(age, halfLife time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return math.Pow(0.5, float64(age)/float64(halfLife))
}

// Usable reports whether a record carries enough data to be counted.
func Usable(r models.InteractionRecord) bool {
	return !r.Timestamp.IsZero() && models.NormalizeKey(r.Category) != "" && !math.IsNaN(r.Value)
}

// CategoryAffinity returns the decayed, kind-weighted interaction count per
// normalized category. Malformed records are skipped.
func CategoryAffinity(history []models.InteractionRecord, now time.Time, opts Options) map[string]float64 {
	affinity := make(map[string]float64)
	for _, r := range history {
		if !Usable(r) {
			continue
		}
		affinity[models.NormalizeKey(r.Category)] += opts.kindWeight(r.Kind) * Decay(now.Sub(r.Timestamp), opts.HalfLife)
	}
	return affinity
}

// ExtractPreferences turns history into a preference map scaled so the
// strongest category weighs MaxPreference.
func ExtractPreferences(history []models.InteractionRecord, now time.Time, opts Options) map[string]float64 {
	affinity := CategoryAffinity(history, now, opts)
	if len(affinity) == 0 {
		return map[string]float64{}
	}

	top := lo.Max(lo.Values(affinity))
	if top <= 0 {
		return map[string]float64{}
	}
	return lo.MapValues(affinity, func(v float64, _ string) float64 {
		return math.Round(v/top*MaxPreference*100) / 100
	})
}

// MergePreferences adds extracted weights, scaled by weight, to explicit ones.
func MergePreferences(explicit, extracted map[string]float64, weight float64) map[string]float64 {
	merged := models.NormalizePreferences(explicit)
	for k, v := range models.NormalizePreferences(extracted) {
		merged[k] += v * weight
	}
	return merged
}

// TopCategories returns up to n categories by descending weight, ties by name.
func TopCategories(prefs map[string]float64, n int) []string {
	keys := lo.Keys(prefs)
	sort.Slice(keys, func(i, j int) bool {
		if prefs[keys[i]] != prefs[keys[j]] {
			return prefs[keys[i]] > prefs[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
