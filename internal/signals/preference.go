package signals

import (
	"fmt"
	"strings"

	"github.com/temcen/signalrank/internal/ranking"
	"github.com/temcen/signalrank/pkg/models"
)

// PreferenceSource sums the entity's declared weights over every category
// and tag a candidate matches.
type PreferenceSource struct{}

func NewPreferenceSource() *PreferenceSource {
	return &PreferenceSource{}
}

func (s *PreferenceSource) Name() string { return Preference }

func (s *PreferenceSource) Compute(inv *ranking.Invocation) (*ranking.SignalResult, error) {
	prefs := models.NormalizePreferences(inv.Entity.Preferences)
	if len(prefs) == 0 {
		return ranking.NewSignalResult(), nil
	}

	return ranking.EachCandidate(inv, func(_ *ranking.Invocation, c *models.Candidate) (ranking.SignalValue, bool, error) {
		var total float64
		var matched []string
		for _, key := range c.Keys() {
			if w, ok := prefs[key]; ok && w > 0 {
				total += w
				matched = append(matched, key)
			}
		}
		if len(matched) == 0 {
			return ranking.SignalValue{}, true, nil
		}
		return ranking.SignalValue{
			Raw:       total,
			Rationale: fmt.Sprintf("Matches your interest in %s", strings.Join(matched, ", ")),
		}, true, nil
	}), nil
}
