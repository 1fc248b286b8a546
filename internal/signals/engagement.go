package signals

import (
	"fmt"
	"math"

	"github.com/temcen/signalrank/internal/ranking"
	"github.com/temcen/signalrank/pkg/models"
)

// DefaultEngagementBlend is the share of popularity in the engagement score;
// the rest is conversion rate.
const DefaultEngagementBlend = 0.6

// EngagementSource is entity-independent: popularity blended with conversion rate.
type EngagementSource struct {
	blend float64
}

func NewEngagementSource(blend float64) *EngagementSource {
	if blend < 0 || blend > 1 || math.IsNaN(blend) {
		blend = DefaultEngagementBlend
	}
	return &EngagementSource{blend: blend}
}

func (s *EngagementSource) Name() string { return Engagement }

func (s *EngagementSource) Normalization() ranking.Normalization { return ranking.Probability }

func (s *EngagementSource) Compute(inv *ranking.Invocation) (*ranking.SignalResult, error) {
	var maxViews int64
	for i := range inv.Candidates {
		if v := inv.Candidates[i].Engagement.Views; v > maxViews {
			maxViews = v
		}
	}

	return ranking.EachCandidate(inv, func(_ *ranking.Invocation, c *models.Candidate) (ranking.SignalValue, bool, error) {
		e := c.Engagement
		if e.Views < 0 || e.Interactions < 0 || e.Conversions < 0 {
			return ranking.SignalValue{}, false, fmt.Errorf("negative engagement counters for candidate %s", c.ID)
		}
		if e.Views == 0 && e.Interactions == 0 {
			return ranking.SignalValue{}, false, nil
		}

		var popularity float64
		if maxViews > 0 {
			popularity = math.Log1p(float64(e.Views)) / math.Log1p(float64(maxViews))
		}
		var conversion float64
		if e.Interactions > 0 {
			conversion = math.Min(1, float64(e.Conversions)/float64(e.Interactions))
		}

		score := s.blend*popularity + (1-s.blend)*conversion
		var rationale string
		if score >= 0.5 {
			rationale = "Popular with other shoppers"
		}
		return ranking.SignalValue{Raw: score, Rationale: rationale}, true, nil
	}), nil
}
