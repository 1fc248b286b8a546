package signals

import (
	"fmt"

	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/internal/ranking"
)

// HistorySource scores candidates by the entity's recency-weighted interactions
// with their category.
type HistorySource struct {
	opts profile.Options
}

func NewHistorySource(opts profile.Options) *HistorySource {
	if opts.HalfLife <= 0 {
		opts.HalfLife = profile.DefaultHalfLife
	}
	if opts.KindWeights == nil {
		opts.KindWeights = profile.DefaultKindWeights
	}
	return &HistorySource{opts: opts}
}

func (s *HistorySource) Name() string { return History }

func (s *HistorySource) Compute(inv *ranking.Invocation) (*ranking.SignalResult, error) {
	affinity := profile.CategoryAffinity(inv.Entity.History, inv.Now, s.opts)
	result := ranking.NewSignalResult()
	if len(affinity) == 0 {
		return result, nil
	}

	for i := range inv.Candidates {
		c := &inv.Candidates[i]
		group := c.GroupKey()
		if v, ok := affinity[group]; ok && v > 0 {
			result.Set(c.ID, v, fmt.Sprintf("You often engage with %s", group))
		}
	}
	return result, nil
}
