package signals

import (
	"fmt"
	"sync/atomic"

	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/internal/ranking"
)

// SeasonalSource boosts candidates whose category peaks in the current month.
// The underlying profile can be swapped while rankings are running.
type SeasonalSource struct {
	profile atomic.Pointer[profile.Seasonal]
	version atomic.Uint64
}

func NewSeasonalSource(p *profile.Seasonal) *SeasonalSource {
	s := &SeasonalSource{}
	s.profile.Store(p)
	return s
}

// Refresh replaces the seasonal profile and bumps the version.
func (s *SeasonalSource) Refresh(p *profile.Seasonal) {
	s.profile.Store(p)
	s.version.Add(1)
}

// Version counts profile refreshes. Rankings computed under different
// versions may differ even when every other input is equal.
func (s *SeasonalSource) Version() uint64 {
	return s.version.Load()
}

// Profile returns the current seasonal profile, nil when none has been built.
func (s *SeasonalSource) Profile() *profile.Seasonal {
	return s.profile.Load()
}

func (s *SeasonalSource) Name() string { return Seasonal }

func (s *SeasonalSource) Normalization() ranking.Normalization { return ranking.Probability }

func (s *SeasonalSource) MultiplierMode() ranking.MultiplierMode { return ranking.Boost }

func (s *SeasonalSource) Compute(inv *ranking.Invocation) (*ranking.SignalResult, error) {
	result := ranking.NewSignalResult()
	p := s.profile.Load()
	if p == nil {
		return result, nil
	}

	month := inv.Now.UTC().Month()
	for i := range inv.Candidates {
		c := &inv.Candidates[i]
		if p.Peaks(c.Category, month) {
			result.Set(c.ID, 1, fmt.Sprintf("Popular in %s", month))
		}
	}
	return result, nil
}
