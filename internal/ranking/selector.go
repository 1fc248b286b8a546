package ranking

import (
	"sort"

	"github.com/samber/lo"

	"github.com/temcen/signalrank/pkg/models"
)

// scored is the engine's working record for one pool candidate.
type scored struct {
	candidate  *models.Candidate
	index      int
	composite  float64
	multiplier float64
	final      float64
	group      string
}

// rankOrder sorts by final score, then by the configured tie breakers, then by ID.
func rankOrder(items []*scored, tieBreakers []models.TieBreaker) {
	sort.SliceStable(items, func(i, j int) bool {
		return before(items[i], items[j], tieBreakers)
	})
}

func before(a, b *scored, tieBreakers []models.TieBreaker) bool {
	if a.final != b.final {
		return a.final > b.final
	}
	for _, tb := range tieBreakers {
		switch tb {
		case models.TieBreakFreshness:
			if !a.candidate.PublishedAt.Equal(b.candidate.PublishedAt) {
				return a.candidate.PublishedAt.After(b.candidate.PublishedAt)
			}
		case models.TieBreakQuality:
			if a.candidate.Quality != b.candidate.Quality {
				return a.candidate.Quality > b.candidate.Quality
			}
		}
	}
	return a.candidate.ID < b.candidate.ID
}

// selectTop applies the threshold, ordering and diversity quota, and truncates to K.
func selectTop(items []*scored, cfg *models.RankingConfig) []*scored {
	kept := lo.Filter(items, func(s *scored, _ int) bool {
		return s.final >= cfg.MinScoreThreshold
	})
	rankOrder(kept, cfg.TieBreakers)

	k := cfg.MaxRecommendations
	if cfg.MaxPerGroup == nil {
		if len(kept) > k {
			kept = kept[:k]
		}
		return kept
	}

	quota := *cfg.MaxPerGroup
	counts := make(map[string]int)
	picked := make([]*scored, 0, k)
	var deferred []*scored

	for _, s := range kept {
		if len(picked) == k {
			break
		}
		if counts[s.group] >= quota {
			deferred = append(deferred, s)
			continue
		}
		counts[s.group]++
		picked = append(picked, s)
	}

	// Deferred candidates fill remaining slots so the list is never shorter than the pool allows.
	for _, s := range deferred {
		if len(picked) == k {
			break
		}
		picked = append(picked, s)
	}

	rankOrder(picked, cfg.TieBreakers)
	return picked
}
