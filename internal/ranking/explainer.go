package ranking

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

type contribution struct {
	source    string
	magnitude float64
	rationale string
}

// explain returns the rationales of the sources that moved a candidate's score,
// strongest first, capped at limit.
func explain(s *scored, runs []*sourceRun, limit int) []string {
	if limit == 0 {
		return nil
	}

	var parts []contribution
	for _, run := range runs {
		if run.rationales == nil {
			continue
		}
		rationale := run.rationales[s.index]
		if rationale == "" {
			continue
		}

		var magnitude float64
		if run.contextual {
			magnitude = s.composite * math.Abs(run.factors[s.index]-1)
		} else {
			magnitude = run.weight * run.normalized[s.index]
		}
		if magnitude <= 0 {
			continue
		}
		parts = append(parts, contribution{source: run.name, magnitude: magnitude, rationale: rationale})
	}

	sort.SliceStable(parts, func(i, j int) bool {
		if parts[i].magnitude != parts[j].magnitude {
			return parts[i].magnitude > parts[j].magnitude
		}
		return parts[i].source < parts[j].source
	})

	rationales := lo.Uniq(lo.Map(parts, func(p contribution, _ int) string { return p.rationale }))
	if len(rationales) > limit {
		rationales = rationales[:limit]
	}
	return rationales
}

// signalBreakdown reports each source's normalized value, or its factor for contextual sources.
func signalBreakdown(s *scored, runs []*sourceRun) map[string]float64 {
	out := make(map[string]float64, len(runs))
	for _, run := range runs {
		if run.contextual {
			out[run.name] = run.factors[s.index]
			continue
		}
		out[run.name] = run.normalized[s.index]
	}
	return out
}
