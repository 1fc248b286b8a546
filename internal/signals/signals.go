// Package signals holds the built-in signal sources of the ranking engine.
package signals

import (
	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/internal/ranking"
)

// Source names, also used as weight keys in a RankingConfig.
const (
	Preference = "preference"
	History    = "history"
	Engagement = "engagement"
	Seasonal   = "seasonal"
	Occasion   = "occasion"
	Budget     = "budget"
)

// Options configures the built-in sources.
type Options struct {
	History         profile.Options
	EngagementBlend float64
	Occasions       map[string]map[string]float64
}

// DefaultOptions returns the defaults used when no configuration is supplied.
func DefaultOptions() Options {
	return Options{
		History:         profile.DefaultOptions(),
		EngagementBlend: DefaultEngagementBlend,
		Occasions:       DefaultOccasions(),
	}
}

// Standard returns every built-in source in registration order. A nil
// seasonal source is replaced by one without a profile.
func Standard(opts Options, seasonal *SeasonalSource) []ranking.SignalSource {
	if seasonal == nil {
		seasonal = NewSeasonalSource(nil)
	}
	return []ranking.SignalSource{
		NewPreferenceSource(),
		NewHistorySource(opts.History),
		NewEngagementSource(opts.EngagementBlend),
		NewBudgetSource(),
		seasonal,
		NewOccasionSource(opts.Occasions),
	}
}
