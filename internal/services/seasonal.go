package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/internal/signals"
)

// SeasonalRefresher rebuilds the seasonal profile from population counts and
// swaps it into the seasonal signal source.
type SeasonalRefresher struct {
	counts SeasonalAggregator
	source *signals.SeasonalSource
	cfg    config.SeasonalConfig
	clock  func() time.Time
	logger *logrus.Logger
}

func NewSeasonalRefresher(counts SeasonalAggregator, source *signals.SeasonalSource, cfg config.SeasonalConfig, logger *logrus.Logger) *SeasonalRefresher {
	return &SeasonalRefresher{
		counts: counts,
		source: source,
		cfg:    cfg,
		clock:  time.Now,
		logger: logger,
	}
}

// Refresh rebuilds the profile once. On failure the previous profile stays in place.
func (r *SeasonalRefresher) Refresh(ctx context.Context) error {
	now := r.clock().UTC()
	var since time.Time
	if r.cfg.Lookback > 0 {
		since = now.Add(-r.cfg.Lookback)
	}

	counts, err := r.counts.MonthlyCounts(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to refresh seasonal profile: %w", err)
	}

	p := profile.BuildSeasonalFromCounts(counts, r.cfg.PeakFactor, r.cfg.MinSamples, now)
	r.source.Refresh(p)

	r.logger.WithFields(logrus.Fields{
		"categories": p.Categories(),
		"rows":       len(counts),
	}).Info("Seasonal profile refreshed")
	return nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (r *SeasonalRefresher) Run(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		r.logger.WithError(err).Warn("Initial seasonal refresh failed")
	}

	interval := r.cfg.RefreshInterval
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.WithError(err).Warn("Seasonal refresh failed")
			}
		}
	}
}
