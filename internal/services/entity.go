package services

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/pkg/models"
)

// PreferenceExtraction is the outcome of deriving preferences from history.
type PreferenceExtraction struct {
	EntityID      string             `json:"entity_id"`
	Interactions  int                `json:"interactions"`
	Extracted     map[string]float64 `json:"extracted"`
	Merged        map[string]float64 `json:"merged"`
	TopCategories []string           `json:"top_categories"`
	Applied       bool               `json:"applied"`
}

// EntityService manages the entity lifecycle. Changes invalidate cached rankings.
type EntityService struct {
	entities EntityRepository
	history  HistoryLoader
	cache    RankingCacher
	cfg      *config.HistoryConfig
	opts     profile.Options
	clock    func() time.Time
	logger   *logrus.Logger
}

func NewEntityService(entities EntityRepository, history HistoryLoader, cache RankingCacher, cfg *config.HistoryConfig, logger *logrus.Logger) *EntityService {
	return &EntityService{
		entities: entities,
		history:  history,
		cache:    cache,
		cfg:      cfg,
		opts:     HistoryOptions(cfg),
		clock:    time.Now,
		logger:   logger,
	}
}

func (s *EntityService) Get(ctx context.Context, id string) (*models.Entity, error) {
	return s.entities.Get(ctx, id)
}

func (s *EntityService) Register(ctx context.Context, entity *models.Entity) (*models.Entity, error) {
	entity.Preferences = models.NormalizePreferences(entity.Preferences)
	if err := s.entities.Register(ctx, entity, s.clock().UTC()); err != nil {
		return nil, err
	}

	s.logger.WithField("entity_id", entity.ID).Info("Entity registered")
	return entity, nil
}

// UpdatePreferences merges the update into the stored preferences, or replaces
// them when update.Replace is set. Zero weights are dropped in both modes.
func (s *EntityService) UpdatePreferences(ctx context.Context, id string, update *models.PreferenceUpdate) (*models.Entity, error) {
	entity, err := s.activeEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	incoming := models.NormalizePreferences(update.Preferences)
	prefs := incoming
	if !update.Replace {
		prefs = models.NormalizePreferences(entity.Preferences)
		for k, w := range incoming {
			prefs[k] = w
		}
	}
	prefs = lo.OmitBy(prefs, func(_ string, w float64) bool { return w == 0 })

	now := s.clock().UTC()
	if err := s.entities.UpdatePreferences(ctx, id, prefs, now); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	entity.Preferences = prefs
	entity.UpdatedAt = now
	return entity, nil
}

// ExtractPreferences derives category preferences from recent history and
// blends them into the explicit ones. With apply set the result is stored.
func (s *EntityService) ExtractPreferences(ctx context.Context, id string, apply bool) (*PreferenceExtraction, error) {
	entity, err := s.activeEntity(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	var since time.Time
	if s.cfg.Lookback > 0 {
		since = now.Add(-s.cfg.Lookback)
	}
	history, err := s.history.ListByEntity(ctx, id, since, s.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", id, err)
	}

	extracted := profile.ExtractPreferences(history, now, s.opts)
	merged := profile.MergePreferences(entity.Preferences, extracted, s.cfg.ExtractionWeight)

	result := &PreferenceExtraction{
		EntityID:      id,
		Interactions:  len(history),
		Extracted:     extracted,
		Merged:        merged,
		TopCategories: profile.TopCategories(merged, 5),
	}

	if apply && len(extracted) > 0 {
		if err := s.entities.UpdatePreferences(ctx, id, merged, now); err != nil {
			return nil, err
		}
		s.invalidate(ctx, id)
		result.Applied = true
	}

	s.logger.WithFields(logrus.Fields{
		"entity_id":    id,
		"interactions": len(history),
		"categories":   len(extracted),
		"applied":      result.Applied,
	}).Info("Preferences extracted from history")

	return result, nil
}

func (s *EntityService) Deactivate(ctx context.Context, id string) error {
	if err := s.entities.Deactivate(ctx, id, s.clock().UTC()); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *EntityService) activeEntity(ctx context.Context, id string) (*models.Entity, error) {
	entity, err := s.entities.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.Active {
		return nil, fmt.Errorf("entity %s: %w", id, ErrEntityInactive)
	}
	return entity, nil
}

func (s *EntityService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WithError(err).WithField("entity_id", id).Warn("Failed to invalidate cached rankings")
	}
}
