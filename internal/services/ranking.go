package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/pkg/models"
)

// ErrEntityInactive is returned when ranking or updating a deactivated entity.
var ErrEntityInactive = errors.New("entity is inactive")

// RankingService loads everything a ranking needs and runs the engine.
// Lists are cached by input digest and announced on the event bus.
type RankingService struct {
	entities  EntityRepository
	history   HistoryLoader
	catalog   CatalogReader
	engine    Ranker
	cache     RankingCacher
	profiles  ProfileVersioner
	publisher EventPublisher
	cfg       *config.Config
	defaults  models.RankingConfig
	clock     func() time.Time
	logger    *logrus.Logger
}

func NewRankingService(
	entities EntityRepository,
	history HistoryLoader,
	catalog CatalogReader,
	engine Ranker,
	cache RankingCacher,
	profiles ProfileVersioner,
	publisher EventPublisher,
	cfg *config.Config,
	logger *logrus.Logger,
) *RankingService {
	return &RankingService{
		entities:  entities,
		history:   history,
		catalog:   catalog,
		engine:    engine,
		cache:     cache,
		profiles:  profiles,
		publisher: publisher,
		cfg:       cfg,
		defaults:  cfg.RankingDefaults(),
		clock:     time.Now,
		logger:    logger,
	}
}

// Rank produces the ranked list for an entity.
func (s *RankingService) Rank(ctx context.Context, entityID string, req *models.RankingRequest) (*models.RankedList, error) {
	entity, err := s.entities.Get(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if !entity.Active {
		return nil, fmt.Errorf("entity %s: %w", entityID, ErrEntityInactive)
	}

	now := s.now()
	entity.History = s.loadHistory(ctx, entityID, now)

	candidates, err := s.candidates(ctx, req)
	if err != nil {
		return nil, err
	}

	cfg := req.Apply(s.defaults)

	version := s.profileVersion()
	key := ""
	if s.cache != nil && (req == nil || !req.SkipCache) {
		key, err = s.cache.Key(entityID, cfg, candidates, entity.Preferences, entity.Budget, entity.History, now, version)
		if err != nil {
			s.logger.WithError(err).WithField("entity_id", entityID).Warn("Ranking cache disabled for request")
			key = ""
		} else if cached, ok := s.cache.Get(ctx, key); ok {
			s.logger.WithField("entity_id", entityID).Debug("Serving cached ranking")
			return cached, nil
		}
	}

	list, err := s.engine.Rank(entity, candidates, cfg, now)
	if err != nil {
		return nil, err
	}

	// A refresh during the engine run leaves the result ambiguous between versions.
	if key != "" && s.profileVersion() == version {
		s.cache.Set(ctx, key, list)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, list); err != nil {
			s.logger.WithError(err).WithField("entity_id", entityID).Warn("Ranking event not published")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"entity_id":  entityID,
		"candidates": len(candidates),
		"eligible":   list.Eligible,
		"returned":   len(list.Items),
		"degraded":   list.DegradedSources,
	}).Info("Ranking generated")

	return list, nil
}

func (s *RankingService) profileVersion() uint64 {
	if s.profiles == nil {
		return 0
	}
	return s.profiles.Version()
}

// now is truncated to the configured bucket so repeated calls within a bucket
// share cache entries.
func (s *RankingService) now() time.Time {
	now := s.clock().UTC()
	if bucket := s.cfg.Ranking.TimeBucket; bucket > 0 {
		now = now.Truncate(bucket)
	}
	return now
}

// loadHistory degrades to an empty history on failure. The history signal then
// emits nothing and the remaining signals still rank.
func (s *RankingService) loadHistory(ctx context.Context, entityID string, now time.Time) []models.InteractionRecord {
	if s.history == nil {
		return nil
	}

	var since time.Time
	if lookback := s.cfg.History.Lookback; lookback > 0 {
		since = now.Add(-lookback)
	}

	records, err := s.history.ListByEntity(ctx, entityID, since, s.cfg.History.Limit)
	if err != nil {
		s.logger.WithError(err).WithField("entity_id", entityID).Warn("Ranking without interaction history")
		return nil
	}
	return records
}

func (s *RankingService) candidates(ctx context.Context, req *models.RankingRequest) ([]models.Candidate, error) {
	if req != nil && len(req.Candidates) > 0 {
		return req.Candidates, nil
	}
	if s.catalog == nil {
		return nil, nil
	}

	candidates, err := s.catalog.ListActive(ctx, s.cfg.Ranking.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidate pool: %w", err)
	}
	return candidates, nil
}
