package services

import (
	"context"
	"time"

	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/pkg/models"
)

// EntityRepository persists entities.
type EntityRepository interface {
	Get(ctx context.Context, id string) (*models.Entity, error)
	Register(ctx context.Context, entity *models.Entity, now time.Time) error
	UpdatePreferences(ctx context.Context, id string, prefs map[string]float64, now time.Time) error
	Deactivate(ctx context.Context, id string, now time.Time) error
}

// HistoryLoader returns an entity's interactions since a point in time.
// Implemented by the PostgreSQL and neo4j history stores.
type HistoryLoader interface {
	ListByEntity(ctx context.Context, entityID string, since time.Time, limit int) ([]models.InteractionRecord, error)
}

// SeasonalAggregator supplies population-wide monthly interaction counts.
type SeasonalAggregator interface {
	MonthlyCounts(ctx context.Context, since time.Time) ([]profile.MonthlyCount, error)
}

// CatalogReader supplies the default candidate pool.
type CatalogReader interface {
	ListActive(ctx context.Context, limit int) ([]models.Candidate, error)
}

// RankingCacher stores ranked lists keyed by their inputs.
type RankingCacher interface {
	Key(entityID string, inputs ...interface{}) (string, error)
	Get(ctx context.Context, key string) (*models.RankedList, bool)
	Set(ctx context.Context, key string, list *models.RankedList)
	Invalidate(ctx context.Context, entityID string) error
}

// ProfileVersioner reports the version of shared state the engine reads
// outside of its arguments, such as the seasonal profile.
type ProfileVersioner interface {
	Version() uint64
}

// EventPublisher announces generated rankings.
type EventPublisher interface {
	Publish(ctx context.Context, list *models.RankedList) error
}

// Ranker produces a ranked list from fully loaded inputs.
type Ranker interface {
	Rank(entity *models.Entity, candidates []models.Candidate, cfg models.RankingConfig, now time.Time) (*models.RankedList, error)
}

// RankingServiceInterface is consumed by the HTTP handlers.
type RankingServiceInterface interface {
	Rank(ctx context.Context, entityID string, req *models.RankingRequest) (*models.RankedList, error)
}

// EntityServiceInterface is consumed by the HTTP handlers.
type EntityServiceInterface interface {
	Get(ctx context.Context, id string) (*models.Entity, error)
	Register(ctx context.Context, entity *models.Entity) (*models.Entity, error)
	UpdatePreferences(ctx context.Context, id string, update *models.PreferenceUpdate) (*models.Entity, error)
	ExtractPreferences(ctx context.Context, id string, apply bool) (*PreferenceExtraction, error)
	Deactivate(ctx context.Context, id string) error
}
