package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/pkg/models"
)

// EntityStore persists entities. Entities are deactivated, never deleted.
type EntityStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewEntityStore(db DatabaseQuerier, logger *logrus.Logger) *EntityStore {
	return &EntityStore{db: db, logger: logger}
}

func (s *EntityStore) Get(ctx context.Context, id string) (*models.Entity, error) {
	query := `
		SELECT id, preferences, COALESCE(budget_min, 0), COALESCE(budget_max, 0),
			active, created_at, updated_at
		FROM entities
		WHERE id = $1`

	var (
		entity    models.Entity
		prefsJSON []byte
		budgetMin float64
		budgetMax float64
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&entity.ID, &prefsJSON, &budgetMin, &budgetMax,
		&entity.Active, &entity.CreatedAt, &entity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entity %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load entity %s: %w", id, err)
	}

	entity.Preferences = map[string]float64{}
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &entity.Preferences); err != nil {
			s.logger.WithError(err).WithField("entity_id", id).Warn("Ignoring malformed stored preferences")
			entity.Preferences = map[string]float64{}
		}
	}
	if budgetMin > 0 || budgetMax > 0 {
		entity.Budget = &models.PriceRange{Min: budgetMin, Max: budgetMax}
	}

	return &entity, nil
}

// Register creates a new active entity.
func (s *EntityStore) Register(ctx context.Context, entity *models.Entity, now time.Time) error {
	prefsJSON, err := json.Marshal(models.NormalizePreferences(entity.Preferences))
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	var budgetMin, budgetMax float64
	if entity.Budget != nil {
		budgetMin, budgetMax = entity.Budget.Min, entity.Budget.Max
	}

	query := `
		INSERT INTO entities (id, preferences, budget_min, budget_max, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, true, $5, $5)
		ON CONFLICT (id) DO NOTHING`

	tag, err := s.db.Exec(ctx, query, entity.ID, prefsJSON, budgetMin, budgetMax, now)
	if err != nil {
		return fmt.Errorf("failed to register entity %s: %w", entity.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entity %s: %w", entity.ID, ErrConflict)
	}

	entity.Active = true
	entity.CreatedAt = now
	entity.UpdatedAt = now
	return nil
}

// UpdatePreferences overwrites the stored preference map of an active entity.
func (s *EntityStore) UpdatePreferences(ctx context.Context, id string, prefs map[string]float64, now time.Time) error {
	prefsJSON, err := json.Marshal(models.NormalizePreferences(prefs))
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	query := `UPDATE entities SET preferences = $2, updated_at = $3 WHERE id = $1 AND active`
	tag, err := s.db.Exec(ctx, query, id, prefsJSON, now)
	if err != nil {
		return fmt.Errorf("failed to update preferences for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active entity %s: %w", id, ErrNotFound)
	}
	return nil
}

// Deactivate marks an entity inactive. History is kept.
func (s *EntityStore) Deactivate(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE entities SET active = false, updated_at = $2 WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("failed to deactivate entity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entity %s: %w", id, ErrNotFound)
	}

	s.logger.WithField("entity_id", id).Info("Entity deactivated")
	return nil
}
