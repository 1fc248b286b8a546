package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/pkg/models"
)

// InteractionStore reads append-only interaction history from PostgreSQL.
type InteractionStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewInteractionStore(db DatabaseQuerier, logger *logrus.Logger) *InteractionStore {
	return &InteractionStore{db: db, logger: logger}
}

// ListByEntity returns an entity's interactions since a point in time, newest first.
func (s *InteractionStore) ListByEntity(ctx context.Context, entityID string, since time.Time, limit int) ([]models.InteractionRecord, error) {
	query := `
		SELECT i.id, i.entity_id, COALESCE(i.candidate_id, ''),
			COALESCE(i.category, c.category, ''), i.kind, COALESCE(i.value, 0), i.occurred_at
		FROM interactions i
		LEFT JOIN candidates c ON c.id = i.candidate_id
		WHERE i.entity_id = $1 AND i.occurred_at >= $2
		ORDER BY i.occurred_at DESC
		LIMIT $3`

	rows, err := s.db.Query(ctx, query, entityID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions for %s: %w", entityID, err)
	}
	defer rows.Close()

	var records []models.InteractionRecord
	for rows.Next() {
		var r models.InteractionRecord
		if err := rows.Scan(&r.ID, &r.EntityID, &r.CandidateID, &r.Category, &r.Kind, &r.Value, &r.Timestamp); err != nil {
			s.logger.WithError(err).WithField("entity_id", entityID).Warn("Skipping malformed interaction row")
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interactions for %s: %w", entityID, err)
	}

	return records, nil
}

// MonthlyCounts aggregates interactions across all entities per category and calendar month.
func (s *InteractionStore) MonthlyCounts(ctx context.Context, since time.Time) ([]profile.MonthlyCount, error) {
	query := `
		SELECT COALESCE(i.category, c.category) AS category,
			EXTRACT(MONTH FROM i.occurred_at)::int AS month,
			COUNT(*)::float8 AS interactions
		FROM interactions i
		LEFT JOIN candidates c ON c.id = i.candidate_id
		WHERE i.occurred_at >= $1 AND COALESCE(i.category, c.category) IS NOT NULL
		GROUP BY 1, 2`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate interactions: %w", err)
	}
	defer rows.Close()

	var counts []profile.MonthlyCount
	for rows.Next() {
		var (
			category string
			month    int
			count    float64
		)
		if err := rows.Scan(&category, &month, &count); err != nil {
			return nil, fmt.Errorf("failed to scan monthly count: %w", err)
		}
		counts = append(counts, profile.MonthlyCount{Category: category, Month: time.Month(month), Count: count})
	}
	return counts, rows.Err()
}
