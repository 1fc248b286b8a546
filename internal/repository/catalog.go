package repository

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/pkg/models"
)

// CatalogStore supplies the candidate pool with current availability and price.
type CatalogStore struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewCatalogStore(db DatabaseQuerier, logger *logrus.Logger) *CatalogStore {
	return &CatalogStore{db: db, logger: logger}
}

// ListActive returns up to limit active candidates ordered by ID.
func (s *CatalogStore) ListActive(ctx context.Context, limit int) ([]models.Candidate, error) {
	query := `
		SELECT id, COALESCE(category, ''), COALESCE(tags, '{}'), COALESCE(price, 0),
			COALESCE(stock, -1), COALESCE(quality, 0),
			COALESCE(published_at, '0001-01-01 00:00:00+00'::timestamptz),
			views, interactions, conversions
		FROM candidates
		WHERE active = true
		ORDER BY id
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var (
			c     models.Candidate
			stock int
		)
		if err := rows.Scan(
			&c.ID, &c.Category, &c.Tags, &c.Price, &stock, &c.Quality, &c.PublishedAt,
			&c.Engagement.Views, &c.Engagement.Interactions, &c.Engagement.Conversions,
		); err != nil {
			s.logger.WithError(err).Warn("Skipping malformed candidate row")
			continue
		}
		if stock >= 0 {
			c.Stock = &stock
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	return candidates, nil
}
