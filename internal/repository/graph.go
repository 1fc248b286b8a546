package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/pkg/models"
)

// GraphHistory reads interaction history from (:Entity)-[:INTERACTED]->(:Candidate)
// relationships. occurred_at is stored as epoch seconds.
type GraphHistory struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewGraphHistory(driver neo4j.DriverWithContext, logger *logrus.Logger) *GraphHistory {
	return &GraphHistory{driver: driver, logger: logger}
}

func (g *GraphHistory) ListByEntity(ctx context.Context, entityID string, since time.Time, limit int) ([]models.InteractionRecord, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (e:Entity {id: $entityId})-[r:INTERACTED]->(c:Candidate)
		WHERE r.occurred_at >= $since
		RETURN r.id AS id, c.id AS candidate_id, coalesce(r.category, c.category) AS category,
			r.kind AS kind, coalesce(r.value, 0.0) AS value, r.occurred_at AS occurred_at
		ORDER BY r.occurred_at DESC
		LIMIT $limit`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"entityId": entityID,
		"since":    since.Unix(),
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query graph history for %s: %w", entityID, err)
	}

	var records []models.InteractionRecord
	for result.Next(ctx) {
		r, err := interactionFromRecord(entityID, result.Record())
		if err != nil {
			g.logger.WithError(err).WithField("entity_id", entityID).Warn("Skipping malformed graph interaction")
			continue
		}
		records = append(records, r)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read graph history for %s: %w", entityID, err)
	}

	return records, nil
}

func interactionFromRecord(entityID string, record *neo4j.Record) (models.InteractionRecord, error) {
	r := models.InteractionRecord{EntityID: entityID}

	id, _, err := neo4j.GetRecordValue[string](record, "id")
	if err == nil {
		r.ID = id
	}
	if r.CandidateID, _, err = neo4j.GetRecordValue[string](record, "candidate_id"); err != nil {
		return r, fmt.Errorf("candidate_id: %w", err)
	}
	if r.Category, _, err = neo4j.GetRecordValue[string](record, "category"); err != nil {
		return r, fmt.Errorf("category: %w", err)
	}
	if r.Kind, _, err = neo4j.GetRecordValue[string](record, "kind"); err != nil {
		return r, fmt.Errorf("kind: %w", err)
	}
	if r.Value, _, err = neo4j.GetRecordValue[float64](record, "value"); err != nil {
		return r, fmt.Errorf("value: %w", err)
	}
	occurred, isNil, err := neo4j.GetRecordValue[int64](record, "occurred_at")
	if err != nil || isNil {
		return r, fmt.Errorf("occurred_at missing or invalid")
	}
	r.Timestamp = time.Unix(occurred, 0).UTC()

	return r, nil
}
