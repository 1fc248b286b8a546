package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/pkg/models"
)

const (
	DefaultRankingTopic = "ranking.generated"
	publishTimeout      = 10 * time.Second
)

// ErrPublisherUnavailable is returned while the circuit breaker is open.
var ErrPublisherUnavailable = errors.New("ranking event publisher unavailable")

// RankingEvent announces a freshly generated ranking.
type RankingEvent struct {
	EventID         uuid.UUID `json:"event_id"`
	EntityID        string    `json:"entity_id"`
	CandidateIDs    []string  `json:"candidate_ids"`
	Scores          []float64 `json:"scores"`
	Eligible        int       `json:"eligible"`
	DegradedSources []string  `json:"degraded_sources,omitempty"`
	GeneratedAt     time.Time `json:"generated_at"`
	PublishedAt     time.Time `json:"published_at"`
}

// NewRankingEvent summarizes a ranked list.
func NewRankingEvent(list *models.RankedList, publishedAt time.Time) RankingEvent {
	scores := make([]float64, len(list.Items))
	for i, item := range list.Items {
		scores[i] = item.Score
	}
	return RankingEvent{
		EventID:         uuid.New(),
		EntityID:        list.EntityID,
		CandidateIDs:    list.CandidateIDs(),
		Scores:          scores,
		Eligible:        list.Eligible,
		DegradedSources: list.DegradedSources,
		GeneratedAt:     list.GeneratedAt,
		PublishedAt:     publishedAt,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// RankingPublisher writes ranking events to kafka, keyed by entity so that one
// entity's events stay ordered within a partition.
type RankingPublisher struct {
	writer  messageWriter
	topic   string
	breaker *gobreaker.CircuitBreaker[interface{}]
	logger  *logrus.Logger
}

func NewRankingPublisher(cfg *config.KafkaConfig, logger *logrus.Logger) *RankingPublisher {
	topic := cfg.Topics.RankingEvents
	if topic == "" {
		topic = DefaultRankingTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	return newRankingPublisher(writer, topic, cfg.Breaker, logger)
}

func newRankingPublisher(writer messageWriter, topic string, bc config.BreakerConfig, logger *logrus.Logger) *RankingPublisher {
	threshold := bc.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "kafka-" + topic,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			entry := logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			if to == gobreaker.StateOpen {
				entry.Warn("Ranking event publishing suspended")
				return
			}
			entry.Info("Ranking event breaker state changed")
		},
	})

	return &RankingPublisher{
		writer:  writer,
		topic:   topic,
		breaker: breaker,
		logger:  logger,
	}
}

// Publish emits one event for the list.
func (p *RankingPublisher) Publish(ctx context.Context, list *models.RankedList) error {
	event := NewRankingEvent(list, time.Now().UTC())

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ranking event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.EntityID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "entity_id", Value: []byte(event.EntityID)},
			{Key: "timestamp", Value: []byte(event.PublishedAt.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.writer.WriteMessages(ctx, message)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrPublisherUnavailable, err)
		}
		return fmt.Errorf("failed to write ranking event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id":  event.EventID,
		"entity_id": event.EntityID,
		"topic":     p.topic,
		"items":     len(event.CandidateIDs),
	}).Debug("Ranking event published")

	return nil
}

// State reports the breaker state for health output.
func (p *RankingPublisher) State() string {
	return p.breaker.State().String()
}

func (p *RankingPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close ranking publisher: %w", err)
	}
	return nil
}
