package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/signalrank/internal/config"
	"github.com/temcen/signalrank/pkg/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testList() *models.RankedList {
	return &models.RankedList{
		EntityID: "u1",
		Items: []models.ScoredCandidate{
			{CandidateID: "c2", Score: 0.9, Position: 1},
			{CandidateID: "c1", Score: 0.4, Position: 2},
		},
		Eligible:        5,
		DegradedSources: []string{"seasonal"},
		GeneratedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRankingPublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newRankingPublisher(writer, DefaultRankingTopic, config.BreakerConfig{}, newTestLogger())

	require.NoError(t, publisher.Publish(context.Background(), testList()))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "u1", string(msg.Key))

	var event RankingEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "u1", event.EntityID)
	assert.Equal(t, []string{"c2", "c1"}, event.CandidateIDs)
	assert.Equal(t, []float64{0.9, 0.4}, event.Scores)
	assert.Equal(t, 5, event.Eligible)
	assert.Equal(t, []string{"seasonal"}, event.DegradedSources)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, event.EventID.String(), headers["event_id"])
	assert.Equal(t, "u1", headers["entity_id"])
}

func TestRankingPublisher_BreakerOpens(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unreachable")}
	publisher := newRankingPublisher(writer, DefaultRankingTopic, config.BreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Minute,
	}, newTestLogger())

	for i := 0; i < 2; i++ {
		err := publisher.Publish(context.Background(), testList())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrPublisherUnavailable)
	}
	assert.Equal(t, "open", publisher.State())

	err := publisher.Publish(context.Background(), testList())
	assert.ErrorIs(t, err, ErrPublisherUnavailable)
}

func TestRankingPublisher_WriteFailureIsReturnedNotLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	writer := &fakeWriter{err: errors.New("broker unreachable")}
	publisher := newRankingPublisher(writer, DefaultRankingTopic, config.BreakerConfig{}, logger)

	err := publisher.Publish(context.Background(), testList())
	require.Error(t, err)
	assert.ErrorContains(t, err, "broker unreachable")
	assert.Empty(t, hook.AllEntries(), "the caller decides how to log publish failures")
}

func TestRankingPublisher_Close(t *testing.T) {
	writer := &fakeWriter{}
	publisher := newRankingPublisher(writer, "custom", config.BreakerConfig{}, newTestLogger())

	require.NoError(t, publisher.Close())
	assert.True(t, writer.closed)
	assert.Equal(t, "closed", publisher.State())
}

func TestNewRankingEvent_EmptyList(t *testing.T) {
	event := NewRankingEvent(&models.RankedList{EntityID: "u9"}, time.Now())
	assert.Equal(t, "u9", event.EntityID)
	assert.Empty(t, event.CandidateIDs)
	assert.Empty(t, event.Scores)
	assert.NotEqual(t, [16]byte{}, [16]byte(event.EventID))
}
