package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/signalrank/internal/profile"
	"github.com/temcen/signalrank/pkg/models"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type MockEntityRepository struct {
	mock.Mock
}

func (m *MockEntityRepository) Get(ctx context.Context, id string) (*models.Entity, error) {
	args := m.Called(ctx, id)
	entity, _ := args.Get(0).(*models.Entity)
	return entity, args.Error(1)
}

func (m *MockEntityRepository) Register(ctx context.Context, entity *models.Entity, now time.Time) error {
	args := m.Called(ctx, entity, now)
	return args.Error(0)
}

func (m *MockEntityRepository) UpdatePreferences(ctx context.Context, id string, prefs map[string]float64, now time.Time) error {
	args := m.Called(ctx, id, prefs, now)
	return args.Error(0)
}

func (m *MockEntityRepository) Deactivate(ctx context.Context, id string, now time.Time) error {
	args := m.Called(ctx, id, now)
	return args.Error(0)
}

type MockHistoryLoader struct {
	mock.Mock
}

func (m *MockHistoryLoader) ListByEntity(ctx context.Context, entityID string, since time.Time, limit int) ([]models.InteractionRecord, error) {
	args := m.Called(ctx, entityID, since, limit)
	records, _ := args.Get(0).([]models.InteractionRecord)
	return records, args.Error(1)
}

type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) ListActive(ctx context.Context, limit int) ([]models.Candidate, error) {
	args := m.Called(ctx, limit)
	candidates, _ := args.Get(0).([]models.Candidate)
	return candidates, args.Error(1)
}

type MockSeasonalAggregator struct {
	mock.Mock
}

func (m *MockSeasonalAggregator) MonthlyCounts(ctx context.Context, since time.Time) ([]profile.MonthlyCount, error) {
	args := m.Called(ctx, since)
	counts, _ := args.Get(0).([]profile.MonthlyCount)
	return counts, args.Error(1)
}

type MockRankingCache struct {
	mock.Mock
}

func (m *MockRankingCache) Key(entityID string, inputs ...interface{}) (string, error) {
	args := m.Called(entityID)
	return args.String(0), args.Error(1)
}

func (m *MockRankingCache) Get(ctx context.Context, key string) (*models.RankedList, bool) {
	args := m.Called(ctx, key)
	list, _ := args.Get(0).(*models.RankedList)
	return list, args.Bool(1)
}

func (m *MockRankingCache) Set(ctx context.Context, key string, list *models.RankedList) {
	m.Called(ctx, key, list)
}

func (m *MockRankingCache) Invalidate(ctx context.Context, entityID string) error {
	args := m.Called(ctx, entityID)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, list *models.RankedList) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

type MockRanker struct {
	mock.Mock
}

func (m *MockRanker) Rank(entity *models.Entity, candidates []models.Candidate, cfg models.RankingConfig, now time.Time) (*models.RankedList, error) {
	args := m.Called(entity, candidates, cfg, now)
	list, _ := args.Get(0).(*models.RankedList)
	return list, args.Error(1)
}
