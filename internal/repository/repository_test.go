package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/signalrank/pkg/models"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func TestEntityStore_Get(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewEntityStore(mockDB, newTestLogger())
	cols := []string{"id", "preferences", "budget_min", "budget_max", "active", "created_at", "updated_at"}

	t.Run("found with budget", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT").
			WithArgs("u1").
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow("u1", []byte(`{"books":4,"music":2}`), 0.0, 50.0, true, testNow, testNow))

		entity, err := store.Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", entity.ID)
		assert.Equal(t, map[string]float64{"books": 4, "music": 2}, entity.Preferences)
		require.NotNil(t, entity.Budget)
		assert.Equal(t, 50.0, entity.Budget.Max)
		assert.True(t, entity.Active)
	})

	t.Run("no budget and malformed preferences", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT").
			WithArgs("u2").
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow("u2", []byte(`not json`), 0.0, 0.0, true, testNow, testNow))

		entity, err := store.Get(context.Background(), "u2")
		require.NoError(t, err)
		assert.Nil(t, entity.Budget)
		assert.Empty(t, entity.Preferences)
	})

	t.Run("not found", func(t *testing.T) {
		mockDB.ExpectQuery("SELECT").
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := store.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestEntityStore_Register(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewEntityStore(mockDB, newTestLogger())

	t.Run("created", func(t *testing.T) {
		entity := &models.Entity{ID: "u1", Preferences: map[string]float64{" Books ": 3}, Budget: &models.PriceRange{Max: 40}}
		mockDB.ExpectExec("INSERT INTO entities").
			WithArgs("u1", []byte(`{"books":3}`), 0.0, 40.0, testNow).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, store.Register(context.Background(), entity, testNow))
		assert.True(t, entity.Active)
		assert.Equal(t, testNow, entity.CreatedAt)
	})

	t.Run("conflict", func(t *testing.T) {
		mockDB.ExpectExec("INSERT INTO entities").
			WithArgs("u1", pgxmock.AnyArg(), 0.0, 0.0, testNow).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		err := store.Register(context.Background(), &models.Entity{ID: "u1"}, testNow)
		assert.ErrorIs(t, err, ErrConflict)
	})

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestEntityStore_UpdateAndDeactivate(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewEntityStore(mockDB, newTestLogger())

	mockDB.ExpectExec("UPDATE entities SET preferences").
		WithArgs("u1", []byte(`{"garden":1.5}`), testNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.UpdatePreferences(context.Background(), "u1", map[string]float64{"Garden": 1.5}, testNow))

	mockDB.ExpectExec("UPDATE entities SET preferences").
		WithArgs("gone", pgxmock.AnyArg(), testNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err = store.UpdatePreferences(context.Background(), "gone", map[string]float64{}, testNow)
	assert.ErrorIs(t, err, ErrNotFound)

	mockDB.ExpectExec("UPDATE entities SET active = false").
		WithArgs("u1", testNow).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.Deactivate(context.Background(), "u1", testNow))

	mockDB.ExpectExec("UPDATE entities SET active = false").
		WithArgs("u1", testNow).
		WillReturnError(errors.New("connection reset"))
	err = store.Deactivate(context.Background(), "u1", testNow)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestInteractionStore_ListByEntity(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewInteractionStore(mockDB, newTestLogger())
	since := testNow.AddDate(0, -6, 0)

	rows := pgxmock.NewRows([]string{"id", "entity_id", "candidate_id", "category", "kind", "value", "occurred_at"}).
		AddRow("i1", "u1", "c1", "books", "purchase", 1.0, testNow.Add(-time.Hour)).
		AddRow("i2", "u1", "", "music", "view", 0.0, testNow.Add(-2*time.Hour))

	mockDB.ExpectQuery("SELECT").
		WithArgs("u1", since, 100).
		WillReturnRows(rows)

	records, err := store.ListByEntity(context.Background(), "u1", since, 100)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c1", records[0].CandidateID)
	assert.Equal(t, "purchase", records[0].Kind)
	assert.Equal(t, "music", records[1].Category)

	mockDB.ExpectQuery("SELECT").
		WithArgs("u1", since, 100).
		WillReturnError(errors.New("timeout"))
	_, err = store.ListByEntity(context.Background(), "u1", since, 100)
	assert.Error(t, err)

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestInteractionStore_MonthlyCounts(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewInteractionStore(mockDB, newTestLogger())
	since := testNow.AddDate(-2, 0, 0)

	mockDB.ExpectQuery("SELECT").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"category", "month", "interactions"}).
			AddRow("toys", 12, 40.0).
			AddRow("garden", 5, 12.0))

	counts, err := store.MonthlyCounts(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, time.December, counts[0].Month)
	assert.Equal(t, 40.0, counts[0].Count)
	assert.Equal(t, "garden", counts[1].Category)

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestCatalogStore_ListActive(t *testing.T) {
	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockDB.Close()

	store := NewCatalogStore(mockDB, newTestLogger())
	published := testNow.AddDate(0, 0, -3)

	rows := pgxmock.NewRows([]string{"id", "category", "tags", "price", "stock", "quality", "published_at", "views", "interactions", "conversions"}).
		AddRow("c1", "books", []string{"fiction"}, 12.5, 4, 0.8, published, int64(100), int64(10), int64(2)).
		AddRow("c2", "toys", []string{}, 30.0, -1, 0.5, published, int64(0), int64(0), int64(0))

	mockDB.ExpectQuery("SELECT").
		WithArgs(500).
		WillReturnRows(rows)

	candidates, err := store.ListActive(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	require.NotNil(t, candidates[0].Stock)
	assert.Equal(t, 4, *candidates[0].Stock)
	assert.Equal(t, []string{"fiction"}, candidates[0].Tags)
	assert.Equal(t, int64(100), candidates[0].Engagement.Views)
	assert.Nil(t, candidates[1].Stock, "negative stock means untracked")
	assert.True(t, candidates[1].InStock())

	assert.NoError(t, mockDB.ExpectationsWereMet())
}

func TestInteractionFromRecord(t *testing.T) {
	occurred := testNow.Add(-24 * time.Hour)

	t.Run("complete record", func(t *testing.T) {
		record := &neo4j.Record{
			Keys:   []string{"id", "candidate_id", "category", "kind", "value", "occurred_at"},
			Values: []interface{}{"r1", "c9", "garden", "like", 1.0, occurred.Unix()},
		}

		r, err := interactionFromRecord("u1", record)
		require.NoError(t, err)
		assert.Equal(t, "u1", r.EntityID)
		assert.Equal(t, "r1", r.ID)
		assert.Equal(t, "c9", r.CandidateID)
		assert.Equal(t, "garden", r.Category)
		assert.Equal(t, "like", r.Kind)
		assert.True(t, occurred.Equal(r.Timestamp))
	})

	t.Run("missing timestamp", func(t *testing.T) {
		record := &neo4j.Record{
			Keys:   []string{"id", "candidate_id", "category", "kind", "value", "occurred_at"},
			Values: []interface{}{"r2", "c9", "garden", "like", 1.0, nil},
		}

		_, err := interactionFromRecord("u1", record)
		assert.Error(t, err)
	})
}

func TestRankingCache_Key(t *testing.T) {
	cache := NewRankingCache(nil, time.Minute, newTestLogger())

	cfg := models.DefaultRankingConfig()
	k1, err := cache.Key("u1", cfg, []string{"c1", "c2"}, testNow)
	require.NoError(t, err)
	k2, err := cache.Key("u1", cfg, []string{"c1", "c2"}, testNow)
	require.NoError(t, err)
	k3, err := cache.Key("u1", cfg, []string{"c2", "c1"}, testNow)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.True(t, strings.HasPrefix(k1, "ranking:u1:"))

	_, err = cache.Key("u1", make(chan int))
	assert.Error(t, err)
}

func TestRankingCache_NilClient(t *testing.T) {
	cache := NewRankingCache(nil, time.Minute, newTestLogger())
	ctx := context.Background()

	cache.Set(ctx, "ranking:u1:x", &models.RankedList{EntityID: "u1"})
	_, ok := cache.Get(ctx, "ranking:u1:x")
	assert.False(t, ok)
	assert.NoError(t, cache.Invalidate(ctx, "u1"))
	assert.NoError(t, cache.Ping(ctx))
}
