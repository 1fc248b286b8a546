package profile

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/signalrank/pkg/models"
)

var now = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestDecay(t *testing.T) {
	halfLife := 10 * 24 * time.Hour

	assert.InDelta(t, 1.0, Decay(0, halfLife), 1e-9)
	assert.InDelta(t, 0.5, Decay(halfLife, halfLife), 1e-9)
	assert.InDelta(t, 0.25, Decay(2*halfLife, halfLife), 1e-9)
	assert.InDelta(t, 1.0, Decay(-time.Hour, halfLife), 1e-9)
	assert.InDelta(t, 0.5, Decay(DefaultHalfLife, 0), 1e-9)
}

func TestCategoryAffinity(t *testing.T) {
	opts := Options{HalfLife: 30 * 24 * time.Hour, KindWeights: map[string]float64{"purchase": 3, "view": 0.5}}
	history := []models.InteractionRecord{
		{Category: "Books", Kind: "purchase", Timestamp: now},
		{Category: "books", Kind: "view", Timestamp: now.Add(-30 * 24 * time.Hour)},
		{Category: "toys", Kind: "unknown", Timestamp: now.Add(24 * time.Hour)},
		{Category: "", Kind: "purchase", Timestamp: now},
		{Category: "games", Kind: "purchase"},
		{Category: "games", Kind: "rating", Value: math.NaN(), Timestamp: now},
	}

	affinity := CategoryAffinity(history, now, opts)

	require.Len(t, affinity, 2)
	assert.InDelta(t, 3.25, affinity["books"], 1e-9)
	assert.InDelta(t, 1.0, affinity["toys"], 1e-9)
}

func TestExtractPreferences(t *testing.T) {
	history := []models.InteractionRecord{
		{Category: "books", Kind: "purchase", Timestamp: now},
		{Category: "books", Kind: "purchase", Timestamp: now},
		{Category: "toys", Kind: "purchase", Timestamp: now},
	}

	prefs := ExtractPreferences(history, now, DefaultOptions())
	assert.Equal(t, map[string]float64{"books": 5, "toys": 2.5}, prefs)

	assert.Empty(t, ExtractPreferences(nil, now, DefaultOptions()))
}

func TestMergePreferences(t *testing.T) {
	merged := MergePreferences(
		map[string]float64{"Books": 2, "music": 1},
		map[string]float64{"books": 5, "toys": 2},
		0.5,
	)
	assert.Equal(t, map[string]float64{"books": 4.5, "music": 1, "toys": 1}, merged)
}

func TestTopCategories(t *testing.T) {
	prefs := map[string]float64{"a": 1, "b": 3, "c": 3, "d": 2}
	assert.Equal(t, []string{"b", "c"}, TopCategories(prefs, 2))
	assert.Equal(t, []string{"b", "c", "d", "a"}, TopCategories(prefs, 10))
}

func TestSeasonalPeaks(t *testing.T) {
	var records []models.InteractionRecord
	add := func(category string, month time.Month, n int) {
		for i := 0; i < n; i++ {
			records = append(records, models.InteractionRecord{
				Category:  category,
				Timestamp: time.Date(2023, month, 10, 0, 0, 0, 0, time.UTC),
			})
		}
	}
	for m := time.January; m <= time.December; m++ {
		add("toys", m, 2)
		add("garden", m, 1)
	}
	add("toys", time.December, 20)
	add("rare", time.March, 3)

	s := BuildSeasonal(records, 1.5, 12, now)

	assert.True(t, s.Peaks("Toys", time.December))
	assert.False(t, s.Peaks("toys", time.July))
	assert.Equal(t, []time.Month{time.December}, s.PeakMonths("toys"))
	assert.Empty(t, s.PeakMonths("garden"))
	assert.False(t, s.Peaks("rare", time.March), "too few samples")
	assert.False(t, s.Peaks("missing", time.March))
	assert.Equal(t, 3, s.Categories())

	var empty *Seasonal
	assert.False(t, empty.Peaks("toys", time.December))
}

func TestBuildSeasonalFromCounts(t *testing.T) {
	counts := []MonthlyCount{
		{Category: "Flowers", Month: time.February, Count: 40},
		{Category: "flowers", Month: time.May, Count: 30},
		{Category: "flowers", Month: time.August, Count: 2},
		{Category: "", Month: time.May, Count: 100},
		{Category: "flowers", Month: 13, Count: 100},
	}

	s := BuildSeasonalFromCounts(counts, 0, 10, now)

	assert.Equal(t, []time.Month{time.February, time.May}, s.PeakMonths("flowers"))
	assert.Equal(t, 1, s.Categories())
	assert.Equal(t, now, s.BuiltAt())
}
