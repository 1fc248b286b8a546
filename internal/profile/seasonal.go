package profile

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/temcen/signalrank/pkg/models"
)

const (
	// DefaultPeakFactor marks a month as a peak when its count exceeds the
	// category's monthly mean by this factor.
	DefaultPeakFactor = 1.5
	// DefaultMinSamples is the number of records a category needs before peaks are trusted.
	DefaultMinSamples = 12
)

// Seasonal holds monthly interaction counts per category, aggregated across entities.
// It is immutable once built.
type Seasonal struct {
	counts     map[string]*[12]float64
	peakFactor float64
	minSamples int
	builtAt    time.Time
}

// MonthlyCount is the number of interactions with a category in one calendar month.
type MonthlyCount struct {
	Category string
	Month    time.Month
	Count    float64
}

// BuildSeasonal aggregates interaction timestamps into monthly buckets.
func BuildSeasonal(records []models.InteractionRecord, peakFactor float64, minSamples int, builtAt time.Time) *Seasonal {
	counts := make([]MonthlyCount, 0, len(records))
	for _, r := range records {
		if !Usable(r) {
			continue
		}
		counts = append(counts, MonthlyCount{Category: r.Category, Month: r.Timestamp.UTC().Month(), Count: 1})
	}
	return BuildSeasonalFromCounts(counts, peakFactor, minSamples, builtAt)
}

// BuildSeasonalFromCounts builds a profile from pre-aggregated monthly counts.
func BuildSeasonalFromCounts(counts []MonthlyCount, peakFactor float64, minSamples int, builtAt time.Time) *Seasonal {
	if peakFactor <= 0 {
		peakFactor = DefaultPeakFactor
	}
	s := &Seasonal{
		counts:     make(map[string]*[12]float64),
		peakFactor: peakFactor,
		minSamples: minSamples,
		builtAt:    builtAt,
	}
	for _, c := range counts {
		key := models.NormalizeKey(c.Category)
		if key == "" || c.Month < time.January || c.Month > time.December || c.Count <= 0 {
			continue
		}
		months, ok := s.counts[key]
		if !ok {
			months = &[12]float64{}
			s.counts[key] = months
		}
		months[c.Month-1] += c.Count
	}
	return s
}

// Peaks reports whether category historically peaks in month.
func (s *Seasonal) Peaks(category string, month time.Month) bool {
	if s == nil {
		return false
	}
	months, ok := s.counts[models.NormalizeKey(category)]
	if !ok {
		return false
	}

	var total float64
	for _, c := range months {
		total += c
	}
	if total < float64(s.minSamples) {
		return false
	}

	mean := stat.Mean(months[:], nil)
	return months[month-1] >= mean*s.peakFactor
}

// PeakMonths lists the peak months of a category in calendar order.
func (s *Seasonal) PeakMonths(category string) []time.Month {
	var peaks []time.Month
	for m := time.January; m <= time.December; m++ {
		if s.Peaks(category, m) {
			peaks = append(peaks, m)
		}
	}
	return peaks
}

// Categories returns the number of categories with data.
func (s *Seasonal) Categories() int {
	if s == nil {
		return 0
	}
	return len(s.counts)
}

// BuiltAt is the time the profile was aggregated.
func (s *Seasonal) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}
