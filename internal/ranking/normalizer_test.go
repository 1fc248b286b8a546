package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/temcen/signalrank/pkg/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		rule     Normalization
		raw      []float64
		expected []float64
	}{
		{"min max", Normalization{Method: MinMax}, []float64{2, 4, 6}, []float64{0, 0.5, 1}},
		{"flat pool is zero", Normalization{Method: MinMax}, []float64{3, 3, 3}, []float64{0, 0, 0}},
		{"all zero", Normalization{Method: MinMax}, []float64{0, 0}, []float64{0, 0}},
		{"frequency ratio", Normalization{Method: FrequencyRatio}, []float64{1, 3}, []float64{0.25, 0.75}},
		{"frequency ratio of zeros", Normalization{Method: FrequencyRatio}, []float64{0, 0}, []float64{0, 0}},
		{"probability passes through", Probability, []float64{0.2, 0.9}, []float64{0.2, 0.9}},
		{"fixed range clamps", Range(10, 20), []float64{5, 15, 25}, []float64{0, 0.5, 1}},
		{"empty", Normalization{Method: MinMax}, nil, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.rule, tt.raw)
			assert.InDeltaSlice(t, tt.expected, got, 1e-9)
		})
	}
}

func TestSanitizerClean(t *testing.T) {
	s := &sanitizer{logger: newTestLogger()}

	assert.Equal(t, 0.0, s.clean("a", "C1", math.NaN()))
	assert.Equal(t, 0.0, s.clean("a", "C1", math.Inf(1)))
	assert.Equal(t, 0.0, s.clean("a", "C1", -0.5))
	assert.Equal(t, 0.0, s.clean("a", "C1", math.Inf(-1)))
	assert.Equal(t, 2.5, s.clean("a", "C1", 2.5))
}

func TestNormalizationValidate(t *testing.T) {
	assert.NoError(t, Normalization{Method: MinMax}.validate())
	assert.NoError(t, Probability.validate())
	assert.Error(t, Range(2, 1).validate())
	assert.Error(t, Normalization{Method: Method(42)}.validate())
}

func TestFactor(t *testing.T) {
	rng := models.MultiplierRange{Min: 0.8, Max: 1.5}

	assert.Equal(t, 1.0, factor(Boost, false, 0, 0, rng))
	assert.InDelta(t, 1.25, factor(Boost, true, 7, 0.5, rng), 1e-9)
	assert.InDelta(t, 1.5, factor(Boost, true, 1, 1, rng), 1e-9)
	assert.InDelta(t, 0.8, factor(Direct, true, 0.1, 0, rng), 1e-9)
	assert.InDelta(t, 1.2, factor(Direct, true, 1.2, 0, rng), 1e-9)
	assert.Equal(t, 1.0, factor(Direct, false, 0, 0, rng))
}

func TestRescale(t *testing.T) {
	composite := []float64{2, 9, 4, 6}
	rescale(composite, []int{0, 2, 3})
	assert.InDeltaSlice(t, []float64{0, 9, 0.5, 1}, composite, 1e-9)

	flat := []float64{1.7, 0.3}
	rescale(flat, []int{0})
	assert.InDeltaSlice(t, []float64{1, 0.3}, flat, 1e-9)
}
