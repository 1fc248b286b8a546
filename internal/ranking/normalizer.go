package ranking

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Method is a normalization rule.
type Method int

const (
	// MinMax rescales over the pool; a flat pool normalizes to all zeros.
	MinMax Method = iota
	// FrequencyRatio divides each value by the pool total.
	FrequencyRatio
	// FixedRange rescales from a declared [Min, Max] and clamps.
	FixedRange
)

// Normalization is the rule a source declares for mapping raw values into [0, 1].
type Normalization struct {
	Method Method
	Min    float64
	Max    float64
}

// Probability is the fixed [0, 1] rule for sources that already emit bounded values.
var Probability = Normalization{Method: FixedRange, Min: 0, Max: 1}

// Range declares a fixed raw range.
func Range(min, max float64) Normalization {
	return Normalization{Method: FixedRange, Min: min, Max: max}
}

func (n Normalization) validate() error {
	switch n.Method {
	case MinMax, FrequencyRatio:
		return nil
	case FixedRange:
		if math.IsNaN(n.Min) || math.IsNaN(n.Max) || n.Max <= n.Min {
			return fmt.Errorf("fixed range [%v, %v] is empty", n.Min, n.Max)
		}
		return nil
	default:
		return fmt.Errorf("unknown normalization method %d", n.Method)
	}
}

func normalizationOf(source SignalSource) Normalization {
	if s, ok := source.(Scaled); ok {
		return s.Normalization()
	}
	return Normalization{Method: MinMax}
}

// sanitizer clamps corrupt raw values before they reach the aggregate.
type sanitizer struct {
	logger  *logrus.Logger
	metrics *Metrics
}

func (s *sanitizer) clean(source, candidateID string, raw float64) float64 {
	var reason string
	switch {
	case math.IsNaN(raw):
		reason = "nan"
	case math.IsInf(raw, 1):
		reason = "inf"
	case raw < 0:
		reason = "negative"
	default:
		return raw
	}

	s.logger.WithFields(logrus.Fields{
		"source":       source,
		"candidate_id": candidateID,
		"raw_value":    raw,
		"reason":       reason,
	}).Warn("Clamping invalid signal value to zero")
	s.metrics.sanitized(source, reason)
	return 0
}

// normalize maps raw values (one per pool candidate) into [0, 1].
func normalize(rule Normalization, raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	switch rule.Method {
	case FrequencyRatio:
		total := floats.Sum(raw)
		if total <= 0 {
			return out
		}
		for i, v := range raw {
			out[i] = v / total
		}

	case FixedRange:
		span := rule.Max - rule.Min
		for i, v := range raw {
			out[i] = clamp01((v - rule.Min) / span)
		}

	default:
		lo, hi := floats.Min(raw), floats.Max(raw)
		span := hi - lo
		if span == 0 {
			return out
		}
		for i, v := range raw {
			out[i] = (v - lo) / span
		}
	}

	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
