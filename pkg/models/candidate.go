package models

import (
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// Candidate is an item eligible for recommendation. Candidates are supplied per
// invocation; the engine never mutates them.
type Candidate struct {
	ID          string     `json:"id" db:"id" validate:"required"`
	Category    string     `json:"category,omitempty" db:"category"`
	Tags        []string   `json:"tags,omitempty" db:"tags"`
	Price       float64    `json:"price,omitempty" db:"price" validate:"gte=0"`
	Stock       *int       `json:"stock,omitempty" db:"stock"` // nil when stock is not tracked
	Quality     float64    `json:"quality,omitempty" db:"quality"`
	PublishedAt time.Time  `json:"published_at,omitempty" db:"published_at"`
	Engagement  Engagement `json:"engagement,omitempty"`
}

// Engagement holds population-level counters for a candidate.
type Engagement struct {
	Views        int64 `json:"views" db:"views"`
	Interactions int64 `json:"interactions" db:"interactions"`
	Conversions  int64 `json:"conversions" db:"conversions"`
}

// GroupKey is the grouping key used for diversity accounting.
func (c *Candidate) GroupKey() string {
	return NormalizeKey(c.Category)
}

// InStock reports false only when stock is tracked and exhausted.
func (c *Candidate) InStock() bool {
	return c.Stock == nil || *c.Stock > 0
}

// Keys returns the normalized category followed by the normalized tags, without duplicates.
func (c *Candidate) Keys() []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	keys := make([]string, 0, len(c.Tags)+1)
	for _, raw := range append([]string{c.Category}, c.Tags...) {
		key := NormalizeKey(raw)
		if key == "" || seen.Contains(key) {
			continue
		}
		seen.Add(key)
		keys = append(keys, key)
	}
	return keys
}
