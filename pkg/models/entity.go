package models

import "time"

// Entity is the subject a ranking is produced for: a customer, a user or a resource.
type Entity struct {
	ID          string              `json:"id" db:"id" validate:"required"`
	Preferences map[string]float64  `json:"preferences,omitempty" db:"preferences"`
	History     []InteractionRecord `json:"history,omitempty"`
	Budget      *PriceRange         `json:"budget,omitempty"`
	Active      bool                `json:"active" db:"active"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// InteractionRecord links an entity to a candidate or a candidate category.
// Records are append-only.
type InteractionRecord struct {
	ID          string    `json:"id" db:"id"`
	EntityID    string    `json:"entity_id" db:"entity_id"`
	CandidateID string    `json:"candidate_id,omitempty" db:"candidate_id"`
	Category    string    `json:"category,omitempty" db:"category"`
	Kind        string    `json:"kind" db:"kind"` // purchase, rating, view, click ...
	Value       float64   `json:"value" db:"value"`
	Timestamp   time.Time `json:"timestamp" db:"occurred_at"`
}

// PriceRange is an inclusive price interval. A zero Max means no upper bound.
type PriceRange struct {
	Min float64 `json:"min" mapstructure:"min" validate:"gte=0"`
	Max float64 `json:"max" mapstructure:"max" validate:"gte=0"`
}

// Contains reports whether price lies inside the range.
func (r PriceRange) Contains(price float64) bool {
	if price < r.Min {
		return false
	}
	return r.Max <= 0 || price <= r.Max
}

// PreferenceUpdate is the payload for explicit preference changes.
type PreferenceUpdate struct {
	Preferences map[string]float64 `json:"preferences" validate:"required,dive,gte=0"`
	Replace     bool               `json:"replace"`
}
