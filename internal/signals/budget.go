package signals

import (
	"math"

	"github.com/temcen/signalrank/internal/ranking"
	"github.com/temcen/signalrank/pkg/models"
)

// BudgetSource rewards candidates priced close to the top of the entity's budget.
type BudgetSource struct{}

func NewBudgetSource() *BudgetSource {
	return &BudgetSource{}
}

func (s *BudgetSource) Name() string { return Budget }

func (s *BudgetSource) Normalization() ranking.Normalization { return ranking.Probability }

func (s *BudgetSource) Compute(inv *ranking.Invocation) (*ranking.SignalResult, error) {
	budget := inv.Entity.Budget
	if budget == nil || budget.Max <= 0 {
		return ranking.NewSignalResult(), nil
	}
	target := budget.Max

	return ranking.EachCandidate(inv, func(_ *ranking.Invocation, c *models.Candidate) (ranking.SignalValue, bool, error) {
		if c.Price <= 0 || !budget.Contains(c.Price) {
			return ranking.SignalValue{}, false, nil
		}
		fit := 1 - math.Abs(c.Price-target)/target
		return ranking.SignalValue{Raw: fit, Rationale: "Fits your budget"}, true, nil
	}), nil
}
