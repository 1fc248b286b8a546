package ranking

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/temcen/signalrank/pkg/models"
)

// Constraint is a hard filter. A rejected candidate is removed regardless of score.
type Constraint interface {
	Name() string
	Stage() models.Stage
	// Allow decides on a candidate. score is nil for pre-stage constraints.
	Allow(c *models.Candidate, score *ConstraintScore, now time.Time) (bool, error)
}

// ConstraintScore exposes scoring results to post-stage constraints.
type ConstraintScore struct {
	Score     float64
	Composite float64
	Signals   map[string]float64
}

// BuildConstraints compiles the hard constraints of a configuration.
func BuildConstraints(cfg models.ConstraintConfig) ([]Constraint, error) {
	var constraints []Constraint

	if cfg.InStockOnly {
		constraints = append(constraints, stockConstraint{})
	}
	if cfg.Price != nil {
		constraints = append(constraints, priceConstraint{rng: *cfg.Price, stage: stageOrPre(cfg.PriceStage)})
	}
	if len(cfg.ExcludedCategories) > 0 {
		excluded := mapset.NewSet[string]()
		for _, c := range cfg.ExcludedCategories {
			if key := models.NormalizeKey(c); key != "" {
				excluded.Add(key)
			}
		}
		constraints = append(constraints, categoryConstraint{excluded: excluded})
	}
	for i, e := range cfg.Expressions {
		c, err := compileExpression(i, e)
		if err != nil {
			return nil, err
		}
		constraints = append(constraints, c)
	}

	return constraints, nil
}

func stageOrPre(s models.Stage) models.Stage {
	if s == "" {
		return models.StagePre
	}
	return s
}

type stockConstraint struct{}

func (stockConstraint) Name() string        { return "in_stock" }
func (stockConstraint) Stage() models.Stage { return models.StagePre }

func (stockConstraint) Allow(c *models.Candidate, _ *ConstraintScore, _ time.Time) (bool, error) {
	return c.InStock(), nil
}

type priceConstraint struct {
	rng   models.PriceRange
	stage models.Stage
}

func (p priceConstraint) Name() string        { return "price_range" }
func (p priceConstraint) Stage() models.Stage { return p.stage }

func (p priceConstraint) Allow(c *models.Candidate, _ *ConstraintScore, _ time.Time) (bool, error) {
	return p.rng.Contains(c.Price), nil
}

type categoryConstraint struct {
	excluded mapset.Set[string]
}

func (categoryConstraint) Name() string        { return "excluded_category" }
func (categoryConstraint) Stage() models.Stage { return models.StagePre }

func (e categoryConstraint) Allow(c *models.Candidate, _ *ConstraintScore, _ time.Time) (bool, error) {
	for _, key := range c.Keys() {
		if e.excluded.Contains(key) {
			return false, nil
		}
	}
	return true, nil
}

// exprCandidate is the view of a candidate visible to constraint expressions.
type exprCandidate struct {
	ID       string
	Category string
	Tags     []string
	Price    float64
	Stock    int
	InStock  bool
	Quality  float64
	AgeDays  float64
	Views    int64
}

type exprConstraint struct {
	name    string
	stage   models.Stage
	program *vm.Program
}

func exprEnv(c *models.Candidate, score *ConstraintScore, now time.Time) map[string]any {
	view := exprCandidate{
		ID:       c.ID,
		Category: c.GroupKey(),
		Tags:     c.Keys(),
		Price:    c.Price,
		Stock:    -1,
		InStock:  c.InStock(),
		Quality:  c.Quality,
		Views:    c.Engagement.Views,
	}
	if c.Stock != nil {
		view.Stock = *c.Stock
	}
	if !c.PublishedAt.IsZero() {
		view.AgeDays = now.Sub(c.PublishedAt).Hours() / 24
	}

	env := map[string]any{
		"candidate": view,
		"score":     0.0,
		"composite": 0.0,
		"signals":   map[string]float64{},
	}
	if score != nil {
		env["score"] = score.Score
		env["composite"] = score.Composite
		env["signals"] = score.Signals
	}
	return env
}

func compileExpression(index int, e models.ExpressionConstraint) (Constraint, error) {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("expression_%d", index)
	}
	program, err := expr.Compile(e.Expr,
		expr.Env(exprEnv(&models.Candidate{}, nil, time.Time{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile constraint %s: %w", name, err)
	}
	return &exprConstraint{name: name, stage: stageOrPre(e.Stage), program: program}, nil
}

func (e *exprConstraint) Name() string        { return e.name }
func (e *exprConstraint) Stage() models.Stage { return e.stage }

func (e *exprConstraint) Allow(c *models.Candidate, score *ConstraintScore, now time.Time) (bool, error) {
	out, err := expr.Run(e.program, exprEnv(c, score, now))
	if err != nil {
		return false, err
	}
	allowed, _ := out.(bool)
	return allowed, nil
}
