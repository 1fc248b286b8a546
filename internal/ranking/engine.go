package ranking

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/pkg/models"
)

// Engine turns independent signal sources into a ranked, diversified and explained list.
// An Engine holds no per-invocation state and is safe for concurrent use.
type Engine struct {
	sources []registeredSource
	byName  map[string]int
	logger  *logrus.Logger
	metrics *Metrics
}

type registeredSource struct {
	source     SignalSource
	rule       Normalization
	contextual bool
	mode       MultiplierMode
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics records invocation metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine registers the signal sources. Source names must be unique and non-empty.
func NewEngine(sources []SignalSource, logger *logrus.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		byName: make(map[string]int, len(sources)),
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, src := range sources {
		if src == nil {
			return nil, invalidConfig(errors.New("nil signal source"))
		}
		name := src.Name()
		if name == "" {
			return nil, invalidConfig(errors.New("signal source with empty name"))
		}
		if _, exists := e.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, name)
		}

		rule := normalizationOf(src)
		if err := rule.validate(); err != nil {
			return nil, invalidConfig(fmt.Errorf("source %s: %w", name, err))
		}

		reg := registeredSource{source: src, rule: rule}
		if c, ok := src.(Contextual); ok {
			reg.contextual = true
			reg.mode = c.MultiplierMode()
		}
		e.byName[name] = len(e.sources)
		e.sources = append(e.sources, reg)
	}

	return e, nil
}

// SourceNames lists the registered sources in registration order.
func (e *Engine) SourceNames() []string {
	return lo.Map(e.sources, func(r registeredSource, _ int) string { return r.source.Name() })
}

// sourceRun holds one source's output for one invocation, aligned to the candidate pool.
type sourceRun struct {
	name       string
	contextual bool
	mode       MultiplierMode
	weight     float64
	rule       Normalization

	result *SignalResult
	err    error
	failed int

	raw        []float64
	normalized []float64
	emitted    []bool
	rationales []string
	factors    []float64
}

func (r *sourceRun) degraded() bool {
	return r.err != nil || r.failed > 0
}

// Rank produces the ranked list for one entity over a candidate snapshot.
// The same inputs always produce the same list.
func (e *Engine) Rank(entity *models.Entity, candidates []models.Candidate, cfg models.RankingConfig, now time.Time) (*models.RankedList, error) {
	started := time.Now()

	list, err := e.rank(entity, candidates, cfg, now)
	switch {
	case err == nil:
		e.metrics.observe("success", started, len(list.Items))
	case errors.Is(err, ErrAllSignalsFailed):
		e.metrics.observe("all_failed", started, 0)
	default:
		e.metrics.observe("invalid", started, 0)
	}
	return list, err
}

func (e *Engine) rank(entity *models.Entity, candidates []models.Candidate, cfg models.RankingConfig, now time.Time) (*models.RankedList, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: entity is required", ErrInvalidInput)
	}
	if err := e.validate(&cfg); err != nil {
		return nil, err
	}
	constraints, err := BuildConstraints(cfg.Constraints)
	if err != nil {
		return nil, invalidConfig(err)
	}

	list := &models.RankedList{
		EntityID:    entity.ID,
		Items:       []models.ScoredCandidate{},
		GeneratedAt: now,
	}

	pool := e.prepare(candidates, constraints, now)
	if len(pool) == 0 {
		return list, nil
	}

	inv := &Invocation{Entity: entity, Candidates: pool, Config: &cfg, Now: now}
	runs := e.fanOut(inv)
	if len(runs) == 0 {
		return list, nil
	}

	index := make(map[string]int, len(pool))
	for i := range pool {
		index[pool[i].ID] = i
	}
	san := &sanitizer{logger: e.logger, metrics: e.metrics}
	for _, run := range runs {
		e.collect(run, index, len(pool), san)
	}

	if err := allFailed(runs, len(pool)); err != nil {
		return nil, err
	}
	list.DegradedSources = degradedSources(runs)

	eligible := eligibleIndexes(runs, len(pool))
	composite := aggregate(runs, len(pool))
	if cfg.BoundedOutput {
		rescale(composite, eligible)
	}
	factors := multipliers(runs, &cfg, len(pool))

	items := make([]*scored, 0, len(eligible))
	for _, idx := range eligible {
		s := &scored{
			candidate:  &pool[idx],
			index:      idx,
			composite:  composite[idx],
			multiplier: factors[idx],
			group:      pool[idx].GroupKey(),
		}
		s.final = s.composite * s.multiplier
		if cfg.BoundedOutput {
			s.final = clamp01(s.final)
		}
		if !e.allowed(constraints, models.StagePost, s.candidate, &ConstraintScore{
			Score:     s.final,
			Composite: s.composite,
			Signals:   signalBreakdown(s, runs),
		}, now) {
			continue
		}
		items = append(items, s)
	}
	list.Eligible = len(items)

	for i, s := range selectTop(items, &cfg) {
		list.Items = append(list.Items, models.ScoredCandidate{
			CandidateID: s.candidate.ID,
			Score:       s.final,
			Composite:   s.composite,
			Multiplier:  s.multiplier,
			Signals:     signalBreakdown(s, runs),
			Rationales:  explain(s, runs, cfg.MaxRationales),
			GroupKey:    s.group,
			Position:    i + 1,
		})
	}

	e.logger.WithFields(logrus.Fields{
		"entity_id":        entity.ID,
		"pool_size":        len(pool),
		"eligible":         list.Eligible,
		"returned":         len(list.Items),
		"degraded_sources": list.DegradedSources,
	}).Debug("Ranking completed")

	return list, nil
}

func (e *Engine) validate(cfg *models.RankingConfig) error {
	var errs []error
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	for name := range cfg.Weights {
		if _, ok := e.byName[name]; !ok {
			errs = append(errs, fmt.Errorf("weight for unknown source %q", name))
		}
	}
	for name := range cfg.ContextualFactors {
		i, ok := e.byName[name]
		if !ok || !e.sources[i].contextual {
			errs = append(errs, fmt.Errorf("contextual factor %q does not name a contextual source", name))
		}
	}
	if len(errs) > 0 {
		return invalidConfig(errors.Join(errs...))
	}
	return nil
}

// prepare copies the caller's candidates, drops duplicate IDs (first wins)
// and applies pre-scoring constraints.
func (e *Engine) prepare(candidates []models.Candidate, constraints []Constraint, now time.Time) []models.Candidate {
	pool := lo.UniqBy(lo.Filter(candidates, func(c models.Candidate, _ int) bool {
		return c.ID != ""
	}), func(c models.Candidate) string {
		return c.ID
	})
	if dropped := len(candidates) - len(pool); dropped > 0 {
		e.logger.WithField("dropped", dropped).Warn("Ignoring candidates with empty or duplicate IDs")
	}

	return lo.Filter(pool, func(c models.Candidate, _ int) bool {
		return e.allowed(constraints, models.StagePre, &c, nil, now)
	})
}

func (e *Engine) allowed(constraints []Constraint, stage models.Stage, c *models.Candidate, score *ConstraintScore, now time.Time) bool {
	for _, con := range constraints {
		if con.Stage() != stage {
			continue
		}
		ok, err := con.Allow(c, score, now)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"constraint":   con.Name(),
				"candidate_id": c.ID,
			}).WithError(err).Warn("Constraint evaluation failed, excluding candidate")
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// fanOut computes every participating source concurrently and waits for all of them.
// Scoring sources with zero weight do not participate.
func (e *Engine) fanOut(inv *Invocation) []*sourceRun {
	var runs []*sourceRun
	for _, reg := range e.sources {
		name := reg.source.Name()
		weight := inv.Config.Weight(name)
		if !reg.contextual && weight == 0 {
			continue
		}
		runs = append(runs, &sourceRun{
			name:       name,
			contextual: reg.contextual,
			mode:       reg.mode,
			weight:     weight,
			rule:       reg.rule,
		})
	}

	var wg sync.WaitGroup
	for _, run := range runs {
		src := e.sources[e.byName[run.name]].source
		wg.Add(1)
		go func(run *sourceRun, src SignalSource) {
			defer wg.Done()
			run.result, run.err = compute(src, inv)
		}(run, src)
	}
	wg.Wait()

	return runs
}

func compute(src SignalSource, inv *Invocation) (result *SignalResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	result, err = src.Compute(inv)
	if err == nil && result == nil {
		result = NewSignalResult()
	}
	return result, err
}

// collect aligns a source's result with the pool and sanitizes raw values.
func (e *Engine) collect(run *sourceRun, index map[string]int, poolSize int, san *sanitizer) {
	run.raw = make([]float64, poolSize)
	run.emitted = make([]bool, poolSize)
	run.rationales = make([]string, poolSize)

	if run.err != nil {
		e.logger.WithField("source", run.name).WithError(run.err).Warn("Signal source failed")
		e.metrics.sourceFailed(run.name)
		run.normalized = make([]float64, poolSize)
		return
	}

	for id, ferr := range run.result.Failed {
		if _, ok := index[id]; !ok {
			continue
		}
		run.failed++
		e.logger.WithFields(logrus.Fields{
			"source":       run.name,
			"candidate_id": id,
		}).WithError(ferr).Warn("Signal source failed for candidate")
	}
	if run.failed > 0 {
		e.metrics.sourceFailed(run.name)
	}

	for id, v := range run.result.Values {
		i, ok := index[id]
		if !ok {
			continue
		}
		if _, failed := run.result.Failed[id]; failed {
			continue
		}
		run.raw[i] = san.clean(run.name, id, v.Raw)
		run.emitted[i] = true
		run.rationales[i] = v.Rationale
	}

	run.normalized = normalize(run.rule, run.raw)
}

// allFailed reports ErrAllSignalsFailed when no scoring source produced anything usable.
func allFailed(runs []*sourceRun, poolSize int) error {
	var errs []error
	scoring := 0
	for _, run := range runs {
		if run.contextual {
			continue
		}
		scoring++
		switch {
		case run.err != nil:
			errs = append(errs, &SourceError{Source: run.name, Err: run.err})
		case run.failed == poolSize:
			errs = append(errs, &SourceError{Source: run.name, Candidates: run.failed, Err: errors.New("no candidate could be scored")})
		default:
			return nil
		}
	}
	if scoring == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAllSignalsFailed, errors.Join(errs...))
}

func degradedSources(runs []*sourceRun) []string {
	names := lo.FilterMap(runs, func(run *sourceRun, _ int) (string, bool) {
		return run.name, run.degraded()
	})
	sort.Strings(names)
	return names
}

// eligibleIndexes returns pool indexes emitted by at least one scoring source.
func eligibleIndexes(runs []*sourceRun, poolSize int) []int {
	var eligible []int
	for i := 0; i < poolSize; i++ {
		for _, run := range runs {
			if !run.contextual && run.emitted[i] {
				eligible = append(eligible, i)
				break
			}
		}
	}
	return eligible
}
