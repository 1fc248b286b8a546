package ranking

import (
	"fmt"
	"time"

	"github.com/temcen/signalrank/pkg/models"
)

// Invocation carries the read-only inputs of one ranking call.
type Invocation struct {
	Entity     *models.Entity
	Candidates []models.Candidate
	Config     *models.RankingConfig
	Now        time.Time
}

// SignalValue is the raw, unnormalized affinity a source assigns to one candidate.
type SignalValue struct {
	Raw       float64
	Rationale string
}

// SignalResult maps candidate IDs to raw values. Failed records candidates the
// source could not score; their contribution is treated as zero.
type SignalResult struct {
	Values map[string]SignalValue
	Failed map[string]error
}

// NewSignalResult returns an empty result ready for use.
func NewSignalResult() *SignalResult {
	return &SignalResult{
		Values: make(map[string]SignalValue),
		Failed: make(map[string]error),
	}
}

// Set records a value for a candidate.
func (r *SignalResult) Set(candidateID string, raw float64, rationale string) {
	r.Values[candidateID] = SignalValue{Raw: raw, Rationale: rationale}
}

// Fail marks a candidate as unscorable by this source.
func (r *SignalResult) Fail(candidateID string, err error) {
	delete(r.Values, candidateID)
	r.Failed[candidateID] = err
}

// SignalSource computes one independent signal for every candidate of an invocation.
// Implementations must not mutate the invocation. Returning an error or panicking
// marks the whole source as failed for this invocation only.
type SignalSource interface {
	Name() string
	Compute(inv *Invocation) (*SignalResult, error)
}

// Scaled is implemented by sources whose raw values need a rule other than min-max.
type Scaled interface {
	Normalization() Normalization
}

// MultiplierMode controls how a contextual source turns its signal into a factor.
type MultiplierMode int

const (
	// Boost maps a normalized value v to 1 + v*(max-1).
	Boost MultiplierMode = iota
	// Direct uses the raw value itself as the factor; omitted candidates get 1.
	Direct
)

func (m MultiplierMode) String() string {
	switch m {
	case Boost:
		return "boost"
	case Direct:
		return "direct"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Contextual is implemented by sources that feed the contextual multiplier
// instead of the weighted aggregate.
type Contextual interface {
	MultiplierMode() MultiplierMode
}

// CandidateFunc scores a single candidate. Returning ok=false omits the candidate.
type CandidateFunc func(inv *Invocation, c *models.Candidate) (value SignalValue, ok bool, err error)

// EachCandidate applies fn to every candidate, isolating errors and panics to
// the candidate that caused them.
func EachCandidate(inv *Invocation, fn CandidateFunc) *SignalResult {
	result := NewSignalResult()
	for i := range inv.Candidates {
		c := &inv.Candidates[i]
		value, ok, err := scoreOne(inv, c, fn)
		switch {
		case err != nil:
			result.Fail(c.ID, err)
		case ok:
			result.Values[c.ID] = value
		}
	}
	return result
}

func scoreOne(inv *Invocation, c *models.Candidate, fn CandidateFunc) (value SignalValue, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic scoring candidate %s: %v", c.ID, r)
		}
	}()
	return fn(inv, c)
}

type funcSource struct {
	name string
	fn   CandidateFunc
}

// NewFuncSource adapts a CandidateFunc into a SignalSource.
func NewFuncSource(name string, fn CandidateFunc) SignalSource {
	return &funcSource{name: name, fn: fn}
}

func (s *funcSource) Name() string { return s.name }

func (s *funcSource) Compute(inv *Invocation) (*SignalResult, error) {
	return EachCandidate(inv, s.fn), nil
}
