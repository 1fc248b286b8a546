package ranking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned before any computation when the
	// engine or a RankingConfig is malformed.
	ErrInvalidConfiguration = errors.New("invalid ranking configuration")
	// ErrAllSignalsFailed is returned when every source failed for every candidate.
	ErrAllSignalsFailed = errors.New("all signal sources failed")
	// ErrInvalidInput is returned when the invocation itself is unusable.
	ErrInvalidInput = errors.New("invalid ranking input")
	// ErrDuplicateSource is returned by NewEngine when two sources share a name.
	ErrDuplicateSource = errors.New("duplicate signal source")
)

// SourceError describes a failure of one signal source.
type SourceError struct {
	Source     string
	Candidates int // number of failed candidates, 0 when the whole source failed
	Err        error
}

func (e *SourceError) Error() string {
	if e.Candidates > 0 {
		return fmt.Sprintf("signal source %s failed for %d candidates: %v", e.Source, e.Candidates, e.Err)
	}
	return fmt.Sprintf("signal source %s failed: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func invalidConfig(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
}
