package score

import (
	"errors"
	"fmt"
)

// ErrNoSameDomainScore is recorded for a word that has a cross-domain score
// but no same-domain score to combine it with.
var ErrNoSameDomainScore = errors.New("no same-domain score")

// DomainEmptyError reports a domain with too few usable members for a
// computation. It is fatal for that domain's scores only.
type DomainEmptyError struct {
	Domain   string
	Members  int
	Required int
}

func (e *DomainEmptyError) Error() string {
	return fmt.Sprintf("domain %s has %d usable members, need at least %d", e.Domain, e.Members, e.Required)
}

// NumericOverflowError reports an exponential or power computation that left
// the representable range for a word.
type NumericOverflowError struct {
	Word string
	Op   string
}

func (e *NumericOverflowError) Error() string {
	return fmt.Sprintf("numeric overflow computing %s for %q", e.Op, e.Word)
}

// InvalidParameterError reports a scoring parameter outside its valid range.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s=%g: %s", e.Name, e.Value, e.Reason)
}

// Stage names the computation a WordError came from.
type Stage string

const (
	StageCentroid Stage = "centroid"
	StageCross    Stage = "cross-domain"
	StageSame     Stage = "same-domain"
	StageCombine  Stage = "combine"
)

// WordError is the failure variant of a per-word result. Word is empty when
// the failure applies to the whole domain.
type WordError struct {
	Stage  Stage  `json:"stage" yaml:"stage"`
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Word   string `json:"word,omitempty" yaml:"word,omitempty"`
	Err    error  `json:"-" yaml:"-"`
}

func (e WordError) Error() string {
	if e.Word == "" {
		return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Domain, e.Err)
	}
	return fmt.Sprintf("%s [%s/%s]: %v", e.Stage, e.Domain, e.Word, e.Err)
}

func (e WordError) Unwrap() error {
	return e.Err
}

// Message returns the underlying error text for reports.
func (e WordError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
