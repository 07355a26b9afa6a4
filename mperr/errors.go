// Package mperr defines the error kinds named in spec section 7 as
// sentinel errors usable with errors.Is, plus the aggregate error type
// returned by Execute when one or more domains fail combination.
package mperr

import (
	"errors"
	"fmt"
)

var (
	// ErrOptionMalformed: unknown key, wrong shape, out-of-range selection.
	// Surfaced from Initialize; the pipeline does not run.
	ErrOptionMalformed = errors.New("option malformed")

	// ErrSelectionInapplicable: a selection kind incompatible with the
	// referenced topology. Surfaced from Initialize.
	ErrSelectionInapplicable = errors.New("selection inapplicable to topology")

	// ErrIDsOutOfRange: explicit/ranges selection references an element
	// beyond the topology's element count. Raised by the selection's
	// Applicable check and surfaced from Initialize, wrapped together with
	// ErrSelectionInapplicable; extraction itself clamps ids and does not
	// raise it.
	ErrIDsOutOfRange = errors.New("selection ids out of range")

	// ErrCombinationConflict: field association mismatch or dtype conflict
	// between inputs targeting one domain. Scoped to the offending domain.
	ErrCombinationConflict = errors.New("combination conflict")

	// ErrReservedDomainsExceedTarget is a non-fatal condition: warn and
	// clamp, never fatal (spec section 7).
	ErrReservedDomainsExceedTarget = errors.New("reserved destination domains exceed target")
)

// DomainError scopes an error to one destination domain id, per spec
// section 7's combination-conflict propagation policy.
type DomainError struct {
	DomainID int
	Err      error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain %d: %v", e.DomainID, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// CombineErrors aggregates per-domain combination failures. Execute
// returns a non-nil *CombineErrors only if at least one domain failed;
// other domains still complete and appear in the output (spec section 7).
type CombineErrors struct {
	Failures []*DomainError
}

func (e *CombineErrors) Error() string {
	if len(e.Failures) == 1 {
		return e.Failures[0].Error()
	}
	return fmt.Sprintf("%d domains failed combination (first: %v)", len(e.Failures), e.Failures[0])
}

func (e *CombineErrors) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}

// Add appends a scoped failure and returns the receiver, creating it if
// nil, for convenient accumulation in the combiner loop.
func (e *CombineErrors) Add(domainID int, err error) *CombineErrors {
	if e == nil {
		e = &CombineErrors{}
	}
	e.Failures = append(e.Failures, &DomainError{DomainID: domainID, Err: err})
	return e
}
