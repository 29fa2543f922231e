package common

import (
	"errors"
	"fmt"
)

// FaultKind classifies a failure by how the pipeline should react to it.
type FaultKind string

const (
	// FaultTransient covers failures expected to clear on retry: network
	// timeouts, broker hiccups, provider rate limits.
	FaultTransient FaultKind = "transient"
	// FaultPermanentInput marks a message or document that can never
	// succeed: malformed keys, empty PDFs, unknown companies. The item is
	// recorded as failed and never retried.
	FaultPermanentInput FaultKind = "permanent_input"
	// FaultPermanentSystem marks misconfiguration or missing infrastructure.
	// Processes fail fast on these rather than consuming work.
	FaultPermanentSystem FaultKind = "permanent_system"
	// FaultPartial marks an operation that completed with some items failed;
	// successes are kept and the failures reported.
	FaultPartial FaultKind = "partial"
)

// Fault wraps an error with its pipeline classification.
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Transient wraps err as a retryable fault.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: FaultTransient, Err: err}
}

// PermanentInput wraps err as an unretryable input fault.
func PermanentInput(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: FaultPermanentInput, Err: err}
}

// PermanentSystem wraps err as a fail-fast system fault.
func PermanentSystem(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: FaultPermanentSystem, Err: err}
}

// Partial wraps err as a partial-result fault.
func Partial(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: FaultPartial, Err: err}
}

// KindOf returns the classification of err. Unclassified errors are treated
// as transient so unknown failures get retried rather than dropped.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return FaultTransient
}

// IsRetryable reports whether err should be retried.
func IsRetryable(err error) bool {
	return KindOf(err) == FaultTransient
}
