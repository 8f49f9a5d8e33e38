package jobdata

import (
	"errors"
	"fmt"
)

// Errors that abort a run before any target is fetched.
var (
	ErrSourceUnavailable = errors.New("identifier source unavailable")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// Per-target error classes.
var (
	ErrFetch            = errors.New("fetch failure")
	ErrPersist          = errors.New("persist failure")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidField     = errors.New("invalid field")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrDuplicateKey     = errors.New("duplicate primary key")
)

// FailureKind separates failures that happened before the sink from those inside it.
type FailureKind string

// Failure kinds reported through the Reporter.
const (
	FailureFetch   FailureKind = "fetch"
	FailurePersist FailureKind = "persist"
)

// Failure is an isolated per-target error. It never aborts the pool.
type Failure struct {
	Kind   FailureKind
	Target Target
	Err    error
}

// NewFailure wraps err for the given target.
func NewFailure(kind FailureKind, target Target, err error) *Failure {
	return &Failure{Kind: kind, Target: target, Err: err}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.Target.URL, f.Err)
}

// Unwrap exposes both the class sentinel and the underlying cause to errors.Is.
func (f *Failure) Unwrap() []error {
	class := ErrFetch
	if f.Kind == FailurePersist {
		class = ErrPersist
	}
	return []error{class, f.Err}
}
