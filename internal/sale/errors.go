package sale

import (
	"errors"
	"fmt"
)

// ErrEmptyCart is returned when a commit is attempted on a session with
// no lines.
var ErrEmptyCart = errors.New("cart has no items")

// ValidationError reports a precondition that failed before any durable
// write was attempted. The commit can be retried after the caller fixes
// the input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// CommitError wraps a failure inside the commit protocol with the step
// it happened at. Reconcile is set when the failure left durable state
// behind, meaning the invoice row exists but inventory or cleanup did
// not finish.
type CommitError struct {
	Step          Step
	InvoiceNumber int64
	Reconcile     bool
	Err           error
}

func (e *CommitError) Error() string {
	if e.Reconcile {
		return fmt.Sprintf("sale commit failed at %s (invoice %d requires reconciliation): %v", e.Step, e.InvoiceNumber, e.Err)
	}
	return fmt.Sprintf("sale commit failed at %s: %v", e.Step, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
