package cascade

import (
	"errors"
	"fmt"
)

// PartialCascadeError reports a nullify pass that applied some batches
// but not all. The registry-side deletion has already committed when
// this is returned: Remaining records still point at a deleted key,
// which a later CountUsages call surfaces and Repair fixes. It is not
// retried automatically.
type PartialCascadeError struct {
	Key       string
	Nulled    int
	Remaining int
	Errs      []error
}

func (e *PartialCascadeError) Error() string {
	return fmt.Sprintf("cascade for key %s partially applied: %d nulled, %d still referencing (first error: %v)",
		e.Key, e.Nulled, e.Remaining, e.Errs[0])
}

func (e *PartialCascadeError) Unwrap() error {
	return errors.Join(e.Errs...)
}
