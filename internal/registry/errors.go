package registry

import (
	"errors"
	"fmt"
)

// Programming errors: these indicate a caller bug, not a runtime
// condition, and are rejected before any write is attempted.
var (
	// ErrNotPermutation means the order passed to Reorder is not an
	// exact permutation of the current key set.
	ErrNotPermutation = errors.New("registry: new order is not a permutation of the current keys")

	// ErrUnknownKey means the operation named a key the registry does
	// not contain.
	ErrUnknownKey = errors.New("registry: unknown key")
)

// NotFoundError is returned by operations that need the registry to be
// loaded (or the pair to exist) when it is not.
type NotFoundError struct {
	Pair string
	Kind Kind
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("registry %s for pair %s is not loaded", e.Kind, e.Pair)
}

// CapacityError is returned when add or delete would violate the
// kind's advisory size bounds. The bounds are client-side guards only;
// concurrent writers can transiently violate them server-side.
type CapacityError struct {
	Kind  Kind
	Op    string // "add" or "delete"
	Limit int
}

func (e *CapacityError) Error() string {
	if e.Op == "add" {
		return fmt.Sprintf("registry %s already has the maximum of %d entries", e.Kind, e.Limit)
	}
	return fmt.Sprintf("registry %s already has the minimum of %d entries", e.Kind, e.Limit)
}

// InUseError is returned by Delete when records still reference the
// key and the caller did not confirm. The UI is expected to show Count
// to the user and retry with confirmation.
type InUseError struct {
	Key   Key
	Count int
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("registry key %s is referenced by %d records; deletion requires confirmation", e.Key, e.Count)
}

// WriteError wraps a write the document store rejected (permission,
// quota, offline). The in-memory registry is unchanged when a mutating
// operation returns it.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("registry %s write failed: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
