package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error kinds the chain manager distinguishes.
// Callers are expected to use errors.Is against these, and errors.As
// against StoreError when they need the underlying store failure.
var (
	// ErrAlreadyPresent names the already-known case. It is not treated
	// as a failure, and add_block does not return it: it reports "added"
	// with a nil error.
	ErrAlreadyPresent = errors.New("block already present")

	// ErrInvalidGenesis is returned when a block's number is less than 1
	// but it is not the genesis seeding call.
	ErrInvalidGenesis = errors.New("invalid genesis: block number must be >= 1")

	// ErrMissingState is returned when add_block is called with a block
	// that has not been executed (HasState() == false).
	ErrMissingState = errors.New("block lacks executed state")

	// ErrValidationFailure is returned by the importer when the external
	// validator rejects a block.
	ErrValidationFailure = errors.New("block validation failed")

	// ErrStoreFailure wraps an underlying persistent-store error.
	ErrStoreFailure = errors.New("chain store failure")

	// ErrActorTimeout is returned when a synchronous actor call exceeds
	// its budget.
	ErrActorTimeout = errors.New("chain actor call timed out")
)

// StoreError wraps an underlying store error so callers can unwrap it while
// still matching errors.Is(err, ErrStoreFailure).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("chain store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// WrapStoreError wraps err (if non-nil) as a StoreError tagged with op.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
