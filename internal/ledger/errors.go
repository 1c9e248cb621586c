package ledger

import "errors"

var (
	// ErrUnitNotFound indicates the referenced unit does not exist.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrEntryNotFound indicates a ledger entry is missing or already
	// closed. Double-closing an entry is an error by contract, never a
	// no-op, because it signals a concurrency bug in the caller.
	ErrEntryNotFound = errors.New("ledger entry not found or already closed")

	// ErrOpenEntryExists indicates an append would leave a unit with two
	// open occupancy records, violating the one-open-entry invariant.
	ErrOpenEntryExists = errors.New("unit already has an open ledger entry")

	// ErrConcurrentModification indicates another transition committed
	// between observing the unit and committing the change. Callers retry
	// against fresh state.
	ErrConcurrentModification = errors.New("concurrent modification")
)
