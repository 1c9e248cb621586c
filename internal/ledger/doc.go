// Package ledger persists units, the append-only stage-occupancy ledger,
// audit notes, and parts holds in SQLite.
//
// The ledger is the source of truth for where a unit has been and for how
// long. Two properties are enforced here rather than trusted to callers:
//
//   - At most one open occupancy record per unit, guarded both by an
//     explicit check and by a partial unique index so the invariant holds
//     across concurrent connections.
//   - Stage moves commit via compare-and-commit: the caller pins the unit
//     revision and open entry it observed, and the commit fails with
//     ErrConcurrentModification if either moved underneath it.
package ledger
