// Package metrics derives time and cost figures from ledger history.
//
// Everything here is a pure function over history entries and unit
// attributes. Nothing is cached; readers recompute on demand so derived
// values can never drift from the ledger.
package metrics
