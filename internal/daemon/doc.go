// Package daemon hosts the long-running vinflow process. It owns the
// ledger store, the transition engine, the change feed, and the aging
// sweep, and it enforces single-instance execution with a lock file.
package daemon
