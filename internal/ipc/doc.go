// Package ipc implements the control channel between the vinflow CLI
// and the daemon. It speaks JSON-RPC over a Unix domain socket; the CLI
// is a thin client and every operation runs inside the daemon process
// against the single ledger store.
package ipc
