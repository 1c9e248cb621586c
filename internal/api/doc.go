// Package api defines transport-friendly representations of ledger and
// metrics records plus the converters that build them. The IPC layer and
// the CLI share these DTOs so both ends of the socket agree on field
// names and timestamp formats.
package api
