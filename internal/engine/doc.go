// Package engine is the transition engine at the center of vinflow.
//
// Every stage move funnels through here: the authorization gate decides
// whether the actor may make the move, the ledger commits the atomic
// close+append+pointer update, and bounded retries absorb conflicts from
// concurrent operators before they surface. Audit notes, change events,
// and push notifications are emitted after commit and are best-effort;
// ledger correctness never depends on them.
package engine
