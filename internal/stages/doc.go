// Package stages defines the fixed reconditioning workflow: the ordered
// stage list, per-stage SLA budgets, and default advancement resolution.
// The graph is pure data and never changes at runtime.
package stages
