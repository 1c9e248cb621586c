// Package main hosts the vinflow CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against the daemon: unit intake, stage moves, priority and cost
// updates, aging and tier reports, and configuration scaffolding. It
// centralizes configuration resolution, socket discovery, and actor
// identity so subcommands can focus on user experience instead of
// wiring.
package main
