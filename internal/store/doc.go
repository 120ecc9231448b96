// ABOUTME: Package documentation for store
// ABOUTME: SQLite-backed persistence for activations and tool-call audit

// Package store provides SQLite persistence for the gateway: the category
// activation journal, replayed into memory at startup, and the tool-call
// audit log.
package store
