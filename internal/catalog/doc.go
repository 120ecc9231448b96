// ABOUTME: Package documentation for catalog
// ABOUTME: Describes the category table, activation state, and tool composition

// Package catalog defines the tool category table and tracks which
// categories each tenant has activated.
//
// The category table is static: every category and its tool list is fixed
// at compile time, and tools are exposed to a tenant only through the core
// set or an activated category. Activation state lives in memory and can
// be replayed from the activation journal at startup.
package catalog
