// ABOUTME: Package documentation for tools
// ABOUTME: Registry, core tools, and forwarding handlers for the fleet API

// Package tools implements the gateway's tool surface: a registry that is
// verified against the catalog at startup, the core tools every tenant
// gets, and the forwarding tools that proxy fleet-management API
// endpoints through the caller's tenant-scoped client.
package tools
