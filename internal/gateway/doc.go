// ABOUTME: Package documentation for gateway
// ABOUTME: Component wiring and lifecycle for the fleet-gateway server

// Package gateway wires the fleet-gateway components together: it loads
// credentials, replays the activation journal, builds and verifies the
// tool registry, and runs the configured MCP transport with a /healthz
// endpoint and optional Prometheus metrics on the HTTP mux.
package gateway
