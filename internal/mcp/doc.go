// Package mcp implements the Model Context Protocol transports for the
// fleet gateway.
//
// # Protocol
//
// The HTTP server speaks JSON-RPC 2.0 over the MCP Streamable HTTP
// transport:
//
//   - POST /mcp - JSON-RPC requests (initialize, tools/list, tools/call)
//   - DELETE /mcp - session termination
//
// Sessions are created on initialize and identified by the Mcp-Session-Id
// header. Notifications are accepted with HTTP 202 and no body.
//
// # Tenant identity
//
// Every request is attributed to a tenant before any tool work happens:
//
//  1. A Bearer token in the Authorization header, verified as a JWT whose
//     sub claim is the tenant id.
//  2. Otherwise the configured identity header (X-User-Id by default).
//  3. Otherwise the session's tenant, then the default tenant.
//
// The resolved tenant travels on the request context, never in package
// state, so concurrent requests from different tenants cannot observe
// each other's identity.
//
// # Tool surface
//
// tools/list returns only the tools the calling tenant can currently see:
// the core set plus the tools of every category the tenant has enabled.
// tools/call dispatches through the registry, which enforces the same
// activation gating; tool failures are returned as error results with
// readable text, not JSON-RPC protocol errors.
//
// # Stdio transport
//
// StdioServer serves the same methods over newline-delimited JSON-RPC on
// stdin/stdout. Stdio carries no identity headers, so the connection runs
// as the default tenant.
package mcp
