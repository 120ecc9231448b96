// Package auth resolves and propagates the caller's tenant identity.
//
// # Identity Sources
//
// Each inbound request resolves its tenant id from one of:
//
//   - A Bearer JWT on the Authorization header (HS256, the "sub" claim names
//     the tenant). Enabled when auth.jwt_secret is configured.
//   - The identity header (auth.tenant_header, default "X-User-Id").
//   - Neither: the request belongs to the sentinel "default" tenant.
//
// # Context Binding
//
// The resolved tenant id is bound to the request's context.Context with
// WithTenant and retrieved anywhere below with TenantFrom. Because the
// binding lives on the per-request context rather than in shared state,
// concurrent requests for different tenants can never observe each other's
// identity, no matter how their handlers interleave.
package auth
