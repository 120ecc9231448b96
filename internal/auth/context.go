// ABOUTME: Tenant identity context for tracking the caller through request handlers
// ABOUTME: Provides WithTenant/TenantFrom for propagating the tenant id via context

package auth

import (
	"context"
)

// DefaultTenant is the sentinel tenant id used when a request carries no
// identity, and the key under which single-tenant credentials are resolved.
const DefaultTenant = "default"

// tenantKey is the key type for storing the tenant id in context.Context.
type tenantKey struct{}

// WithTenant returns a new context with the tenant id attached. Everything
// invoked under the returned context, including work resumed after I/O,
// observes this tenant and no other; concurrent requests each carry their
// own binding.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFrom retrieves the tenant id bound by the nearest enclosing
// WithTenant. Outside any such scope it returns DefaultTenant; absence of
// identity is a valid state (single-tenant operation), not an error.
func TenantFrom(ctx context.Context) string {
	val := ctx.Value(tenantKey{})
	if val == nil {
		return DefaultTenant
	}
	id, ok := val.(string)
	if !ok || id == "" {
		return DefaultTenant
	}
	return id
}
