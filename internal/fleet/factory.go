// ABOUTME: Per-tenant client factory resolving credentials from request context
// ABOUTME: Produces a fresh client per call; never shares a client across tenants

package fleet

import (
	"context"
	"time"

	"github.com/2389/fleet-gateway/internal/auth"
	"github.com/2389/fleet-gateway/internal/credentials"
)

// Factory creates upstream clients scoped to a tenant's credentials.
type Factory struct {
	creds   *credentials.Store
	baseURL string
	timeout time.Duration
}

// NewFactory creates a factory over the given credential store.
func NewFactory(creds *credentials.Store, baseURL string, timeout time.Duration) *Factory {
	return &Factory{creds: creds, baseURL: baseURL, timeout: timeout}
}

// ClientFor returns a client for the tenant bound to ctx. Credential
// resolution failures propagate as *credentials.NotFoundError unchanged.
func (f *Factory) ClientFor(ctx context.Context) (*Client, error) {
	return f.ClientForTenant(auth.TenantFrom(ctx))
}

// ClientForTenant returns a client for an explicit tenant id. The client is
// freshly constructed on every call; no instance is ever reused across
// tenants or cached in mutable process-wide state.
func (f *Factory) ClientForTenant(tenantID string) (*Client, error) {
	pair, err := f.creds.Resolve(tenantID)
	if err != nil {
		return nil, err
	}
	return NewClient(f.baseURL, pair, f.timeout), nil
}
