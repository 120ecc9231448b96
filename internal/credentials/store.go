// ABOUTME: Immutable tenant-to-credential-pair store for the upstream fleet API
// ABOUTME: Resolves per-tenant entries with single-tenant default fallback

package credentials

import (
	"errors"
	"fmt"
)

// ErrNoSource indicates neither a single-tenant pair nor a tenant table was
// configured. The process must refuse to serve tool calls in this state.
var ErrNoSource = errors.New("no credential source configured")

// Pair is the two-part secret used to authenticate to the upstream
// fleet-management API. Immutable once loaded.
type Pair struct {
	KeyID     string
	KeySecret string
}

// NotFoundError indicates no credential pair is resolvable for a tenant.
// This is a configuration failure on our side, distinct from the upstream
// rejecting a key.
type NotFoundError struct {
	TenantID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no API credentials configured for tenant %q", e.TenantID)
}

// Store holds the mapping from tenant id to credential pair. It is populated
// once at startup and never mutated afterwards, so concurrent reads need no
// synchronization.
type Store struct {
	defaultPair *Pair
	tenants     map[string]Pair
}

// NewStore builds a store from an optional single-tenant default pair and an
// optional multi-tenant table. At least one source must be present.
func NewStore(defaultPair *Pair, tenants map[string]Pair) (*Store, error) {
	if defaultPair == nil && len(tenants) == 0 {
		return nil, ErrNoSource
	}
	if defaultPair != nil {
		if defaultPair.KeyID == "" || defaultPair.KeySecret == "" {
			return nil, errors.New("default credential pair is incomplete")
		}
	}
	for tenantID, pair := range tenants {
		if pair.KeyID == "" || pair.KeySecret == "" {
			return nil, fmt.Errorf("credential pair for tenant %q is incomplete", tenantID)
		}
	}

	copied := make(map[string]Pair, len(tenants))
	for tenantID, pair := range tenants {
		copied[tenantID] = pair
	}

	return &Store{defaultPair: defaultPair, tenants: copied}, nil
}

// Resolve returns the tenant's own pair if the table has one, otherwise the
// single-tenant default. A tenant with neither fails with *NotFoundError; it
// never silently receives another tenant's credentials.
func (s *Store) Resolve(tenantID string) (Pair, error) {
	if pair, ok := s.tenants[tenantID]; ok {
		return pair, nil
	}
	if s.defaultPair != nil {
		return *s.defaultPair, nil
	}
	return Pair{}, &NotFoundError{TenantID: tenantID}
}

// MultiTenant reports whether a tenant table was configured.
func (s *Store) MultiTenant() bool {
	return len(s.tenants) > 0
}

// TenantCount returns the number of tenants in the table, not counting the
// single-tenant default.
func (s *Store) TenantCount() int {
	return len(s.tenants)
}
