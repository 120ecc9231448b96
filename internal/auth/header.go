// ABOUTME: Tenant id extraction from transport metadata
// ABOUTME: Reads the configured identity header, falling back to the default tenant

package auth

import (
	"net/http"
	"strings"
)

// DefaultTenantHeader is the identity header read when none is configured.
const DefaultTenantHeader = "X-User-Id"

// ResolveTenantID reads the tenant id from the given header set. An absent or
// blank value resolves to DefaultTenant. Pure function, no side effects.
func ResolveTenantID(h http.Header, headerName string) string {
	id := strings.TrimSpace(h.Get(headerName))
	if id == "" {
		return DefaultTenant
	}
	return id
}
