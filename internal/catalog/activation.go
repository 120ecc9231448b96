// ABOUTME: Per-tenant category activation state with idempotent activation
// ABOUTME: Unknown categories are rejected without mutating any tenant's state

package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownCategory is returned when an activation names a category that
// does not exist in the catalog.
var ErrUnknownCategory = errors.New("unknown tool category")

// UnknownCategoryError wraps ErrUnknownCategory with the rejected name and
// the list of valid choices, so callers can render a helpful message.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown tool category %q", e.Name)
}

func (e *UnknownCategoryError) Unwrap() error {
	return ErrUnknownCategory
}

// Outcome describes the result of an activation request.
type Outcome struct {
	Category      Category
	AlreadyActive bool
}

// ActivationState tracks which categories each tenant has activated.
// All methods are safe for concurrent use.
type ActivationState struct {
	mu      sync.RWMutex
	tenants map[string]map[string]struct{}
}

// NewActivationState creates an empty activation state. Tenants get no
// entry until their first activation.
func NewActivationState() *ActivationState {
	return &ActivationState{tenants: make(map[string]map[string]struct{})}
}

// Activate marks a category active for a tenant. Re-activating is a no-op
// reported through Outcome.AlreadyActive. An unknown category returns
// *UnknownCategoryError and leaves all state untouched.
func (s *ActivationState) Activate(tenantID, category string) (Outcome, error) {
	cat, ok := Get(category)
	if !ok {
		return Outcome{}, &UnknownCategoryError{Name: category}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.tenants[tenantID]
	if active == nil {
		active = make(map[string]struct{})
		s.tenants[tenantID] = active
	}
	if _, already := active[category]; already {
		return Outcome{Category: cat, AlreadyActive: true}, nil
	}
	active[category] = struct{}{}
	return Outcome{Category: cat}, nil
}

// IsActive reports whether the tenant has activated the category.
func (s *ActivationState) IsActive(tenantID, category string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tenants[tenantID][category]
	return ok
}

// Activated returns the tenant's active category names, sorted. A tenant
// that never activated anything gets an empty slice.
func (s *ActivationState) Activated(tenantID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.tenants[tenantID]
	out := make([]string, 0, len(active))
	for name := range active {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ActiveTenantCount returns how many tenants have at least one activation.
func (s *ActivationState) ActiveTenantCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, active := range s.tenants {
		if len(active) > 0 {
			n++
		}
	}
	return n
}
