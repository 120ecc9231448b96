// ABOUTME: Composes the per-tenant tool surface from core tools and activations
// ABOUTME: Output order is stable: core first, then categories in definition order

package catalog

// CategoryStatus pairs a category with one tenant's activation flag.
type CategoryStatus struct {
	Category
	Enabled bool
}

// VisibleToolNames returns the tool names the tenant may currently see:
// the core set followed by each activated category's tools in catalog
// definition order. Duplicate names appear once, at their first position.
func VisibleToolNames(state *ActivationState, tenantID string) []string {
	seen := make(map[string]struct{}, len(coreTools))
	out := make([]string, 0, len(coreTools))

	for _, name := range coreTools {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, c := range categories {
		if !state.IsActive(tenantID, c.Name) {
			continue
		}
		for _, name := range c.Tools {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// DescribeCategories returns every catalog category in definition order,
// each flagged with the tenant's activation status.
func DescribeCategories(state *ActivationState, tenantID string) []CategoryStatus {
	out := make([]CategoryStatus, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryStatus{
			Category: c,
			Enabled:  state.IsActive(tenantID, c.Name),
		})
	}
	return out
}

// TotalToolCount returns the size of the full catalog: core tools plus
// every category tool.
func TotalToolCount() int {
	n := len(coreTools)
	for _, c := range categories {
		n += len(c.Tools)
	}
	return n
}
