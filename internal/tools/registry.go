// ABOUTME: Tool registry with catalog verification and gated dispatch
// ABOUTME: Dispatch resolves the tenant from context and enforces category activation

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/2389/fleet-gateway/internal/auth"
	"github.com/2389/fleet-gateway/internal/catalog"
	"github.com/2389/fleet-gateway/internal/credentials"
	"github.com/2389/fleet-gateway/internal/fleet"
	"github.com/2389/fleet-gateway/internal/metrics"
)

// Definition describes a tool to MCP clients.
type Definition struct {
	Name            string
	Description     string
	InputSchemaJSON string
}

// Handler executes a tool call. The tenant is carried on ctx.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool pairs a definition with its handler.
type Tool struct {
	Definition Definition
	Handler    Handler
}

// Auditor records completed tool calls. Implemented by store.SQLiteStore.
type Auditor interface {
	RecordToolCall(ctx context.Context, tenantID, tool string, isError bool, duration time.Duration) error
}

// Result is the outcome of a dispatch. Errors are rendered into Text with
// IsError set rather than returned, so transports can hand them to the
// caller as tool output.
type Result struct {
	Text    string
	IsError bool
}

// Registry holds every registered tool and the activation state that gates
// per-tenant visibility and dispatch.
type Registry struct {
	state  *catalog.ActivationState
	audit  Auditor
	logger *slog.Logger
	tools  map[string]Tool
}

// NewRegistry creates an empty registry. audit may be nil.
func NewRegistry(state *catalog.ActivationState, audit Auditor) *Registry {
	return &Registry{
		state:  state,
		audit:  audit,
		logger: slog.Default().With("component", "tools"),
		tools:  make(map[string]Tool),
	}
}

// Register adds tools to the registry. A duplicate name is an error.
func (r *Registry) Register(tools ...Tool) error {
	for _, t := range tools {
		if t.Definition.Name == "" {
			return errors.New("tool has empty name")
		}
		if t.Handler == nil {
			return fmt.Errorf("tool %q has nil handler", t.Definition.Name)
		}
		if _, exists := r.tools[t.Definition.Name]; exists {
			return fmt.Errorf("tool %q registered twice", t.Definition.Name)
		}
		r.tools[t.Definition.Name] = t
	}
	return nil
}

// VerifyCatalog checks the registry against the catalog in both directions:
// every tool the catalog declares must have a registered handler, and every
// registered tool must appear in the catalog. A mismatch is a startup
// error; the server refuses to run with a catalog it cannot serve.
func (r *Registry) VerifyCatalog() error {
	var missing []string
	for _, name := range catalog.AllToolNames() {
		if _, ok := r.tools[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("catalog declares tools with no registered handler: %s", strings.Join(missing, ", "))
	}

	var orphaned []string
	for name := range r.tools {
		if catalog.IsCoreTool(name) {
			continue
		}
		if _, ok := catalog.CategoryOf(name); !ok {
			orphaned = append(orphaned, name)
		}
	}
	if len(orphaned) > 0 {
		return fmt.Errorf("registered tools missing from the catalog: %s", strings.Join(orphaned, ", "))
	}
	return nil
}

// VisibleDefinitions returns the definitions of every tool the tenant may
// currently see, in catalog order.
func (r *Registry) VisibleDefinitions(tenantID string) []Definition {
	names := catalog.VisibleToolNames(r.state, tenantID)
	out := make([]Definition, 0, len(names))
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out = append(out, t.Definition)
		}
	}
	return out
}

// Dispatch runs the named tool for the tenant bound to ctx. Unknown tools,
// gated categories, and handler failures all come back as error results,
// never as a transport-level failure.
func (r *Registry) Dispatch(ctx context.Context, name string, input json.RawMessage) Result {
	tenantID := auth.TenantFrom(ctx)
	start := time.Now()

	result := r.dispatch(ctx, tenantID, name, input)

	duration := time.Since(start)
	metrics.RecordToolCall(name, result.IsError, duration)
	if r.audit != nil {
		if err := r.audit.RecordToolCall(ctx, tenantID, name, result.IsError, duration); err != nil {
			r.logger.Warn("failed to record tool call", "tool", name, "error", err)
		}
	}
	r.logger.Info("tool call",
		"tool", name,
		"tenant", tenantID,
		"is_error", result.IsError,
		"duration_ms", duration.Milliseconds())
	return result
}

func (r *Registry) dispatch(ctx context.Context, tenantID, name string, input json.RawMessage) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool handler panicked", "tool", name, "panic", rec)
			result = errorResult(fmt.Sprintf("Internal error: tool %s failed unexpectedly.", name))
		}
	}()

	tool, ok := r.tools[name]
	if !ok {
		return errorResult(fmt.Sprintf("Unknown tool: %s. Use discover_categories to see what is available.", name))
	}

	if !catalog.IsCoreTool(name) {
		category, _ := catalog.CategoryOf(name)
		if !r.state.IsActive(tenantID, category) {
			return errorResult(fmt.Sprintf(
				"Tool %s belongs to the %q category, which is not enabled. Call enable_tool_category with {\"category\": %q} first.",
				name, category, category))
		}
	}

	if len(input) == 0 {
		input = json.RawMessage("{}")
	}

	text, err := tool.Handler(ctx, input)
	if err != nil {
		return errorResult(renderError(err))
	}
	return Result{Text: text}
}

func errorResult(text string) Result {
	return Result{Text: text, IsError: true}
}

// renderError maps handler errors to operator-readable text. Credential
// configuration failures stay distinct from upstream rejections.
func renderError(err error) string {
	var notFound *credentials.NotFoundError
	if errors.As(err, &notFound) {
		return fmt.Sprintf(
			"Configuration error: %s. Add the tenant to the credentials file or configure default API keys.",
			notFound.Error())
	}

	var apiErr *fleet.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}

	var unknownCat *catalog.UnknownCategoryError
	if errors.As(err, &unknownCat) {
		names := make([]string, 0, len(catalog.Categories()))
		for _, c := range catalog.Categories() {
			names = append(names, c.Name)
		}
		return fmt.Sprintf("Unknown category %q. Valid categories: %s.", unknownCat.Name, strings.Join(names, ", "))
	}

	return fmt.Sprintf("Error: %s", err.Error())
}
