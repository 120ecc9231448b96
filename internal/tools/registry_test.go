// ABOUTME: Tests for the tool registry
// ABOUTME: Covers catalog verification, visibility composition, and gated dispatch

package tools

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/2389/fleet-gateway/internal/auth"
	"github.com/2389/fleet-gateway/internal/catalog"
	"github.com/2389/fleet-gateway/internal/credentials"
	"github.com/2389/fleet-gateway/internal/fleet"
)

type recordingAuditor struct {
	mu    sync.Mutex
	calls []string
}

func (a *recordingAuditor) RecordToolCall(ctx context.Context, tenantID, tool string, isError bool, duration time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, tenantID+"/"+tool)
	return nil
}

func newTestFactory(t *testing.T, baseURL string) *fleet.Factory {
	t.Helper()
	pair := credentials.Pair{KeyID: "test-id", KeySecret: "test-secret"}
	store, err := credentials.NewStore(&pair, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return fleet.NewFactory(store, baseURL, 5*time.Second)
}

// fullRegistry registers the complete tool set so VerifyCatalog passes.
func fullRegistry(t *testing.T, state *catalog.ActivationState, factory *fleet.Factory, audit Auditor) *Registry {
	t.Helper()
	reg := NewRegistry(state, audit)
	if err := reg.Register(CoreTools(state, factory, nil)...); err != nil {
		t.Fatalf("Register(core) error = %v", err)
	}
	if err := reg.Register(ForwardingTools(factory)...); err != nil {
		t.Fatalf("Register(forwarding) error = %v", err)
	}
	if err := reg.VerifyCatalog(); err != nil {
		t.Fatalf("VerifyCatalog() error = %v", err)
	}
	return reg
}

func TestRegister(t *testing.T) {
	noop := func(ctx context.Context, input json.RawMessage) (string, error) { return "", nil }

	t.Run("duplicate name rejected", func(t *testing.T) {
		reg := NewRegistry(catalog.NewActivationState(), nil)
		tool := Tool{Definition: Definition{Name: "list_devices"}, Handler: noop}
		if err := reg.Register(tool); err != nil {
			t.Fatalf("first Register() error = %v", err)
		}
		if err := reg.Register(tool); err == nil {
			t.Error("duplicate Register() succeeded")
		}
	})

	t.Run("nil handler rejected", func(t *testing.T) {
		reg := NewRegistry(catalog.NewActivationState(), nil)
		if err := reg.Register(Tool{Definition: Definition{Name: "broken"}}); err == nil {
			t.Error("Register() with nil handler succeeded")
		}
	})
}

func TestVerifyCatalog(t *testing.T) {
	noop := func(ctx context.Context, input json.RawMessage) (string, error) { return "", nil }

	t.Run("missing handler is an error", func(t *testing.T) {
		reg := NewRegistry(catalog.NewActivationState(), nil)
		err := reg.VerifyCatalog()
		if err == nil {
			t.Fatal("VerifyCatalog() on empty registry succeeded")
		}
		if !strings.Contains(err.Error(), "no registered handler") {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("orphaned tool is an error", func(t *testing.T) {
		state := catalog.NewActivationState()
		factory := newTestFactory(t, "http://localhost:1")
		reg := NewRegistry(state, nil)
		if err := reg.Register(CoreTools(state, factory, nil)...); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if err := reg.Register(ForwardingTools(factory)...); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if err := reg.Register(Tool{Definition: Definition{Name: "rogue_tool"}, Handler: noop}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		err := reg.VerifyCatalog()
		if err == nil || !strings.Contains(err.Error(), "rogue_tool") {
			t.Errorf("VerifyCatalog() = %v, want orphan error naming rogue_tool", err)
		}
	})

	t.Run("full registry verifies", func(t *testing.T) {
		state := catalog.NewActivationState()
		fullRegistry(t, state, newTestFactory(t, "http://localhost:1"), nil)
	})
}

func TestVisibleDefinitions(t *testing.T) {
	state := catalog.NewActivationState()
	reg := fullRegistry(t, state, newTestFactory(t, "http://localhost:1"), nil)

	baseline := reg.VisibleDefinitions("alice")
	if len(baseline) != len(catalog.CoreTools()) {
		t.Fatalf("baseline surface = %d tools, want %d", len(baseline), len(catalog.CoreTools()))
	}

	if _, err := state.Activate("alice", "devices"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	grown := reg.VisibleDefinitions("alice")
	want := len(catalog.CoreTools()) + 3
	if len(grown) != want {
		t.Errorf("surface after activation = %d tools, want %d", len(grown), want)
	}
	for _, d := range grown {
		if d.InputSchemaJSON == "" {
			t.Errorf("tool %s has empty input schema", d.Name)
		}
	}

	if bob := reg.VisibleDefinitions("bob"); len(bob) != len(catalog.CoreTools()) {
		t.Errorf("bob's surface grew to %d tools from alice's activation", len(bob))
	}
}

func TestDispatchGating(t *testing.T) {
	state := catalog.NewActivationState()
	audit := &recordingAuditor{}
	reg := fullRegistry(t, state, newTestFactory(t, "http://localhost:1"), audit)

	ctx := auth.WithTenant(context.Background(), "alice")

	t.Run("category tool blocked before activation", func(t *testing.T) {
		result := reg.Dispatch(ctx, "list_devices", nil)
		if !result.IsError {
			t.Fatal("dispatch of gated tool succeeded")
		}
		if !strings.Contains(result.Text, "enable_tool_category") {
			t.Errorf("gating message = %q, want enable_tool_category hint", result.Text)
		}
	})

	t.Run("unknown tool is an error result", func(t *testing.T) {
		result := reg.Dispatch(ctx, "summon_demons", nil)
		if !result.IsError || !strings.Contains(result.Text, "Unknown tool") {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("core tool always dispatches", func(t *testing.T) {
		result := reg.Dispatch(ctx, "discover_categories", nil)
		if result.IsError {
			t.Fatalf("discover_categories failed: %s", result.Text)
		}
	})

	t.Run("gating is per tenant", func(t *testing.T) {
		if _, err := state.Activate("bob", "devices"); err != nil {
			t.Fatalf("Activate() error = %v", err)
		}
		result := reg.Dispatch(ctx, "list_devices", nil)
		if !result.IsError {
			t.Error("bob's activation unlocked list_devices for alice")
		}
	})

	audit.mu.Lock()
	defer audit.mu.Unlock()
	if len(audit.calls) == 0 {
		t.Error("no tool calls were audited")
	}
	for _, call := range audit.calls {
		if !strings.HasPrefix(call, "alice/") {
			t.Errorf("audited call %q not attributed to alice", call)
		}
	}
}

func TestDispatchPanicRecovery(t *testing.T) {
	state := catalog.NewActivationState()
	reg := NewRegistry(state, nil)
	err := reg.Register(Tool{
		Definition: Definition{Name: "discover_categories"},
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			panic("boom")
		},
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result := reg.Dispatch(context.Background(), "discover_categories", nil)
	if !result.IsError || !strings.Contains(result.Text, "Internal error") {
		t.Errorf("result = %+v, want internal error", result)
	}
}

func TestDispatchRendersCredentialError(t *testing.T) {
	multiStore, err := credentials.NewStore(nil, map[string]credentials.Pair{
		"alice": {KeyID: "a", KeySecret: "b"},
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	factory := fleet.NewFactory(multiStore, "http://localhost:1", time.Second)

	state := catalog.NewActivationState()
	reg := fullRegistry(t, state, factory, nil)

	ctx := auth.WithTenant(context.Background(), "mallory")
	result := reg.Dispatch(ctx, "get_account_info", nil)
	if !result.IsError {
		t.Fatal("dispatch with missing credentials succeeded")
	}
	if !strings.Contains(result.Text, "Configuration error") || !strings.Contains(result.Text, "mallory") {
		t.Errorf("error text = %q, want configuration error naming the tenant", result.Text)
	}
}
