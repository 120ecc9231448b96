// ABOUTME: Tests for the stdio transport
// ABOUTME: Drives a full session through an in-memory pipe of JSON lines

package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/2389/fleet-gateway/internal/catalog"
	"github.com/2389/fleet-gateway/internal/credentials"
	"github.com/2389/fleet-gateway/internal/fleet"
	"github.com/2389/fleet-gateway/internal/tools"
)

func newStdioRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	}))
	t.Cleanup(upstream.Close)

	pair := credentials.Pair{KeyID: "k", KeySecret: "s"}
	credStore, err := credentials.NewStore(&pair, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	state := catalog.NewActivationState()
	registry := tools.NewRegistry(state, nil)
	if err := registry.Register(tools.CoreTools(state, fleet.NewFactory(credStore, upstream.URL, 5*time.Second), nil)...); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return registry
}

func TestStdioServe(t *testing.T) {
	registry := newStdioRegistry(t)
	server := NewStdioServer(registry, slog.Default(), "fleet-gateway", "test")

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_account_info","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"nonsense"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := server.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// The notification gets no response
	if len(lines) != 4 {
		t.Fatalf("got %d response lines, want 4: %s", len(lines), out.String())
	}

	var initResp struct {
		Result struct {
			ProtocolVersion string `json:"protocolVersion"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &initResp); err != nil {
		t.Fatalf("initialize response: %v", err)
	}
	if initResp.Result.ProtocolVersion != latestProtocolVersion {
		t.Errorf("protocolVersion = %q", initResp.Result.ProtocolVersion)
	}

	var listResp struct {
		Result MCPListToolsResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &listResp); err != nil {
		t.Fatalf("tools/list response: %v", err)
	}
	if len(listResp.Result.Tools) != len(catalog.CoreTools()) {
		t.Errorf("tools/list = %d tools, want %d", len(listResp.Result.Tools), len(catalog.CoreTools()))
	}

	if !strings.Contains(lines[2], "/v1/account") {
		t.Errorf("tools/call response = %s", lines[2])
	}

	var errResp struct {
		Error *JSONRPCError `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[3]), &errResp); err != nil {
		t.Fatalf("error response: %v", err)
	}
	if errResp.Error == nil || errResp.Error.Code != JSONRPCMethodNotFound {
		t.Errorf("error = %+v, want method not found", errResp.Error)
	}
}

func TestStdioInvalidLine(t *testing.T) {
	registry := newStdioRegistry(t)
	server := NewStdioServer(registry, slog.Default(), "fleet-gateway", "test")

	var out bytes.Buffer
	if err := server.Serve(context.Background(), strings.NewReader("not json\n"), &out); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if !strings.Contains(out.String(), "invalid JSON") {
		t.Errorf("output = %s", out.String())
	}
}
