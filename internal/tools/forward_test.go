// ABOUTME: Tests for the forwarding tool handlers
// ABOUTME: Asserts request paths, query building, and required-field validation

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2389/fleet-gateway/internal/auth"
	"github.com/2389/fleet-gateway/internal/catalog"
)

// forwardTestEnv spins up an echoing upstream and a fully activated
// registry over it.
func forwardTestEnv(t *testing.T) (*Registry, context.Context) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s?%s", r.URL.EscapedPath(), r.URL.RawQuery)
	}))
	t.Cleanup(upstream.Close)

	state := catalog.NewActivationState()
	reg := fullRegistry(t, state, newTestFactory(t, upstream.URL), nil)
	for _, c := range catalog.Categories() {
		if _, err := state.Activate("alice", c.Name); err != nil {
			t.Fatalf("Activate(%s) error = %v", c.Name, err)
		}
	}
	return reg, auth.WithTenant(context.Background(), "alice")
}

func TestForwardingRequests(t *testing.T) {
	reg, ctx := forwardTestEnv(t)

	tests := []struct {
		tool      string
		input     string
		wantPath  string
		wantQuery []string
	}{
		{
			tool:     "list_devices",
			input:    `{"query":"connection_status='connected'","size":5}`,
			wantPath: "/v1/devices/inventory",
			wantQuery: []string{
				"query=connection_status%3D%27connected%27",
				"size=5",
			},
		},
		{
			tool:     "get_device",
			input:    `{"device_id":"00010000-00000000-03599990-42984521"}`,
			wantPath: "/v1/devices/inventory/00010000-00000000-03599990-42984521",
		},
		{
			tool:      "get_stream_history",
			input:     `{"stream_id":"stream-1","start_time":"-24h","size":10}`,
			wantPath:  "/v1/streams/history/stream-1",
			wantQuery: []string{"start_time=-24h", "size=10"},
		},
		{
			tool:      "get_stream_rollups",
			input:     `{"stream_id":"stream-1","interval":"hour","method":"avg"}`,
			wantPath:  "/v1/streams/rollups/stream-1",
			wantQuery: []string{"interval=hour", "method=avg"},
		},
		{
			tool:     "get_monitor_history",
			input:    `{"monitor_id":"77","start_time":"-7d"}`,
			wantPath: "/v1/monitors/history/77",
		},
		{
			tool:      "get_cellular_utilization_report",
			input:     `{"start_time":"-30d"}`,
			wantPath:  "/v1/reports/cellular_utilization",
			wantQuery: []string{"start_time=-30d"},
		},
		{
			tool:      "list_events",
			input:     `{"query":"type='alert'","size":3}`,
			wantPath:  "/v1/events/inventory",
			wantQuery: []string{"size=3"},
		},
		{
			tool:     "get_account_security",
			input:    `{}`,
			wantPath: "/v1/account/current/security",
		},
		{
			tool:     "list_api_keys",
			input:    `{}`,
			wantPath: "/v1/api_keys/inventory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			result := reg.Dispatch(ctx, tt.tool, json.RawMessage(tt.input))
			if result.IsError {
				t.Fatalf("dispatch failed: %s", result.Text)
			}
			if !strings.HasPrefix(result.Text, tt.wantPath+"?") {
				t.Errorf("request = %q, want path %s", result.Text, tt.wantPath)
			}
			for _, q := range tt.wantQuery {
				if !strings.Contains(result.Text, q) {
					t.Errorf("request = %q, want query fragment %q", result.Text, q)
				}
			}
		})
	}
}

func TestForwardingValidation(t *testing.T) {
	reg, ctx := forwardTestEnv(t)

	tests := []struct {
		tool    string
		input   string
		wantErr string
	}{
		{"get_device", `{}`, "device_id is required"},
		{"get_device", `{"device_id":"  "}`, "device_id is required"},
		{"get_stream_rollups", `{"interval":"hour"}`, "stream_id is required"},
		{"get_group", `{"group_id":""}`, "group_id is required"},
		{"list_devices", `{"size":"five"}`, "invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.tool+"_"+tt.wantErr, func(t *testing.T) {
			result := reg.Dispatch(ctx, tt.tool, json.RawMessage(tt.input))
			if !result.IsError {
				t.Fatalf("dispatch succeeded: %s", result.Text)
			}
			if !strings.Contains(result.Text, tt.wantErr) {
				t.Errorf("error = %q, want %q", result.Text, tt.wantErr)
			}
		})
	}
}

func TestForwardingPathEscaping(t *testing.T) {
	reg, ctx := forwardTestEnv(t)

	result := reg.Dispatch(ctx, "get_device", json.RawMessage(`{"device_id":"id/../../etc"}`))
	if result.IsError {
		t.Fatalf("dispatch failed: %s", result.Text)
	}
	if strings.Contains(result.Text, "/etc?") {
		t.Errorf("path traversal not escaped: %q", result.Text)
	}
}
