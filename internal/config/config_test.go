// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  transport: "http"
  http_addr: "0.0.0.0:8080"

upstream:
  base_url: "https://remote.example.com/ws"
  timeout: "45s"

auth:
  tenant_header: "X-Account-Id"
  jwt_secret: "test-secret"

credentials:
  tenants_file: "./tenants.yaml"

database:
  path: "./test.db"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
  path: "/metrics"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Transport != "http" {
		t.Errorf("Server.Transport = %q, want %q", cfg.Server.Transport, "http")
	}
	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Upstream.BaseURL != "https://remote.example.com/ws" {
		t.Errorf("Upstream.BaseURL = %q, want %q", cfg.Upstream.BaseURL, "https://remote.example.com/ws")
	}
	if cfg.Upstream.Timeout != 45*time.Second {
		t.Errorf("Upstream.Timeout = %v, want %v", cfg.Upstream.Timeout, 45*time.Second)
	}
	if cfg.Auth.TenantHeader != "X-Account-Id" {
		t.Errorf("Auth.TenantHeader = %q, want %q", cfg.Auth.TenantHeader, "X-Account-Id")
	}
	if cfg.Credentials.TenantsFile != "./tenants.yaml" {
		t.Errorf("Credentials.TenantsFile = %q, want %q", cfg.Credentials.TenantsFile, "./tenants.yaml")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
upstream:
  base_url: "https://remote.example.com/ws"
database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Transport != "http" {
		t.Errorf("default transport = %q, want %q", cfg.Server.Transport, "http")
	}
	if cfg.Auth.TenantHeader != DefaultTenantHeader {
		t.Errorf("default tenant header = %q, want %q", cfg.Auth.TenantHeader, DefaultTenantHeader)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("default upstream timeout = %v, want %v", cfg.Upstream.Timeout, 30*time.Second)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("default metrics path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("FLEET_TEST_SECRET", "expanded-secret")

	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:8080"
upstream:
  base_url: "https://remote.example.com/ws"
auth:
  jwt_secret: "${FLEET_TEST_SECRET}"
database:
  path: "./test.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "expanded-secret" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "expanded-secret")
	}
}

func TestLoad_StdioTransportNeedsNoAddr(t *testing.T) {
	configPath := writeConfig(t, `
server:
  transport: "stdio"
upstream:
  base_url: "https://remote.example.com/ws"
database:
  path: "./test.db"
`)

	if _, err := Load(configPath); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing http_addr",
			content: `
upstream:
  base_url: "https://remote.example.com/ws"
database:
  path: "./test.db"
`,
			wantErr: "server.http_addr",
		},
		{
			name: "unknown transport",
			content: `
server:
  transport: "carrier-pigeon"
  http_addr: "127.0.0.1:8080"
upstream:
  base_url: "https://remote.example.com/ws"
database:
  path: "./test.db"
`,
			wantErr: "server.transport",
		},
		{
			name: "missing upstream base_url",
			content: `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: "./test.db"
`,
			wantErr: "upstream.base_url",
		},
		{
			name: "missing database path",
			content: `
server:
  http_addr: "127.0.0.1:8080"
upstream:
  base_url: "https://remote.example.com/ws"
`,
			wantErr: "database.path",
		},
		{
			name: "bad timeout",
			content: `
server:
  http_addr: "127.0.0.1:8080"
upstream:
  base_url: "https://remote.example.com/ws"
  timeout: "soon"
database:
  path: "./test.db"
`,
			wantErr: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.content)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
