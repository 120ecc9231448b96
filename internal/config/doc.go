// Package config handles configuration loading for fleet-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${FLEET_JWT_SECRET}"
//
// # Configuration Sections
//
// Transport and server settings:
//
//	server:
//	  transport: "http"           # "http" or "stdio"
//	  http_addr: "127.0.0.1:8080"
//
// Upstream fleet-management API:
//
//	upstream:
//	  base_url: "https://remotemanager.example.com/ws"
//	  timeout: "30s"
//
// Credential sources (at least one must yield credentials at startup):
//
//	credentials:
//	  env_file: ".env"             # single-tenant pair from environment
//	  tenants_file: "tenants.yaml" # multi-tenant credential table
//
// Database:
//
//	database:
//	  path: "/var/lib/fleet-gateway/gateway.db"
package config
