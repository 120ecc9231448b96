// ABOUTME: Gateway orchestrator wiring config, store, credentials, and transports
// ABOUTME: Manages startup verification, activation replay, and graceful shutdown

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/2389/fleet-gateway/internal/auth"
	"github.com/2389/fleet-gateway/internal/catalog"
	"github.com/2389/fleet-gateway/internal/config"
	"github.com/2389/fleet-gateway/internal/credentials"
	"github.com/2389/fleet-gateway/internal/fleet"
	"github.com/2389/fleet-gateway/internal/mcp"
	"github.com/2389/fleet-gateway/internal/metrics"
	"github.com/2389/fleet-gateway/internal/store"
	"github.com/2389/fleet-gateway/internal/tools"
)

// Version is the gateway version reported by initialize and /healthz.
// Overridden at build time with -ldflags.
var Version = "dev"

const serverName = "fleet-gateway"

// Gateway wires the fleet-gateway components together and runs the
// configured transport.
type Gateway struct {
	config     *config.Config
	store      *store.SQLiteStore
	creds      *credentials.Store
	state      *catalog.ActivationState
	registry   *tools.Registry
	mcpServer  *mcp.Server
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore creates the SQLite store from config and environment.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("FLEET_DB_PATH"); envPath != "" {
		dbPath = envPath
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// restoreActivations replays the activation journal into memory. Journal
// entries for categories that no longer exist are skipped with a warning.
func restoreActivations(ctx context.Context, s *store.SQLiteStore, state *catalog.ActivationState, logger *slog.Logger) error {
	activations, err := s.ListActivations(ctx)
	if err != nil {
		return fmt.Errorf("loading activation journal: %w", err)
	}

	restored := 0
	for _, a := range activations {
		if _, err := state.Activate(a.TenantID, a.Category); err != nil {
			logger.Warn("skipping journaled activation for unknown category",
				"tenant", a.TenantID, "category", a.Category)
			continue
		}
		restored++
	}
	if restored > 0 {
		logger.Info("restored activations from journal", "count", restored)
	}
	return nil
}

// New creates a gateway from the given configuration. The tool registry is
// verified against the catalog before New returns; a catalog the registry
// cannot serve is a startup error.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	creds, err := credentials.Load(credentials.Options{
		EnvFile:     cfg.Credentials.EnvFile,
		TenantsFile: cfg.Credentials.TenantsFile,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	logger.Info("credentials loaded",
		"multi_tenant", creds.MultiTenant(),
		"tenants", creds.TenantCount())

	state := catalog.NewActivationState()
	if err := restoreActivations(ctx, s, state, logger); err != nil {
		s.Close()
		return nil, err
	}

	factory := fleet.NewFactory(creds, cfg.Upstream.BaseURL, cfg.Upstream.Timeout)

	registry := tools.NewRegistry(state, s)
	if err := registry.Register(tools.CoreTools(state, factory, s)...); err != nil {
		s.Close()
		return nil, fmt.Errorf("registering core tools: %w", err)
	}
	if err := registry.Register(tools.ForwardingTools(factory)...); err != nil {
		s.Close()
		return nil, fmt.Errorf("registering forwarding tools: %w", err)
	}
	if err := registry.VerifyCatalog(); err != nil {
		s.Close()
		return nil, fmt.Errorf("catalog verification failed: %w", err)
	}

	var verifier auth.TokenVerifier
	if cfg.Auth.JWTSecret != "" {
		verifier, err = auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating token verifier: %w", err)
		}
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Registry:      registry,
		Logger:        logger.With("component", "mcp"),
		TokenVerifier: verifier,
		TenantHeader:  cfg.Auth.TenantHeader,
		ServerName:    serverName,
		Version:       Version,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	gw := &Gateway{
		config:    cfg,
		store:     s,
		creds:     creds,
		state:     state,
		registry:  registry,
		mcpServer: mcpServer,
		logger:    logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", gw.handleHealth)
	mux.HandleFunc("/auditz", gw.handleAudit)
	mcpServer.RegisterRoutes(mux)
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the configured transport and blocks until ctx is cancelled or
// the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	switch g.config.Server.Transport {
	case "stdio":
		return g.runStdio(ctx)
	default:
		return g.runHTTP(ctx)
	}
}

func (g *Gateway) runStdio(ctx context.Context) error {
	g.logger.Info("serving MCP over stdio")
	stdio := mcp.NewStdioServer(g.registry, g.logger.With("component", "mcp"), serverName, Version)
	err := stdio.Serve(ctx, os.Stdin, os.Stdout)
	if closeErr := g.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (g *Gateway) runHTTP(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() intentionally since the original context is already canceled.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status          string `json:"status"`
	Server          string `json:"server"`
	Version         string `json:"version"`
	Transport       string `json:"transport"`
	MultiTenant     bool   `json:"multi_tenant"`
	ConfiguredUsers int    `json:"configured_users"`
	DynamicTools    bool   `json:"dynamic_tools"`
	CoreTools       int    `json:"core_tools"`
	TotalTools      int    `json:"total_tools"`
	Categories      int    `json:"categories"`
	ActiveUsers     int    `json:"active_users"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:          "ok",
		Server:          serverName,
		Version:         Version,
		Transport:       g.config.Server.Transport,
		MultiTenant:     g.creds.MultiTenant(),
		ConfiguredUsers: g.creds.TenantCount(),
		DynamicTools:    true,
		CoreTools:       len(catalog.CoreTools()),
		TotalTools:      catalog.TotalToolCount(),
		Categories:      len(catalog.Categories()),
		ActiveUsers:     g.state.ActiveTenantCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Warn("failed to encode health response", "error", err)
	}
}

// auditEntry is one row of the /auditz payload.
type auditEntry struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	IsError    bool      `json:"is_error"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

type auditResponse struct {
	Tenant string       `json:"tenant"`
	Calls  []auditEntry `json:"calls"`
}

// handleAudit serves a tenant's most recent tool calls from the audit log.
// Query params: tenant (defaults to the default tenant), limit (max 100).
func (g *Gateway) handleAudit(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant")
	if tenantID == "" {
		tenantID = auth.DefaultTenant
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "Bad Request: invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100
	}

	calls, err := g.store.ListRecentToolCalls(r.Context(), tenantID, limit)
	if err != nil {
		g.logger.Error("failed to list tool calls", "tenant", tenantID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	resp := auditResponse{Tenant: tenantID, Calls: make([]auditEntry, 0, len(calls))}
	for _, c := range calls {
		resp.Calls = append(resp.Calls, auditEntry{
			ID:         c.ID,
			Tool:       c.Tool,
			IsError:    c.IsError,
			DurationMS: c.Duration.Milliseconds(),
			CreatedAt:  c.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Warn("failed to encode audit response", "error", err)
	}
}
