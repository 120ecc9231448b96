// ABOUTME: Line-delimited JSON-RPC transport over stdin/stdout.
// ABOUTME: Single-tenant: every call runs as the default tenant.

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/2389/fleet-gateway/internal/auth"
	"github.com/2389/fleet-gateway/internal/tools"
)

// StdioServer serves MCP over newline-delimited JSON-RPC. There is no
// identity header on stdio, so the whole connection belongs to the default
// tenant.
type StdioServer struct {
	registry   *tools.Registry
	logger     *slog.Logger
	serverName string
	version    string
}

// NewStdioServer creates a stdio transport over the given registry.
func NewStdioServer(registry *tools.Registry, logger *slog.Logger, serverName, version string) *StdioServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioServer{
		registry:   registry,
		logger:     logger,
		serverName: serverName,
		version:    version,
	}
}

// Serve reads requests from r and writes responses to w until EOF or ctx
// is cancelled. Notifications produce no output.
func (s *StdioServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx = auth.WithTenant(ctx, auth.DefaultTenant)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxRequestBodySize)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp, respond := s.handleLine(ctx, line)
		if !respond {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	return scanner.Err()
}

// handleLine processes one JSON-RPC message. The second return value is
// false for notifications, which get no response.
func (s *StdioServer) handleLine(ctx context.Context, line []byte) (JSONRPCResponse, bool) {
	var req JSONRPCRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, JSONRPCParseError, "invalid JSON"), true
	}
	if req.JSONRPC != "2.0" {
		return errorResponse(req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version"), true
	}

	if len(req.ID) == 0 || string(req.ID) == "null" {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		return JSONRPCResponse{}, false
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": latestProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": true,
				},
			},
			"serverInfo": map[string]any{
				"name":    s.serverName,
				"version": s.version,
			},
		}), true
	case "ping":
		return resultResponse(req.ID, map[string]any{}), true
	case "tools/list":
		defs := s.registry.VisibleDefinitions(auth.DefaultTenant)
		result := MCPListToolsResult{Tools: make([]MCPToolInfo, len(defs))}
		for i, def := range defs {
			result.Tools[i] = MCPToolInfo{
				Name:        def.Name,
				Description: def.Description,
				InputSchema: json.RawMessage(def.InputSchemaJSON),
			}
		}
		return resultResponse(req.ID, result), true
	case "tools/call":
		var params MCPCallToolParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return errorResponse(req.ID, JSONRPCInvalidParams, "invalid params"), true
			}
		}
		if params.Name == "" {
			return errorResponse(req.ID, JSONRPCInvalidParams, "tool name is required"), true
		}

		res := s.registry.Dispatch(ctx, params.Name, params.Arguments)
		return resultResponse(req.ID, MCPCallToolResult{
			Content: []MCPContent{{Type: "text", Text: res.Text}},
			IsError: res.IsError,
		}), true
	default:
		return errorResponse(req.ID, JSONRPCMethodNotFound, "method not found"), true
	}
}

func resultResponse(id json.RawMessage, result any) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message},
	}
}
