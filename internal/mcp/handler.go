package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-faster/errors"

	"portalmcp/server/internal/db"
	"portalmcp/server/internal/jsonrpc"
	"portalmcp/server/internal/middleware"
	"portalmcp/server/internal/portal"
	"portalmcp/server/internal/tools"
)

const (
	protocolVersion = "2025-03-26"
	serverName      = "portalmcp"
	serverVersion   = "0.1.0"
)

// Handler routes MCP JSON-RPC methods to the tool dispatcher. It owns the
// per-connection session table; sessions are created lazily and dropped with
// the process (the write credential is never persisted).
type Handler struct {
	client   *portal.Client
	usage    *db.UsageRecorder
	sessions sync.Map // session id -> *tools.Session
}

// NewHandler creates an MCP handler on top of the shared portal client.
// usage may be nil when no database is configured.
func NewHandler(client *portal.Client, usage *db.UsageRecorder) *Handler {
	return &Handler{client: client, usage: usage}
}

// ProcessRequest routes a JSON-RPC request to the appropriate handler.
// Called by the transport middleware.
func (h *Handler) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (interface{}, *jsonrpc.Error) {
	if req.JSONRPC != jsonrpc.Version {
		return nil, &jsonrpc.Error{Code: InvalidRequest, Message: "Invalid Request: unsupported jsonrpc version"}
	}

	switch req.Method {
	case "initialize":
		return h.handleInitialize(), nil
	case "initialized", "notifications/initialized":
		return nil, nil
	case "tools/list":
		return h.handleToolsList(), nil
	case "tools/call":
		return h.handleToolCall(ctx, req)
	default:
		return nil, &jsonrpc.Error{Code: MethodNotFound, Message: "Method not found"}
	}
}

func (h *Handler) handleInitialize() *InitializeResult {
	return &InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{},
		},
		ServerInfo: ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
	}
}

func (h *Handler) handleToolsList() *ToolsListResult {
	return &ToolsListResult{Tools: tools.Definitions()}
}

func (h *Handler) handleToolCall(ctx context.Context, req *jsonrpc.Request) (*ToolCallResult, *jsonrpc.Error) {
	paramsBytes, err := json.Marshal(req.Params)
	if err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params"}
	}

	var params ToolCallParams
	if err := json.Unmarshal(paramsBytes, &params); err != nil {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "Invalid params structure"}
	}
	if params.Name == "" {
		return nil, &jsonrpc.Error{Code: InvalidParams, Message: "name is required"}
	}

	deps := &tools.Deps{
		Client:  h.client,
		Session: h.sessionFor(ctx),
	}

	result, err := tools.Dispatch(ctx, deps, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, tools.ErrUnknownTool) {
			return nil, &jsonrpc.Error{Code: MethodNotFound, Message: fmt.Sprintf("Unknown tool: %s", params.Name)}
		}
		return nil, &jsonrpc.Error{Code: InternalError, Message: "Internal error"}
	}

	// Record usage asynchronously (fire-and-forget)
	if h.usage != nil {
		status := "success"
		if result.IsError {
			status = "error"
		}
		h.usage.Record(middleware.GetRequestID(ctx), params.Name, status)
	}

	return &ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: result.Text}},
		IsError: result.IsError,
	}, nil
}

// sessionFor returns the Session bound to the request's logical connection,
// creating it on first use. Calls without any session scope share a single
// anonymous session.
func (h *Handler) sessionFor(ctx context.Context) *tools.Session {
	id := middleware.GetSessionID(ctx)
	if v, ok := h.sessions.Load(id); ok {
		return v.(*tools.Session)
	}
	s := tools.NewSession()
	actual, _ := h.sessions.LoadOrStore(id, s)
	return actual.(*tools.Session)
}
