// Package tools maps MCP tool calls onto portal action-API requests. The
// registry is data: adding a tool means adding a definition and a handler
// entry, not new control flow.
package tools

import (
	"context"

	"portalmcp/server/internal/portal"
)

// Tool is one MCP tool definition.
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	InputSchema InputSchema      `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// InputSchema defines the input parameters for a tool.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single property in the input schema.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Enum        []string  `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// ToolAnnotations describes the tool's behavior hints per MCP spec.
type ToolAnnotations struct {
	ReadOnlyHint    *bool `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool `json:"openWorldHint,omitempty"`
}

func boolPtr(v bool) *bool { return &v }

// Pre-built annotation sets for common tool patterns
var (
	// AnnotateReadOnly: search, fetch, preview, stats tools
	AnnotateReadOnly = &ToolAnnotations{
		ReadOnlyHint:  boolPtr(true),
		OpenWorldHint: boolPtr(true),
	}
	// AnnotateCreate: create tools (non-idempotent write)
	AnnotateCreate = &ToolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(false),
		OpenWorldHint:   boolPtr(true),
	}
	// AnnotateUpdate: patch/membership tools (idempotent write)
	AnnotateUpdate = &ToolAnnotations{
		ReadOnlyHint:    boolPtr(false),
		DestructiveHint: boolPtr(false),
		IdempotentHint:  boolPtr(true),
		OpenWorldHint:   boolPtr(true),
	}
)

// Deps is everything a handler may touch: the shared portal client and the
// per-connection session. Lifecycle of both belongs to the caller.
type Deps struct {
	Client  *portal.Client
	Session *Session
}

// Handler executes one tool. The returned string is the tool result text
// (JSON envelope or Markdown); errors are mapped to user-facing text at the
// dispatch boundary and never escape to the transport.
type Handler func(ctx context.Context, deps *Deps, params map[string]any) (string, error)

// Result is the outcome of one dispatched tool call.
type Result struct {
	Text    string
	IsError bool
}
