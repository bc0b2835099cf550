// MCP transport handler for the ACP proxy using the official MCP Go SDK.
// Exposes checkout session operations as MCP tools.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
)

// === MCP Meta Types ===
// meta carries request metadata that maps to HTTP headers:
// - Idempotency-Key header → meta["idempotency-key"]

// MCPMeta represents request metadata in MCP requests.
type MCPMeta struct {
	IdempotencyKey string `json:"idempotency-key,omitempty" jsonschema:"idempotency key forwarded to the checkout engine"`
}

// SessionToolInput is the input of every checkout session tool: {meta, id?, session?}.
// session holds the same JSON body the REST endpoint accepts.
type SessionToolInput struct {
	Meta    MCPMeta        `json:"meta,omitempty" jsonschema:"request metadata"`
	ID      string         `json:"id,omitempty" jsonschema:"checkout session ID (all tools except create)"`
	Session map[string]any `json:"session,omitempty" jsonschema:"ACP request body for create, update, complete and cancel"`
}

// NewMCPServer creates an MCP server with checkout session tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "acp-proxy",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "ACP Proxy - Agentic Commerce Protocol checkout sessions. " +
				"Use these tools to create, update, complete and cancel checkout sessions.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_checkout_session",
		Description: "Create a checkout session. session.items is required; buyer and fulfillment_details are optional.",
	}, h.mcpCreateSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_checkout_session",
		Description: "Get the current state of a checkout session.",
	}, h.mcpGetSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_checkout_session",
		Description: "Update a checkout session. Omitted items, buyer and fulfillment keep their current values.",
	}, h.mcpUpdateSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_checkout_session",
		Description: "Complete a checkout session with session.payment_data {token, provider} and place the order.",
	}, h.mcpCompleteSession)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_checkout_session",
		Description: "Cancel a checkout session. session.intent_trace is optional.",
	}, h.mcpCancelSession)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpCreateSession(ctx context.Context, _ *mcp.CallToolRequest, input SessionToolInput) (*mcp.CallToolResult, any, error) {
	var req acp.CreateRequest
	if err := decodeSession(input.Session, &req); err != nil {
		return nil, nil, h.mcpError(err)
	}

	session, err := h.sessions.Create(ctx, &req, input.Meta.IdempotencyKey)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return toolResult(session)
}

func (h *Handler) mcpGetSession(ctx context.Context, _ *mcp.CallToolRequest, input SessionToolInput) (*mcp.CallToolResult, any, error) {
	session, err := h.sessions.Retrieve(ctx, input.ID)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return toolResult(session)
}

func (h *Handler) mcpUpdateSession(ctx context.Context, _ *mcp.CallToolRequest, input SessionToolInput) (*mcp.CallToolResult, any, error) {
	var req acp.UpdateRequest
	if err := decodeSession(input.Session, &req); err != nil {
		return nil, nil, h.mcpError(err)
	}

	session, err := h.sessions.Update(ctx, input.ID, &req, input.Meta.IdempotencyKey)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return toolResult(session)
}

func (h *Handler) mcpCompleteSession(ctx context.Context, _ *mcp.CallToolRequest, input SessionToolInput) (*mcp.CallToolResult, any, error) {
	var req acp.CompleteRequest
	if err := decodeSession(input.Session, &req); err != nil {
		return nil, nil, h.mcpError(err)
	}

	session, err := h.sessions.Complete(ctx, input.ID, &req, input.Meta.IdempotencyKey)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return toolResult(session)
}

func (h *Handler) mcpCancelSession(ctx context.Context, _ *mcp.CallToolRequest, input SessionToolInput) (*mcp.CallToolResult, any, error) {
	var req *acp.CancelRequest
	if input.Session != nil {
		req = &acp.CancelRequest{}
		if err := decodeSession(input.Session, req); err != nil {
			return nil, nil, h.mcpError(err)
		}
	}

	session, err := h.sessions.Cancel(ctx, input.ID, req, input.Meta.IdempotencyKey)
	if err != nil {
		return nil, nil, h.mcpError(err)
	}
	return toolResult(session)
}

// decodeSession converts the loosely typed session argument into an ACP request.
func decodeSession(session map[string]any, v any) error {
	if session == nil {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return model.NewValidationError("session", "invalid JSON")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return model.NewValidationError("session", err.Error())
	}
	return nil
}

// toolResult returns v as both text and structured content.
func toolResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: v,
	}, nil, nil
}

// mcpError converts session errors to MCP tool errors of the form "code: message".
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
