package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/engine"
	"acp-proxy/internal/model"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

// callTool initializes a session, invokes the named tool and returns its result.
func callTool(t *testing.T, mux *http.ServeMux, name string, args map[string]any) callToolResult {
	t.Helper()

	sessionID := initMCPSession(t, mux)

	rawArgs, _ := json.Marshal(args)
	body, _ := json.Marshal(jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: rawArgs},
	})
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	// MCP returns 200 OK even for tool errors, error is in the result
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected JSON-RPC error: %+v", resp.Error)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	return result
}

func TestMCPServerCreation(t *testing.T) {
	h, _ := testHandler(&engine.Mock{})

	if h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPToolsList(t *testing.T) {
	_, mux := testHandler(&engine.Mock{})

	sessionID := initMCPSession(t, mux)

	listBody, _ := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	listReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(listBody))
	setMCPHeaders(listReq, sessionID)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, listReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	var toolsResult struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expectedTools := map[string]bool{
		"create_checkout_session":   false,
		"get_checkout_session":      false,
		"update_checkout_session":   false,
		"complete_checkout_session": false,
		"cancel_checkout_session":   false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPCreateSession(t *testing.T) {
	var gotKey string
	mock := &engine.Mock{
		CreateFunc: func(ctx context.Context, req *model.CheckoutCreateRequest, key string) (*model.Checkout, error) {
			gotKey = key
			return engineCheckout("chk_mcp", model.StatusInProgress), nil
		},
	}
	_, mux := testHandler(mock)

	result := callTool(t, mux, "create_checkout_session", map[string]any{
		"meta":    map[string]any{"idempotency-key": "mcp-key-1"},
		"session": map[string]any{"items": []any{map[string]any{"sku": "sku_1", "quantity": 2}}},
	})

	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}
	if gotKey != "mcp-key-1" {
		t.Errorf("idempotency key = %q, want mcp-key-1", gotKey)
	}
	if len(result.Content) == 0 || result.Content[0].Type != "text" {
		t.Fatalf("Expected text content, got %+v", result.Content)
	}

	var s acp.Session
	if err := json.Unmarshal([]byte(result.Content[0].Text), &s); err != nil {
		t.Fatalf("Failed to parse session from result: %v", err)
	}
	if s.ID != "chk_mcp" || s.Status != acp.StatusOpen {
		t.Errorf("Session = %+v", s)
	}
}

func TestMCPGetSession(t *testing.T) {
	mock := &engine.Mock{
		GetFunc: func(ctx context.Context, id string) (*model.Checkout, error) {
			if id == "chk_456" {
				return engineCheckout(id, model.StatusReadyForComplete), nil
			}
			return nil, &engine.Error{Kind: engine.KindNotFound, Message: "checkout not found"}
		},
	}
	_, mux := testHandler(mock)

	t.Run("found", func(t *testing.T) {
		result := callTool(t, mux, "get_checkout_session", map[string]any{"id": "chk_456"})
		if result.IsError {
			t.Fatalf("Expected success, got %+v", result.Content)
		}
		if !strings.Contains(result.Content[0].Text, `"id":"chk_456"`) {
			t.Errorf("Text = %s", result.Content[0].Text)
		}
	})

	t.Run("not found", func(t *testing.T) {
		result := callTool(t, mux, "get_checkout_session", map[string]any{"id": "missing"})
		if !result.IsError {
			t.Fatal("Expected tool error")
		}
		if !strings.Contains(result.Content[0].Text, "not_found: Checkout session not found") {
			t.Errorf("Text = %s", result.Content[0].Text)
		}
	})
}

func TestMCPUpdateSession(t *testing.T) {
	var sentBuyer *model.Buyer
	mock := &engine.Mock{
		GetFunc: func(ctx context.Context, id string) (*model.Checkout, error) {
			return engineCheckout(id, model.StatusInProgress), nil
		},
		UpdateFunc: func(ctx context.Context, id string, req *model.CheckoutUpdateRequest, key string) (*model.Checkout, error) {
			sentBuyer = req.Buyer
			co := engineCheckout(id, model.StatusInProgress)
			co.Buyer = req.Buyer
			return co, nil
		},
	}
	_, mux := testHandler(mock)

	result := callTool(t, mux, "update_checkout_session", map[string]any{
		"id":      "chk_1",
		"session": map[string]any{"buyer": map[string]any{"email": "jane@example.com", "name": "Jane Doe"}},
	})

	if result.IsError {
		t.Fatalf("Expected success, got %+v", result.Content)
	}
	if sentBuyer == nil || sentBuyer.Email != "jane@example.com" || sentBuyer.FirstName != "Jane" {
		t.Errorf("buyer sent = %+v", sentBuyer)
	}
}

func TestMCPUpdateSessionInvalidPayload(t *testing.T) {
	_, mux := testHandler(&engine.Mock{})

	result := callTool(t, mux, "update_checkout_session", map[string]any{
		"id":      "chk_1",
		"session": map[string]any{"items": "not-a-list"},
	})

	if !result.IsError {
		t.Fatal("Expected tool error")
	}
	if !strings.HasPrefix(result.Content[0].Text, "invalid: ") {
		t.Errorf("Text = %s", result.Content[0].Text)
	}
}

func TestMCPCompleteSession(t *testing.T) {
	mock := &engine.Mock{
		CompleteFunc: func(ctx context.Context, id string, req *model.CheckoutCompleteRequest, key string) (*model.Checkout, error) {
			if !strings.HasPrefix(key, "acp_complete_") {
				t.Errorf("key = %q", key)
			}
			co := engineCheckout(id, model.StatusCompleted)
			co.OrderID = "ord_1"
			return co, nil
		},
	}
	_, mux := testHandler(mock)

	result := callTool(t, mux, "complete_checkout_session", map[string]any{
		"id":      "chk_1",
		"session": map[string]any{"payment_data": map[string]any{"token": "spt_1", "provider": "stripe"}},
	})

	if result.IsError {
		t.Fatalf("Expected success, got %+v", result.Content)
	}
	var s acp.SessionWithOrder
	if err := json.Unmarshal([]byte(result.Content[0].Text), &s); err != nil {
		t.Fatal(err)
	}
	if s.Order == nil || s.Order.ID != "ord_1" {
		t.Errorf("Order = %+v", s.Order)
	}
}

func TestMCPCompleteSessionMissingPayment(t *testing.T) {
	_, mux := testHandler(&engine.Mock{})

	result := callTool(t, mux, "complete_checkout_session", map[string]any{"id": "chk_1"})

	if !result.IsError {
		t.Fatal("Expected tool error")
	}
	if !strings.Contains(result.Content[0].Text, "payment_data") {
		t.Errorf("Text = %s", result.Content[0].Text)
	}
}

func TestMCPCancelSession(t *testing.T) {
	mock := &engine.Mock{
		CancelFunc: func(ctx context.Context, id string, key string) (*model.Checkout, error) {
			if id == "done" {
				return nil, &engine.Error{Kind: engine.KindCannotCancel, StatusCode: 405}
			}
			return engineCheckout(id, model.StatusCanceled), nil
		},
	}
	_, mux := testHandler(mock)

	result := callTool(t, mux, "cancel_checkout_session", map[string]any{"id": "chk_1"})
	if result.IsError {
		t.Fatalf("Expected success, got %+v", result.Content)
	}
	if !strings.Contains(result.Content[0].Text, `"status":"canceled"`) {
		t.Errorf("Text = %s", result.Content[0].Text)
	}

	result = callTool(t, mux, "cancel_checkout_session", map[string]any{"id": "done"})
	if !result.IsError || !strings.HasPrefix(result.Content[0].Text, "conflict: ") {
		t.Errorf("result = %+v", result)
	}
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}
