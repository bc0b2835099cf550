// Package handler provides the ACP HTTP API and its MCP binding.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/metrics"
	"acp-proxy/internal/model"
	"acp-proxy/internal/translate"
)

// Sessions is the checkout session service the handlers delegate to.
type Sessions interface {
	Create(ctx context.Context, req *acp.CreateRequest, idempotencyKey string) (*acp.Session, error)
	Retrieve(ctx context.Context, id string) (*acp.Session, error)
	Update(ctx context.Context, id string, req *acp.UpdateRequest, idempotencyKey string) (*acp.Session, error)
	Complete(ctx context.Context, id string, req *acp.CompleteRequest, idempotencyKey string) (*acp.SessionWithOrder, error)
	Cancel(ctx context.Context, id string, req *acp.CancelRequest, idempotencyKey string) (*acp.Session, error)
}

// Config carries what the discovery document advertises.
type Config struct {
	MerchantName string
	SupportEmail string
	BaseURL      string // public base URL; derived from the request when empty
	Catalog      translate.Catalog
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions Sessions
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Handler. m may be nil, in which case /metrics serves the
// default Prometheus registry.
func New(sessions Sessions, cfg Config, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sessions: sessions,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// RegisterRoutes registers all HTTP routes with the given ServeMux.
// Uses Go 1.22+ method routing patterns.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Discovery
	mux.HandleFunc("GET /.well-known/acp", h.handleDiscovery)
	mux.HandleFunc("GET /.well-known/discovery", h.handleDiscovery)

	// ACP checkout sessions
	mux.HandleFunc("POST /checkout_sessions", h.handleCreateSession)
	mux.HandleFunc("GET /checkout_sessions/{id}", h.handleGetSession)
	mux.HandleFunc("POST /checkout_sessions/{id}", h.handleUpdateSession)
	mux.HandleFunc("POST /checkout_sessions/{id}/complete", h.handleCompleteSession)
	mux.HandleFunc("POST /checkout_sessions/{id}/cancel", h.handleCancelSession)

	// MCP transport - JSON-RPC endpoint using official MCP SDK
	mux.Handle("/mcp", h.NewMCPHandler())

	// Operations
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.Handle("GET /metrics", h.metrics.Handler())
}

// === Response Helpers ===

// writeJSON sends a JSON response with the given status code.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError sends an ACP error body, extracting status/code from APIError if present.
// Uses errors.As() to unwrap error chains (e.g., fmt.Errorf wrapping).
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewProcessingError(err)
		h.logger.Error("internal error", slog.String("error", err.Error()))
	}

	h.writeJSON(w, apiErr.StatusCode, acp.Error{
		Type:    apiErr.Type,
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Param:   apiErr.Param,
	})
}

// Protocol headers.
const (
	headerAPIVersion     = "API-Version"
	headerIdempotencyKey = "Idempotency-Key"
)

// protocolHeaders echoes API-Version (defaulting to the proxy's version) and
// Idempotency-Key, and returns the idempotency key.
func protocolHeaders(w http.ResponseWriter, r *http.Request) string {
	version := r.Header.Get(headerAPIVersion)
	if version == "" {
		version = acp.Version
	}
	w.Header().Set(headerAPIVersion, version)

	key := r.Header.Get(headerIdempotencyKey)
	if key != "" {
		w.Header().Set(headerIdempotencyKey, key)
	}
	return key
}

// MaxRequestBodySize limits JSON request bodies to 1MB to prevent DoS.
const MaxRequestBodySize = 1 << 20 // 1MB

// decodeJSON reads JSON from request body into v.
// Limits body size to MaxRequestBodySize to prevent memory exhaustion.
// Returns an APIError if decoding fails.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.NewValidationError("body", "request body too large")
		}
		// Don't expose internal error details to client
		return model.NewValidationError("body", "invalid JSON")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for endpoints where the body may be empty.
// Reports whether a body was present.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) (bool, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return false, model.NewValidationError("body", "request body too large")
		}
		return false, model.NewValidationError("body", "invalid JSON")
	}
	return true, nil
}
