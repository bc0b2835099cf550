// Package ucp is the REST client for a UCP checkout engine.
package ucp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"acp-proxy/internal/engine"
	"acp-proxy/internal/metrics"
	"acp-proxy/internal/middleware"
	"acp-proxy/internal/model"
	"acp-proxy/internal/negotiation"
)

const (
	pathCheckouts = "/checkout-sessions"
	pathProfile   = "/.well-known/ucp"

	userAgent = "ACP-Proxy/1.0"

	maxResponseBytes = 4 << 20
)

// Config holds engine client settings.
type Config struct {
	BaseURL         string            // engine root, e.g. https://engine.example
	APIKey          string            // sent as a bearer token when set
	AgentProfileURL string            // advertised in UCP-Agent
	Transport       http.RoundTripper // nil uses http.DefaultTransport
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// Client implements engine.Engine over UCP REST.
// It performs no retries and sets no timeout of its own; the caller's
// context bounds every call.
type Client struct {
	baseURL    string
	apiKey     string
	agent      string
	httpClient *http.Client
	profiles   *negotiation.HTTPProfileFetcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

var _ engine.Engine = (*Client)(nil)

// NewClient creates an engine client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid engine URL %q", cfg.BaseURL)
	}

	var agent string
	if cfg.AgentProfileURL != "" {
		agent, err = negotiation.FormatUCPAgentHeader(cfg.AgentProfileURL)
		if err != nil {
			return nil, fmt.Errorf("formatting UCP-Agent header: %w", err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := &http.Client{Transport: cfg.Transport}

	headers := map[string]string{"User-Agent": userAgent}
	if agent != "" {
		headers["UCP-Agent"] = agent
	}

	return &Client{
		baseURL:    strings.TrimRight(base.String(), "/"),
		apiKey:     cfg.APIKey,
		agent:      agent,
		httpClient: httpClient,
		profiles: negotiation.NewHTTPProfileFetcherWithConfig(negotiation.ProfileFetcherConfig{
			Client:  httpClient,
			Headers: headers,
		}),
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// === Discovery ===

// Profile fetches the engine's discovery profile, cached per HTTP cache headers.
func (c *Client) Profile(ctx context.Context) (*model.DiscoveryProfile, error) {
	start := time.Now()
	p, err := c.profiles.Fetch(ctx, c.baseURL+pathProfile)
	status := http.StatusOK
	if err != nil {
		status = 0
	}
	c.metrics.ObserveEngine("profile", status, time.Since(start))
	if err != nil {
		return nil, &engine.Error{Kind: engine.KindUnavailable, Message: err.Error(), Err: err}
	}
	return &model.DiscoveryProfile{UCP: p.UCP}, nil
}

// === Checkout Operations ===

// Create starts a new checkout.
func (c *Client) Create(ctx context.Context, req *model.CheckoutCreateRequest, idempotencyKey string) (*model.Checkout, error) {
	return c.checkout(ctx, "create", http.MethodPost, pathCheckouts, req, idempotencyKey)
}

// Get retrieves a checkout by ID.
func (c *Client) Get(ctx context.Context, id string) (*model.Checkout, error) {
	return c.checkout(ctx, "get", http.MethodGet, checkoutPath(id), nil, "")
}

// Update replaces the checkout's mutable state.
func (c *Client) Update(ctx context.Context, id string, req *model.CheckoutUpdateRequest, idempotencyKey string) (*model.Checkout, error) {
	return c.checkout(ctx, "update", http.MethodPut, checkoutPath(id), req, idempotencyKey)
}

// Complete submits payment and finalizes the checkout.
func (c *Client) Complete(ctx context.Context, id string, req *model.CheckoutCompleteRequest, idempotencyKey string) (*model.Checkout, error) {
	return c.checkout(ctx, "complete", http.MethodPost, checkoutPath(id)+"/complete", req, idempotencyKey)
}

// Cancel cancels a checkout.
func (c *Client) Cancel(ctx context.Context, id string, idempotencyKey string) (*model.Checkout, error) {
	return c.checkout(ctx, "cancel", http.MethodPost, checkoutPath(id)+"/cancel", struct{}{}, idempotencyKey)
}

func checkoutPath(id string) string {
	return pathCheckouts + "/" + url.PathEscape(id)
}

// === HTTP Helpers ===

func (c *Client) checkout(ctx context.Context, op, method, path string, body any, idempotencyKey string) (*model.Checkout, error) {
	req, err := c.newRequest(ctx, method, path, body, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}

	var co model.Checkout
	if err := c.do(op, req, &co); err != nil {
		return nil, err
	}
	return &co, nil
}

// newRequest creates an engine request carrying the UCP headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body any, idempotencyKey string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.agent != "" {
		req.Header.Set("UCP-Agent", c.agent)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	requestID := middleware.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set("Request-Id", requestID)

	return req, nil
}

// do executes the request and decodes the response.
func (c *Client) do(op string, req *http.Request, result any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveEngine(op, 0, time.Since(start))
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("engine %s: %w", op, ctxErr)
		}
		return &engine.Error{Kind: engine.KindUnavailable, Message: "engine unreachable: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.ObserveEngine(op, resp.StatusCode, time.Since(start))
	if err != nil {
		return &engine.Error{Kind: engine.KindUnavailable, StatusCode: resp.StatusCode, Message: "reading engine response: " + err.Error(), Err: err}
	}

	c.logger.DebugContext(req.Context(), "engine call",
		slog.String("operation", op),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return &engine.Error{Kind: engine.KindUnknown, StatusCode: resp.StatusCode, Message: "parsing engine response: " + err.Error(), Err: err}
	}
	return nil
}

// errorResponse covers the error shapes UCP engines return: a checkout with
// error messages, a nested {"error": {...}} object, or flat code/message.
type errorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Code     string          `json:"code"`
	Message  string          `json:"message"`
	Messages []model.Message `json:"messages"`
}

// parseError converts an engine error response to *engine.Error.
func parseError(statusCode int, body []byte) error {
	var er errorResponse
	json.Unmarshal(body, &er) // best effort

	code, msg := er.Code, er.Message
	if er.Error != nil {
		code, msg = er.Error.Code, er.Error.Message
	}
	if msg == "" {
		co := model.Checkout{Messages: er.Messages}
		if m := co.FirstError(); m != nil {
			code, msg = m.Code, m.Content
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	return &engine.Error{
		Kind:       kindFor(statusCode, code, msg),
		StatusCode: statusCode,
		Code:       code,
		Message:    msg,
		Err:        errors.New(http.StatusText(statusCode)),
	}
}

// kindFor classifies an engine error response. 400 and 422 are refined by
// the error code and message text.
func kindFor(statusCode int, code, msg string) engine.Kind {
	switch {
	case statusCode == http.StatusNotFound:
		return engine.KindNotFound
	case statusCode == http.StatusConflict:
		return engine.KindNotModifiable
	case statusCode == http.StatusMethodNotAllowed:
		return engine.KindCannotCancel
	case statusCode == http.StatusBadRequest, statusCode == http.StatusUnprocessableEntity:
		return validationKind(code, msg)
	case statusCode == http.StatusTooManyRequests, statusCode >= 500:
		return engine.KindUnavailable
	default:
		return engine.KindUnknown
	}
}

func validationKind(code, msg string) engine.Kind {
	text := strings.ToLower(strings.ReplaceAll(code, "_", " ") + " " + msg)
	switch {
	case strings.Contains(text, "fulfillment"):
		return engine.KindFulfillmentRequired
	case strings.Contains(text, "not modifiable"):
		return engine.KindNotModifiable
	case strings.Contains(text, "cannot cancel"):
		return engine.KindCannotCancel
	case strings.Contains(text, "not found"):
		return engine.KindNotFound
	}
	return engine.KindInvalid
}
