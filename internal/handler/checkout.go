package handler

import (
	"log/slog"
	"net/http"

	"acp-proxy/internal/acp"
)

// handleCreateSession creates a new checkout session.
// POST /checkout_sessions
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := protocolHeaders(w, r)

	var req acp.CreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "create session request",
		slog.Int("items", len(req.Items)),
		slog.Bool("has_buyer", req.Buyer != nil),
		slog.Bool("has_fulfillment", req.FulfillmentDetails != nil),
	)

	session, err := h.sessions.Create(ctx, &req, key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, session)
}

// handleGetSession retrieves an existing checkout session.
// GET /checkout_sessions/{id}
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	protocolHeaders(w, r)

	session, err := h.sessions.Retrieve(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

// handleUpdateSession merges changes into a checkout session.
// POST /checkout_sessions/{id}
func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := protocolHeaders(w, r)
	id := r.PathValue("id")

	var req acp.UpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.DebugContext(ctx, "update session request",
		slog.String("session_id", id),
		slog.Int("items", len(req.Items)),
		slog.Bool("has_buyer", req.Buyer != nil),
		slog.Bool("has_fulfillment", req.FulfillmentDetails != nil),
		slog.Int("selected_fulfillment_options", len(req.SelectedFulfillmentOptions)),
	)

	session, err := h.sessions.Update(ctx, id, &req, key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

// handleCompleteSession submits payment and finalizes the checkout session.
// POST /checkout_sessions/{id}/complete
func (h *Handler) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	key := protocolHeaders(w, r)

	var req acp.CompleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	session, err := h.sessions.Complete(r.Context(), r.PathValue("id"), &req, key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}

// handleCancelSession cancels a checkout session. The body is optional.
// POST /checkout_sessions/{id}/cancel
func (h *Handler) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	key := protocolHeaders(w, r)

	var req acp.CancelRequest
	present, err := decodeOptionalJSON(w, r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var reqPtr *acp.CancelRequest
	if present {
		reqPtr = &req
	}

	session, err := h.sessions.Cancel(r.Context(), r.PathValue("id"), reqPtr, key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, session)
}
