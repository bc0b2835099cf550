package handler

import (
	"net/http"
	"strings"

	"acp-proxy/internal/acp"
)

// handleDiscovery returns the ACP discovery document.
// GET /.well-known/acp, GET /.well-known/discovery
func (h *Handler) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	base := h.baseURL(r)
	sessions := base + "/checkout_sessions"

	doc := acp.Discovery{
		Protocol: "acp",
		Version:  acp.Version,
		Merchant: acp.Merchant{
			Name:         h.cfg.MerchantName,
			SupportEmail: h.cfg.SupportEmail,
		},
		Endpoints: acp.Endpoints{
			CreateCheckout:   sessions,
			RetrieveCheckout: sessions + "/{id}",
			UpdateCheckout:   sessions + "/{id}",
			CompleteCheckout: sessions + "/{id}/complete",
			CancelCheckout:   sessions + "/{id}/cancel",
		},
		Authentication: acp.Authentication{
			Type:   "bearer",
			Header: "Authorization",
		},
		PaymentProviders:   paymentProviders(h.cfg.Catalog.PaymentOptions),
		FulfillmentOptions: fulfillmentOptionIDs(h.cfg.Catalog.FulfillmentOptions),
	}

	h.writeJSON(w, http.StatusOK, doc)
}

// baseURL returns the configured public URL, else one derived from the request.
func (h *Handler) baseURL(r *http.Request) string {
	if h.cfg.BaseURL != "" {
		return strings.TrimRight(h.cfg.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

func paymentProviders(options []acp.PaymentOption) []string {
	providers := []string{}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if o.Provider == "" || seen[o.Provider] {
			continue
		}
		seen[o.Provider] = true
		providers = append(providers, o.Provider)
	}
	return providers
}

func fulfillmentOptionIDs(options []acp.FulfillmentOption) []string {
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}
	return ids
}

// handleHealth returns a simple health check response.
// GET /health, GET /healthz
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type healthResponse struct {
	Status string `json:"status"`
}
