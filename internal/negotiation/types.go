// Package negotiation implements UCP discovery against the checkout engine.
// The proxy acts as the platform: it fetches the engine's business profile,
// checks version and capability compatibility, and resolves which engine
// payment handler serves each ACP payment provider.
package negotiation

import (
	"time"

	"acp-proxy/internal/model"
)

// EngineProfile is a fetched engine discovery profile.
type EngineProfile struct {
	UCP model.UCPMetadata `json:"ucp"`

	// Cache metadata - not from wire, set by fetcher
	ProfileURL string    `json:"-"`
	FetchedAt  time.Time `json:"-"`
	ExpiresAt  time.Time `json:"-"`
}

// Result is the outcome of negotiating with the engine.
type Result struct {
	// Version is the engine's protocol version.
	Version string

	// Capabilities is the intersection: only capabilities both sides support
	Capabilities map[string][]model.Capability

	// PaymentHandlers is the intersection: only handlers the proxy can drive
	PaymentHandlers map[string][]model.PaymentHandler

	// HandlerIDs maps each ACP payment provider to an engine handler id.
	HandlerIDs map[string]string

	// FetchError is set when the profile could not be fetched and
	// HandlerIDs came from configuration alone.
	FetchError error
}

// HandlerID returns the engine payment handler id for provider, or "".
func (r *Result) HandlerID(provider string) string {
	if r == nil {
		return ""
	}
	return r.HandlerIDs[provider]
}

// UCPVersionUnsupported is the error code when versions are incompatible.
const UCPVersionUnsupported = "ucp_version_unsupported"

// UCPCapabilityMissing is the error code when the engine lacks checkout.
const UCPCapabilityMissing = "ucp_capability_missing"
