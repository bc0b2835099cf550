package negotiation

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"acp-proxy/internal/model"
)

// ProfileSource supplies the engine's discovery profile.
type ProfileSource interface {
	Profile(ctx context.Context) (*model.DiscoveryProfile, error)
}

// Negotiator negotiates with the engine and keeps the latest result.
// It is safe for concurrent use; HandlerID reads the current result.
type Negotiator struct {
	source    ProfileSource
	platform  model.UCPMetadata
	providers []string
	fallback  map[string]string
	logger    *slog.Logger

	mu     sync.RWMutex
	result *Result
}

// NewNegotiator creates a negotiator.
// platform describes what the proxy itself speaks; providers are the ACP
// payment providers to resolve; fallback maps providers to handler ids used
// when the engine profile offers no match.
func NewNegotiator(source ProfileSource, platform model.UCPMetadata, providers []string, fallback map[string]string, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Negotiator{
		source:    source,
		platform:  platform,
		providers: providers,
		fallback:  fallback,
		logger:    logger,
	}
}

// Negotiate fetches the engine profile and recomputes the result.
// A fetch failure is not an error: the previous successful result is kept, or
// the configured fallback handler ids are used, with FetchError set.
// Incompatible versions or a missing checkout capability are errors.
func (n *Negotiator) Negotiate(ctx context.Context) (*Result, error) {
	profile, err := n.source.Profile(ctx)
	if err != nil {
		if prev := n.Current(); prev != nil && prev.FetchError == nil {
			return prev, nil
		}
		res := &Result{
			Version:    n.platform.Version,
			HandlerIDs: maps.Clone(n.fallback),
			FetchError: err,
		}
		if res.HandlerIDs == nil {
			res.HandlerIDs = map[string]string{}
		}
		n.set(res)
		return res, nil
	}

	engine := profile.UCP
	if err := validateVersion(engine.Version, n.platform.Version); err != nil {
		return nil, err
	}
	if _, ok := engine.Capabilities[model.CapabilityCheckout]; !ok {
		return nil, &Error{
			Code:    UCPCapabilityMissing,
			Message: fmt.Sprintf("engine does not advertise %s", model.CapabilityCheckout),
		}
	}

	handlers := intersectPaymentHandlers(engine.PaymentHandlers, n.platform.PaymentHandlers)
	res := &Result{
		Version:         engine.Version,
		Capabilities:    intersectCapabilities(engine.Capabilities, n.platform.Capabilities),
		PaymentHandlers: handlers,
		HandlerIDs:      resolveHandlers(handlers, n.providers, n.fallback),
	}
	n.set(res)
	return res, nil
}

// Run renegotiates every interval until ctx is done.
func (n *Negotiator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := n.Negotiate(ctx)
			if err != nil {
				n.logger.WarnContext(ctx, "engine renegotiation failed", slog.String("error", err.Error()))
				continue
			}
			if res.FetchError != nil {
				n.logger.WarnContext(ctx, "engine profile unavailable", slog.String("error", res.FetchError.Error()))
			}
		}
	}
}

// Current returns the latest result, or nil before the first negotiation.
func (n *Negotiator) Current() *Result {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.result
}

// HandlerID resolves provider against the latest result, falling back to
// configuration before the first negotiation.
func (n *Negotiator) HandlerID(provider string) string {
	if res := n.Current(); res != nil {
		return res.HandlerID(provider)
	}
	return n.fallback[provider]
}

func (n *Negotiator) set(res *Result) {
	n.mu.Lock()
	n.result = res
	n.mu.Unlock()
}

// Error is returned when the engine cannot serve the proxy.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// validateVersion checks the engine can serve the proxy's version.
// UCP versions are YYYY-MM-DD and compare correctly as strings.
func validateVersion(engineVersion, proxyVersion string) error {
	if proxyVersion == "" {
		return nil
	}
	if proxyVersion > engineVersion {
		return &Error{
			Code:    UCPVersionUnsupported,
			Message: fmt.Sprintf("proxy requires version %s, engine supports %s", proxyVersion, engineVersion),
		}
	}
	return nil
}

// intersectCapabilities keeps engine capabilities the proxy also declares,
// then prunes extensions whose parents did not survive, until stable.
func intersectCapabilities(engine, platform map[string][]model.Capability) map[string][]model.Capability {
	if len(platform) == 0 {
		return maps.Clone(engine)
	}

	result := make(map[string][]model.Capability)
	for name, caps := range engine {
		if _, ok := platform[name]; ok {
			result[name] = caps
		}
	}

	for pruneOrphanedExtensions(result) {
	}
	return result
}

// pruneOrphanedExtensions removes capabilities whose parents are all missing.
// Returns true if anything was pruned.
func pruneOrphanedExtensions(caps map[string][]model.Capability) bool {
	pruned := false
	for name, list := range caps {
		for _, c := range list {
			if c.Extends == nil {
				continue
			}
			parents := c.Extends.Parents()
			if len(parents) == 0 {
				continue
			}
			if !slices.ContainsFunc(parents, func(p string) bool { _, ok := caps[p]; return ok }) {
				delete(caps, name)
				pruned = true
				break
			}
		}
	}
	return pruned
}

// intersectPaymentHandlers keeps engine handlers the proxy declares a
// compatible version of. An empty platform list accepts every engine handler.
func intersectPaymentHandlers(engine, platform map[string][]model.PaymentHandler) map[string][]model.PaymentHandler {
	if len(platform) == 0 {
		return maps.Clone(engine)
	}

	result := make(map[string][]model.PaymentHandler)
	for name, engineHandlers := range engine {
		platformHandlers, ok := platform[name]
		if !ok {
			continue
		}
		var kept []model.PaymentHandler
		for _, eh := range engineHandlers {
			if slices.ContainsFunc(platformHandlers, func(ph model.PaymentHandler) bool { return handlersCompatible(eh, ph) }) {
				kept = append(kept, eh)
			}
		}
		if len(kept) > 0 {
			result[name] = kept
		}
	}
	return result
}

// handlersCompatible checks that the engine handler version is no newer than
// the version the proxy can drive.
func handlersCompatible(engine, platform model.PaymentHandler) bool {
	if engine.ID != platform.ID {
		return false
	}
	return compareVersions(engine.Version, platform.Version) <= 0
}

// resolveHandlers picks, per provider, the newest engine handler whose
// registry key or id mentions the provider. Providers without a match use fallback.
func resolveHandlers(handlers map[string][]model.PaymentHandler, providers []string, fallback map[string]string) map[string]string {
	keys := slices.Sorted(maps.Keys(handlers))

	ids := make(map[string]string, len(providers))
	for _, provider := range providers {
		needle := strings.ToLower(provider)
		var best *model.PaymentHandler
		for _, key := range keys {
			for i := range handlers[key] {
				h := &handlers[key][i]
				if !strings.Contains(strings.ToLower(key), needle) && !strings.Contains(strings.ToLower(h.ID), needle) {
					continue
				}
				if best == nil || compareVersions(h.Version, best.Version) > 0 {
					best = h
				}
			}
		}
		switch {
		case best != nil:
			ids[provider] = best.ID
		case fallback[provider] != "":
			ids[provider] = fallback[provider]
		}
	}
	return ids
}

// compareVersions compares semver-like versions with x/mod/semver and
// anything else (YYYY-MM-DD) as strings.
func compareVersions(a, b string) int {
	na, nb := normalizeVersion(a), normalizeVersion(b)
	if semver.IsValid(na) && semver.IsValid(nb) {
		return semver.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
