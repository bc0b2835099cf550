// Package engine defines the boundary to the underlying UCP checkout engine.
// Implementations translate transport failures into *Error so callers can
// classify them by Kind instead of by message text.
package engine

import (
	"context"
	"errors"

	"acp-proxy/internal/model"
)

// Engine abstracts the checkout engine operations the proxy delegates to.
//
// Every mutating call carries a non-empty idempotency key; the engine is
// responsible for at-most-once execution per key.
type Engine interface {
	// Profile returns the engine's UCP discovery profile.
	Profile(ctx context.Context) (*model.DiscoveryProfile, error)

	// Create starts a new checkout.
	Create(ctx context.Context, req *model.CheckoutCreateRequest, idempotencyKey string) (*model.Checkout, error)

	// Get retrieves a checkout by ID.
	Get(ctx context.Context, id string) (*model.Checkout, error)

	// Update replaces the mutable state of a checkout (full-state semantics).
	Update(ctx context.Context, id string, req *model.CheckoutUpdateRequest, idempotencyKey string) (*model.Checkout, error)

	// Complete submits payment and finalizes the checkout.
	Complete(ctx context.Context, id string, req *model.CheckoutCompleteRequest, idempotencyKey string) (*model.Checkout, error)

	// Cancel cancels a checkout.
	Cancel(ctx context.Context, id string, idempotencyKey string) (*model.Checkout, error)
}

// Kind is the closed set of failure categories an engine reports.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindNotModifiable
	KindCannotCancel
	KindFulfillmentRequired
	KindInvalid
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotModifiable:
		return "not_modifiable"
	case KindCannotCancel:
		return "cannot_cancel"
	case KindFulfillmentRequired:
		return "fulfillment_required"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a structured engine failure.
// Error() returns the engine's message unchanged so it can be surfaced verbatim.
type Error struct {
	Kind       Kind
	StatusCode int    // HTTP status from the engine, 0 for transport failures
	Code       string // engine error code, if any
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind of an engine error.
// Returns false when err carries no *Error.
func KindOf(err error) (Kind, bool) {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Kind, true
	}
	return KindUnknown, false
}
