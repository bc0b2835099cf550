package engine

import (
	"context"

	"acp-proxy/internal/model"
)

// Mock implements Engine for testing.
// Each method can be configured via function fields.
type Mock struct {
	ProfileFunc  func(ctx context.Context) (*model.DiscoveryProfile, error)
	CreateFunc   func(ctx context.Context, req *model.CheckoutCreateRequest, key string) (*model.Checkout, error)
	GetFunc      func(ctx context.Context, id string) (*model.Checkout, error)
	UpdateFunc   func(ctx context.Context, id string, req *model.CheckoutUpdateRequest, key string) (*model.Checkout, error)
	CompleteFunc func(ctx context.Context, id string, req *model.CheckoutCompleteRequest, key string) (*model.Checkout, error)
	CancelFunc   func(ctx context.Context, id string, key string) (*model.Checkout, error)
}

// Profile calls the configured ProfileFunc or returns a minimal checkout profile.
func (m *Mock) Profile(ctx context.Context) (*model.DiscoveryProfile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx)
	}
	return &model.DiscoveryProfile{
		UCP: model.UCPMetadata{
			Version: "2026-01-11",
			Capabilities: map[string][]model.Capability{
				model.CapabilityCheckout: {{Version: "2026-01-11"}},
			},
		},
	}, nil
}

// Create calls the configured CreateFunc or fails as unavailable.
func (m *Mock) Create(ctx context.Context, req *model.CheckoutCreateRequest, key string) (*model.Checkout, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req, key)
	}
	return nil, &Error{Kind: KindUnavailable, Message: "engine not configured"}
}

// Get calls the configured GetFunc or reports not found.
func (m *Mock) Get(ctx context.Context, id string) (*model.Checkout, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, &Error{Kind: KindNotFound, Message: "checkout not found"}
}

// Update calls the configured UpdateFunc or reports not found.
func (m *Mock) Update(ctx context.Context, id string, req *model.CheckoutUpdateRequest, key string) (*model.Checkout, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, req, key)
	}
	return nil, &Error{Kind: KindNotFound, Message: "checkout not found"}
}

// Complete calls the configured CompleteFunc or reports not found.
func (m *Mock) Complete(ctx context.Context, id string, req *model.CheckoutCompleteRequest, key string) (*model.Checkout, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, id, req, key)
	}
	return nil, &Error{Kind: KindNotFound, Message: "checkout not found"}
}

// Cancel calls the configured CancelFunc or reports not found.
func (m *Mock) Cancel(ctx context.Context, id string, key string) (*model.Checkout, error) {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id, key)
	}
	return nil, &Error{Kind: KindNotFound, Message: "checkout not found"}
}

// Verify Mock implements Engine interface at compile time.
var _ Engine = (*Mock)(nil)
