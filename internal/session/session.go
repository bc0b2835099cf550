// Package session orchestrates ACP checkout session operations on top of the
// checkout engine: validate, translate, call the engine once, assemble.
//
// The service holds no checkout state. No call is retried and no timeout is
// added; the request context flows straight to the engine.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/engine"
	"acp-proxy/internal/metrics"
	"acp-proxy/internal/model"
	"acp-proxy/internal/reconcile"
	"acp-proxy/internal/translate"
)

// Idempotency key prefixes for keys generated on behalf of the caller.
const (
	keyPrefixCreate   = "acp_"
	keyPrefixUpdate   = "acp_upd_"
	keyPrefixComplete = "acp_complete_"
	keyPrefixCancel   = "acp_cancel_"
)

const (
	orderStatusConfirmed = "confirmed"
	credentialType       = "shared_payment_token"
	defaultInstrument    = "card"
)

// HandlerResolver maps an ACP payment provider to the engine's payment handler id.
type HandlerResolver interface {
	HandlerID(provider string) string
}

// Service implements the five session operations.
type Service struct {
	engine    engine.Engine
	assembler *translate.Assembler
	handlers  HandlerResolver
	metrics   *metrics.Metrics
	logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. handlers, m and logger may be nil: providers
// then map to themselves as handler ids, metrics are skipped and slog.Default is used.
func NewService(eng engine.Engine, asm *translate.Assembler, handlers HandlerResolver, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:    eng,
		assembler: asm,
		handlers:  handlers,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create starts a checkout and returns it with the catalog's fulfillment options.
func (s *Service) Create(ctx context.Context, req *acp.CreateRequest, idempotencyKey string) (*acp.Session, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, s.fail(ctx, translate.OpCreate, "", model.NewValidationError("items", "at least one item is required"))
	}
	if err := validateItems(req.Items); err != nil {
		return nil, s.fail(ctx, translate.OpCreate, "", err)
	}

	catalog := s.assembler.Catalog()
	addr, optionID := translate.EngineFulfillment(req.FulfillmentDetails)
	ucpReq := &model.CheckoutCreateRequest{
		Currency:            catalog.Currency,
		LineItems:           translate.CreateLineItems(req.Items),
		Buyer:               translate.EngineBuyer(req.Buyer),
		FulfillmentAddress:  addr,
		FulfillmentOptionID: optionID,
	}
	key := s.keyOr(idempotencyKey, keyPrefixCreate)

	s.logger.InfoContext(ctx, "creating checkout session",
		slog.Int("items", len(req.Items)),
		slog.String("idempotency_key", key),
	)

	co, err := s.engine.Create(ctx, ucpReq, key)
	if err != nil {
		return nil, s.fail(ctx, translate.OpCreate, "", err)
	}

	s.succeed(translate.OpCreate)
	return s.assembler.Assemble(co, catalog.FulfillmentOptions), nil
}

// Retrieve returns the current state of a checkout.
func (s *Service) Retrieve(ctx context.Context, id string) (*acp.Session, error) {
	if id == "" {
		return nil, s.fail(ctx, translate.OpRetrieve, id, model.NewValidationError("id", "checkout session id is required"))
	}

	co, err := s.engine.Get(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, translate.OpRetrieve, id, err)
	}

	s.succeed(translate.OpRetrieve)
	return s.assembler.Assemble(co, nil), nil
}

// Update merges the request into the stored checkout and sends the full state
// to the engine. Omitted items, buyer and fulfillment keep their stored values.
func (s *Service) Update(ctx context.Context, id string, req *acp.UpdateRequest, idempotencyKey string) (*acp.Session, error) {
	if id == "" {
		return nil, s.fail(ctx, translate.OpUpdate, id, model.NewValidationError("id", "checkout session id is required"))
	}
	if req == nil {
		req = &acp.UpdateRequest{}
	}
	if err := validateItems(req.Items); err != nil {
		return nil, s.fail(ctx, translate.OpUpdate, id, err)
	}

	stored, err := s.engine.Get(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, translate.OpUpdate, id, err)
	}

	currency := stored.Currency
	if currency == "" {
		currency = s.assembler.Catalog().Currency
	}
	addr, optionID := translate.MergeFulfillment(req, stored)
	ucpReq := &model.CheckoutUpdateRequest{
		ID:                  id,
		Currency:            currency,
		LineItems:           translate.UpdateLineItems(req.Items, stored.LineItems),
		Buyer:               translate.MergeBuyer(req.Buyer, stored.Buyer),
		FulfillmentAddress:  addr,
		FulfillmentOptionID: optionID,
	}
	key := s.keyOr(idempotencyKey, keyPrefixUpdate)

	attrs := []any{
		slog.String("session_id", id),
		slog.String("idempotency_key", key),
		slog.Bool("fulfillment_changed", reconcile.FulfillmentChanged(stored.FulfillmentOptionID, optionID)),
	}
	if len(req.Items) > 0 {
		if diff := translate.DiffItems(req.Items, stored.LineItems); !diff.IsEmpty() {
			attrs = append(attrs,
				slog.Int("items_added", len(diff.ToAdd)),
				slog.Int("items_removed", len(diff.ToRemove)),
				slog.Int("items_updated", len(diff.ToUpdate)),
			)
		}
	}
	s.logger.InfoContext(ctx, "updating checkout session", attrs...)

	co, err := s.engine.Update(ctx, id, ucpReq, key)
	if err != nil {
		return nil, s.fail(ctx, translate.OpUpdate, id, err)
	}

	s.succeed(translate.OpUpdate)
	return s.assembler.Assemble(co, nil), nil
}

// Complete submits the shared payment token and returns the session with a
// synthesized order record.
func (s *Service) Complete(ctx context.Context, id string, req *acp.CompleteRequest, idempotencyKey string) (*acp.SessionWithOrder, error) {
	if id == "" {
		return nil, s.fail(ctx, translate.OpComplete, id, model.NewValidationError("id", "checkout session id is required"))
	}
	if req == nil || req.PaymentData == nil {
		return nil, s.fail(ctx, translate.OpComplete, id, model.NewValidationError("payment_data", "payment_data is required"))
	}
	if req.PaymentData.Token == "" {
		return nil, s.fail(ctx, translate.OpComplete, id, model.NewValidationError("payment_data.token", "token is required"))
	}
	if req.PaymentData.Provider == "" {
		return nil, s.fail(ctx, translate.OpComplete, id, model.NewValidationError("payment_data.provider", "provider is required"))
	}

	instrument := s.instrument(req.PaymentData)
	ucpReq := &model.CheckoutCompleteRequest{
		Payment: model.PaymentRequest{
			SelectedInstrumentID: instrument.ID,
			Instruments:          []model.PaymentInstrument{instrument},
		},
		RiskSignals: map[string]string{},
	}
	key := s.keyOr(idempotencyKey, keyPrefixComplete)

	s.logger.InfoContext(ctx, "completing checkout session",
		slog.String("session_id", id),
		slog.String("provider", req.PaymentData.Provider),
		slog.String("handler_id", instrument.HandlerID),
		slog.String("idempotency_key", key),
	)

	co, err := s.engine.Complete(ctx, id, ucpReq, key)
	if err != nil {
		return nil, s.fail(ctx, translate.OpComplete, id, err)
	}

	s.succeed(translate.OpComplete)
	return &acp.SessionWithOrder{
		Session: *s.assembler.Assemble(co, nil),
		Order:   s.order(co),
	}, nil
}

// Cancel cancels a checkout. The request body is optional.
func (s *Service) Cancel(ctx context.Context, id string, req *acp.CancelRequest, idempotencyKey string) (*acp.Session, error) {
	if id == "" {
		return nil, s.fail(ctx, translate.OpCancel, id, model.NewValidationError("id", "checkout session id is required"))
	}

	key := s.keyOr(idempotencyKey, keyPrefixCancel)
	attrs := []any{slog.String("session_id", id), slog.String("idempotency_key", key)}
	if req != nil && req.IntentTrace != nil {
		attrs = append(attrs, slog.String("reason_code", req.IntentTrace.ReasonCode))
	}
	s.logger.InfoContext(ctx, "canceling checkout session", attrs...)

	co, err := s.engine.Cancel(ctx, id, key)
	if err != nil {
		return nil, s.fail(ctx, translate.OpCancel, id, err)
	}

	s.succeed(translate.OpCancel)
	return s.assembler.Assemble(co, nil), nil
}

func (s *Service) instrument(pd *acp.PaymentData) model.PaymentInstrument {
	handlerID := pd.Provider
	if s.handlers != nil {
		if resolved := s.handlers.HandlerID(pd.Provider); resolved != "" {
			handlerID = resolved
		}
	}
	instrumentType := defaultInstrument
	if opt, ok := s.assembler.Catalog().PaymentOption(pd.Provider); ok && opt.Type != "" {
		instrumentType = opt.Type
	}
	return model.PaymentInstrument{
		ID:        s.newID(),
		HandlerID: handlerID,
		Type:      instrumentType,
		Credential: &model.TokenCredential{
			Type:  credentialType,
			Token: pd.Token,
		},
	}
}

func (s *Service) order(co *model.Checkout) *acp.Order {
	id := co.OrderID
	if co.Order != nil && co.Order.ID != "" {
		id = co.Order.ID
	}
	if id == "" {
		id = s.newID()
	}
	return &acp.Order{
		ID:        id,
		Status:    orderStatusConfirmed,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
}

func (s *Service) keyOr(key, prefix string) string {
	if key != "" {
		return key
	}
	return prefix + s.newID()
}

func (s *Service) succeed(op translate.Operation) {
	s.metrics.RecordOperation(string(op), "success")
}

// fail classifies err, logs it and returns the *model.APIError for the caller.
func (s *Service) fail(ctx context.Context, op translate.Operation, id string, err error) error {
	apiErr := translate.APIError(op, err)
	s.metrics.RecordOperation(string(op), apiErr.Code)

	attrs := []any{
		slog.String("operation", string(op)),
		slog.String("code", apiErr.Code),
		slog.Int("status", apiErr.StatusCode),
		slog.String("error", err.Error()),
	}
	if id != "" {
		attrs = append(attrs, slog.String("session_id", id))
	}
	if kind, ok := engine.KindOf(err); ok {
		attrs = append(attrs, slog.String("engine_kind", kind.String()))
	}

	var validation *model.APIError
	switch {
	case errors.As(err, &validation):
		s.logger.WarnContext(ctx, "rejected checkout request", attrs...)
	case apiErr.StatusCode >= 500:
		s.logger.ErrorContext(ctx, "checkout operation failed", attrs...)
	default:
		s.logger.WarnContext(ctx, "checkout operation failed", attrs...)
	}
	return apiErr
}

func validateItems(items []acp.Item) error {
	for _, it := range items {
		if it.SKU == "" {
			return model.NewValidationError("items.sku", "sku is required")
		}
		if it.Qty() < 1 {
			return model.NewValidationError("items.quantity", "quantity must be at least 1")
		}
	}
	return nil
}
