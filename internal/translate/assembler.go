package translate

import (
	"slices"

	"github.com/google/uuid"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
)

// DefaultCurrency is used when neither the engine nor the catalog names one.
const DefaultCurrency = "USD"

// Catalog is the per-deployment set of options attached to assembled sessions.
type Catalog struct {
	Currency           string
	FulfillmentOptions []acp.FulfillmentOption
	PaymentOptions     []acp.PaymentOption
}

// DefaultCatalog returns the stock catalog: card via stripe, wallet via paypal,
// standard and express shipping.
func DefaultCatalog() Catalog {
	return Catalog{
		Currency: DefaultCurrency,
		FulfillmentOptions: []acp.FulfillmentOption{
			{ID: "standard", Name: "Standard Shipping", Price: 999, EstimatedDelivery: acp.String("5-7 business days")},
			{ID: "express", Name: "Express Shipping", Price: 1999, EstimatedDelivery: acp.String("2-3 business days")},
		},
		PaymentOptions: []acp.PaymentOption{
			{ID: "stripe", Type: "card", Provider: "stripe"},
			{ID: "paypal", Type: "wallet", Provider: "paypal"},
		},
	}
}

// PaymentOption returns the catalog entry for a provider.
func (c Catalog) PaymentOption(provider string) (acp.PaymentOption, bool) {
	for _, p := range c.PaymentOptions {
		if p.Provider == provider {
			return p, true
		}
	}
	return acp.PaymentOption{}, false
}

// Assembler composes the sub-translators into an ACP session.
type Assembler struct {
	catalog    Catalog
	newID      func() string
	onUnmapped func(status string)
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithIDGenerator overrides the generator used for missing line-item ids.
func WithIDGenerator(fn func() string) Option {
	return func(a *Assembler) { a.newID = fn }
}

// WithUnmappedStatusHook registers fn to be called with every engine status
// MapStatus does not recognize.
func WithUnmappedStatusHook(fn func(status string)) Option {
	return func(a *Assembler) { a.onUnmapped = fn }
}

// NewAssembler creates an Assembler over the given catalog.
func NewAssembler(catalog Catalog, opts ...Option) *Assembler {
	if catalog.Currency == "" {
		catalog.Currency = DefaultCurrency
	}
	a := &Assembler{catalog: catalog, newID: uuid.NewString}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Catalog returns the assembler's catalog.
func (a *Assembler) Catalog() Catalog {
	return a.catalog
}

// Assemble builds the ACP session for an engine checkout.
// fulfillmentOptions is attached as-is; pass nil to omit it.
func (a *Assembler) Assemble(co *model.Checkout, fulfillmentOptions []acp.FulfillmentOption) *acp.Session {
	raw := string(co.Status)
	if raw == "" {
		raw = string(model.StatusInProgress)
	}
	status, known := MapStatus(raw)
	if !known && a.onUnmapped != nil {
		a.onUnmapped(raw)
	}

	currency := co.Currency
	if currency == "" {
		currency = a.catalog.Currency
	}

	totals := ExtractTotals(co.Totals)

	return &acp.Session{
		ID:                 co.ID,
		Status:             status,
		Items:              SessionLineItems(co.LineItems, a.newID),
		Subtotal:           totals.Subtotal,
		Total:              totals.Total,
		Currency:           currency,
		Buyer:              SessionBuyer(co.Buyer),
		FulfillmentDetails: SessionFulfillment(co),
		FulfillmentOptions: slices.Clone(fulfillmentOptions),
		PaymentOptions:     slices.Clone(a.catalog.PaymentOptions),
		ShippingCost:       totals.Shipping,
		Tax:                totals.Tax,
		Discount:           totals.Discount,
	}
}
