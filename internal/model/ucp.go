// Package model defines the UCP wire structures spoken by the underlying checkout engine,
// plus the API error taxonomy shared by every layer of the proxy.
package model

import (
	"encoding/json"
)

// === Root Types ===

// Checkout is a UCP checkout session as returned by the engine.
// The proxy only projects from it; it never mutates an engine checkout in place.
type Checkout struct {
	UCP       *UCPMetadata   `json:"ucp,omitempty"`
	ID        string         `json:"id"`
	Status    CheckoutStatus `json:"status"`
	Currency  string         `json:"currency,omitempty"`
	LineItems []LineItem     `json:"line_items"`
	Totals    []Total        `json:"totals"`
	Buyer     *Buyer         `json:"buyer,omitempty"`
	Messages  []Message      `json:"messages,omitempty"`
	Links     []Link         `json:"links,omitempty"`

	// dev.ucp.shopping.fulfillment extension
	FulfillmentAddress  *PostalAddress `json:"fulfillment_address,omitempty"`
	FulfillmentOptionID string         `json:"fulfillment_option_id,omitempty"`

	// Order fields - populated after checkout completion.
	// Engines report either an order object or a bare order_id.
	Order   *Order `json:"order,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

// Order is the order confirmation attached to a completed checkout.
type Order struct {
	ID           string `json:"id"`
	PermalinkURL string `json:"permalink_url,omitempty"`
}

// UCPMetadata contains protocol version and registries for capabilities and handlers.
// Registries are keyed by reverse-domain name (e.g., "dev.ucp.shopping.checkout").
type UCPMetadata struct {
	Version         string                      `json:"version"`
	Services        map[string][]Service        `json:"services,omitempty"`
	Capabilities    map[string][]Capability     `json:"capabilities,omitempty"`
	PaymentHandlers map[string][]PaymentHandler `json:"payment_handlers,omitempty"`
}

// Service represents a transport binding for a UCP capability.
type Service struct {
	Version   string `json:"version"`
	Transport string `json:"transport"`
	Endpoint  string `json:"endpoint,omitempty"`
	Spec      string `json:"spec,omitempty"`
	Schema    string `json:"schema,omitempty"`
}

// Capability declares a supported UCP capability.
type Capability struct {
	Version string        `json:"version"`
	Spec    string        `json:"spec,omitempty"`
	Schema  string        `json:"schema,omitempty"`
	Extends *ExtendsField `json:"extends,omitempty"`
}

// ExtendsField holds either a single parent capability name or a list of them.
// Engines publish both forms, so decoding must accept either.
type ExtendsField struct {
	single   string
	multiple []string
}

// UnmarshalJSON handles both "string" and ["string", ...] formats.
func (e *ExtendsField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.single = s
		e.multiple = nil
		return nil
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	e.single = ""
	e.multiple = arr
	return nil
}

// MarshalJSON outputs string for single parent, array for multiple.
func (e ExtendsField) MarshalJSON() ([]byte, error) {
	if e.single != "" {
		return json.Marshal(e.single)
	}
	if len(e.multiple) > 0 {
		return json.Marshal(e.multiple)
	}
	return []byte("null"), nil
}

// Parents returns all parent capability names.
func (e ExtendsField) Parents() []string {
	if e.single != "" {
		return []string{e.single}
	}
	return e.multiple
}

// NewSingleExtends creates an ExtendsField with a single parent.
func NewSingleExtends(parent string) *ExtendsField {
	return &ExtendsField{single: parent}
}

// NewMultiExtends creates an ExtendsField with multiple parents.
func NewMultiExtends(parents ...string) *ExtendsField {
	return &ExtendsField{multiple: parents}
}

// === Enums ===

// CheckoutStatus is the engine's free-form checkout status.
// The constants below are the values UCP engines are known to emit; anything else
// is still decoded and handed to the status mapper.
type CheckoutStatus string

const (
	StatusInProgress         CheckoutStatus = "in_progress"
	StatusIncomplete         CheckoutStatus = "incomplete"
	StatusReadyForComplete   CheckoutStatus = "ready_for_complete"
	StatusCompleteInProgress CheckoutStatus = "complete_in_progress"
	StatusCompleted          CheckoutStatus = "completed"
	StatusCanceled           CheckoutStatus = "canceled"
	StatusRequiresEscalation CheckoutStatus = "requires_escalation"
)

// TotalType tags a pricing component in the engine's totals list.
type TotalType string

const (
	TotalTypeItemsDiscount TotalType = "items_discount"
	TotalTypeSubtotal      TotalType = "subtotal"
	TotalTypeDiscount      TotalType = "discount"
	TotalTypeFulfillment   TotalType = "fulfillment"
	TotalTypeTax           TotalType = "tax"
	TotalTypeFee           TotalType = "fee"
	TotalTypeTotal         TotalType = "total"
)

// CapabilityCheckout is the base UCP checkout capability the engine must advertise.
const CapabilityCheckout = "dev.ucp.shopping.checkout"

// === Line Items ===

// LineItem is a product entry in an engine checkout.
type LineItem struct {
	ID       string  `json:"id,omitempty"`
	Item     Item    `json:"item"`
	Quantity int     `json:"quantity"`
	Totals   []Total `json:"totals,omitempty"`
}

// Item is the product projection inside a line item.
type Item struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Price    int64  `json:"price,omitempty"` // minor units, unit price
	ImageURL string `json:"image_url,omitempty"`
}

// Total is a tagged price component. Amounts are minor currency units.
type Total struct {
	Type        TotalType `json:"type"`
	Amount      int64     `json:"amount"`
	DisplayText string    `json:"display_text,omitempty"`
}

// Link is a merchant policy URL.
type Link struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// === Payment ===

// PaymentRequest carries instruments on create/update/complete.
// Create and update send an empty object; complete selects one instrument.
type PaymentRequest struct {
	SelectedInstrumentID string              `json:"selected_instrument_id,omitempty"`
	Instruments          []PaymentInstrument `json:"instruments,omitempty"`
}

// SelectedInstrument returns the instrument whose ID matches SelectedInstrumentID, or nil.
func (p PaymentRequest) SelectedInstrument() *PaymentInstrument {
	for i := range p.Instruments {
		if p.Instruments[i].ID == p.SelectedInstrumentID {
			return &p.Instruments[i]
		}
	}
	return nil
}

// PaymentHandler is a payment collection strategy advertised in the engine profile.
type PaymentHandler struct {
	ID      string      `json:"id"`
	Version string      `json:"version"`
	Spec    string      `json:"spec,omitempty"`
	Schema  string      `json:"schema,omitempty"`
	Config  interface{} `json:"config,omitempty"`
}

// PaymentInstrument is a payment method submitted to the engine.
type PaymentInstrument struct {
	ID         string           `json:"id"`
	HandlerID  string           `json:"handler_id"`
	Type       string           `json:"type"`
	Credential *TokenCredential `json:"credential,omitempty"`
}

// TokenCredential wraps an opaque payment token.
type TokenCredential struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// === Address & Buyer ===

// PostalAddress represents a mailing address.
type PostalAddress struct {
	StreetAddress   string `json:"street_address,omitempty"`
	ExtendedAddress string `json:"extended_address,omitempty"`
	Locality        string `json:"address_locality,omitempty"`
	Region          string `json:"address_region,omitempty"`
	Country         string `json:"address_country,omitempty"`
	PostalCode      string `json:"postal_code,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	PhoneNumber     string `json:"phone_number,omitempty"`
}

// Buyer represents the purchasing customer.
type Buyer struct {
	FullName    string `json:"full_name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// === Messages ===

// Message is feedback attached to an engine checkout.
// Engines return error responses as a checkout carrying type="error" messages.
type Message struct {
	Type     string `json:"type"`
	Code     string `json:"code,omitempty"`
	Content  string `json:"content"`
	Path     string `json:"path,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// FirstError returns the first error-typed message, or nil.
func (c *Checkout) FirstError() *Message {
	for i := range c.Messages {
		if c.Messages[i].Type == "error" {
			return &c.Messages[i]
		}
	}
	return nil
}

// === Request Types ===

// LineItemRequest is an outbound line item on create or update.
// ID is set on update when the entry refers to a line item the engine already holds.
type LineItemRequest struct {
	ID       string      `json:"id,omitempty"`
	Item     ItemRequest `json:"item"`
	Quantity int         `json:"quantity"`
}

// ItemRequest identifies the product of an outbound line item.
type ItemRequest struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CheckoutCreateRequest creates an engine checkout.
type CheckoutCreateRequest struct {
	Currency            string            `json:"currency"`
	LineItems           []LineItemRequest `json:"line_items"`
	Buyer               *Buyer            `json:"buyer,omitempty"`
	Payment             PaymentRequest    `json:"payment"`
	FulfillmentAddress  *PostalAddress    `json:"fulfillment_address,omitempty"`
	FulfillmentOptionID string            `json:"fulfillment_option_id,omitempty"`
}

// CheckoutUpdateRequest replaces the engine checkout's mutable state.
// Full-state semantics: omitted line items would clear the cart, so callers
// always send the complete desired list.
type CheckoutUpdateRequest struct {
	ID                  string            `json:"id"`
	Currency            string            `json:"currency"`
	LineItems           []LineItemRequest `json:"line_items"`
	Buyer               *Buyer            `json:"buyer,omitempty"`
	Payment             PaymentRequest    `json:"payment"`
	FulfillmentAddress  *PostalAddress    `json:"fulfillment_address,omitempty"`
	FulfillmentOptionID string            `json:"fulfillment_option_id,omitempty"`
}

// CheckoutCompleteRequest submits payment and finalizes the checkout.
type CheckoutCompleteRequest struct {
	Payment     PaymentRequest    `json:"payment"`
	RiskSignals map[string]string `json:"risk_signals"`
}

// === Discovery Profile ===

// DiscoveryProfile is served by the engine at /.well-known/ucp.
type DiscoveryProfile struct {
	UCP UCPMetadata `json:"ucp"`
}
