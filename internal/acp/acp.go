// Package acp defines the Agentic Commerce Protocol wire types exposed to agents.
// Nullable response fields are pointers without omitempty so absent values
// serialize as JSON null rather than disappearing.
package acp

// Version is the ACP protocol version the proxy speaks.
const Version = "2026-01-16"

// Status is the closed set of ACP checkout session states.
type Status string

const (
	StatusOpen     Status = "open"
	StatusComplete Status = "complete"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// === Requests ===

// Item is a caller-supplied cart entry. Quantity defaults to 1 when omitted.
type Item struct {
	SKU      string  `json:"sku"`
	Quantity *int    `json:"quantity,omitempty"`
	Price    *int64  `json:"price,omitempty"`
	Name     *string `json:"name,omitempty"`
}

// Qty returns the requested quantity, 1 when the caller left it out.
func (i Item) Qty() int {
	if i.Quantity == nil {
		return 1
	}
	return *i.Quantity
}

// CreateRequest is the body of POST /checkout_sessions.
type CreateRequest struct {
	Items                []Item                `json:"items"`
	Buyer                *Buyer                `json:"buyer,omitempty"`
	FulfillmentDetails   *FulfillmentDetails   `json:"fulfillment_details,omitempty"`
	AffiliateAttribution *AffiliateAttribution `json:"affiliate_attribution,omitempty"`
}

// UpdateRequest is the body of POST /checkout_sessions/{id}.
// A nil Items slice means "keep the stored items"; an explicit list replaces them.
type UpdateRequest struct {
	Items                      []Item              `json:"items,omitempty"`
	Buyer                      *Buyer              `json:"buyer,omitempty"`
	FulfillmentDetails         *FulfillmentDetails `json:"fulfillment_details,omitempty"`
	SelectedFulfillmentOptions []string            `json:"selected_fulfillment_options,omitempty"`
}

// CompleteRequest is the body of POST /checkout_sessions/{id}/complete.
type CompleteRequest struct {
	PaymentData          *PaymentData          `json:"payment_data"`
	Buyer                *Buyer                `json:"buyer,omitempty"`
	AffiliateAttribution *AffiliateAttribution `json:"affiliate_attribution,omitempty"`
}

// CancelRequest is the optional body of POST /checkout_sessions/{id}/cancel.
type CancelRequest struct {
	IntentTrace *IntentTrace `json:"intent_trace,omitempty"`
}

// PaymentData carries the shared payment token minted by the PSP.
type PaymentData struct {
	Token    string `json:"token"`
	Provider string `json:"provider"`
}

// AffiliateAttribution is accepted for tracking and not forwarded to the engine.
type AffiliateAttribution struct {
	Source   string `json:"source,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Medium   string `json:"medium,omitempty"`
}

// IntentTrace explains why an agent canceled.
type IntentTrace struct {
	ReasonCode string `json:"reason_code,omitempty"`
}

// === Shared ===

// Buyer holds optional contact details.
type Buyer struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// Address is an ACP shipping address.
type Address struct {
	Line1      *string `json:"line1"`
	Line2      *string `json:"line2"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

// FulfillmentDetails pairs the shipping address with the chosen option.
type FulfillmentDetails struct {
	ShippingAddress  *Address `json:"shipping_address"`
	SelectedOptionID *string  `json:"selected_option_id"`
}

// === Responses ===

// LineItem is a translated engine line item. TotalPrice is always UnitPrice * Quantity.
type LineItem struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	TotalPrice int64  `json:"total_price"`
}

// FulfillmentOption is a static shipping choice from the merchant catalog.
type FulfillmentOption struct {
	ID                string  `json:"id" yaml:"id"`
	Name              string  `json:"name" yaml:"name"`
	Price             int64   `json:"price" yaml:"price"`
	EstimatedDelivery *string `json:"estimated_delivery" yaml:"estimated_delivery"`
}

// PaymentOption is a static payment method from the merchant catalog.
type PaymentOption struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	Provider string `json:"provider" yaml:"provider"`
}

// Session is the canonical ACP checkout session.
type Session struct {
	ID                 string              `json:"id"`
	Status             Status              `json:"status"`
	Items              []LineItem          `json:"items"`
	Subtotal           int64               `json:"subtotal"`
	Total              int64               `json:"total"`
	Currency           string              `json:"currency"`
	Buyer              *Buyer              `json:"buyer"`
	FulfillmentDetails *FulfillmentDetails `json:"fulfillment_details"`
	FulfillmentOptions []FulfillmentOption `json:"fulfillment_options,omitempty"`
	PaymentOptions     []PaymentOption     `json:"payment_options,omitempty"`
	ShippingCost       *int64              `json:"shipping_cost"`
	Tax                *int64              `json:"tax"`
	Discount           *int64              `json:"discount"`
	Metadata           map[string]any      `json:"metadata"`
}

// Order is synthesized after a successful completion.
type Order struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// SessionWithOrder is the response of the complete operation.
type SessionWithOrder struct {
	Session
	Order *Order `json:"order,omitempty"`
}

// Error is the ACP error body.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// === Discovery ===

// Discovery is served at /.well-known/acp.
type Discovery struct {
	Protocol           string         `json:"protocol"`
	Version            string         `json:"version"`
	Merchant           Merchant       `json:"merchant"`
	Endpoints          Endpoints      `json:"endpoints"`
	Authentication     Authentication `json:"authentication"`
	PaymentProviders   []string       `json:"payment_providers"`
	FulfillmentOptions []string       `json:"fulfillment_options"`
}

// Merchant identifies the seller behind the proxy.
type Merchant struct {
	Name         string `json:"name"`
	SupportEmail string `json:"support_email,omitempty"`
}

// Endpoints lists absolute URLs for each session operation.
type Endpoints struct {
	CreateCheckout   string `json:"create_checkout"`
	RetrieveCheckout string `json:"retrieve_checkout"`
	UpdateCheckout   string `json:"update_checkout"`
	CompleteCheckout string `json:"complete_checkout"`
	CancelCheckout   string `json:"cancel_checkout"`
}

// Authentication describes how agents authenticate.
type Authentication struct {
	Type   string `json:"type"`
	Header string `json:"header"`
}

// String returns a pointer to s, or nil when s is empty.
func String(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
