package translate

import (
	"encoding/json"
	"reflect"
	"testing"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
)

func TestAssemble_EndToEnd(t *testing.T) {
	co := &model.Checkout{
		ID:     "chk_1",
		Status: model.StatusInProgress,
		LineItems: []model.LineItem{
			{ID: "li1", Item: model.Item{ID: "X1", Title: "Widget", Price: 500}, Quantity: 2},
		},
		Totals: []model.Total{
			{Type: model.TotalTypeSubtotal, Amount: 1000},
			{Type: model.TotalTypeTotal, Amount: 1000},
		},
	}

	a := NewAssembler(DefaultCatalog())
	got := a.Assemble(co, nil)

	wantItems := []acp.LineItem{{ID: "li1", SKU: "X1", Name: "Widget", Quantity: 2, UnitPrice: 500, TotalPrice: 1000}}
	if !reflect.DeepEqual(got.Items, wantItems) {
		t.Errorf("Items = %+v, want %+v", got.Items, wantItems)
	}
	if got.Subtotal != 1000 || got.Total != 1000 {
		t.Errorf("Subtotal/Total = %d/%d, want 1000/1000", got.Subtotal, got.Total)
	}
	if got.Status != acp.StatusOpen {
		t.Errorf("Status = %q, want open", got.Status)
	}
	if got.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", got.Currency)
	}
	if len(got.PaymentOptions) != 2 {
		t.Errorf("PaymentOptions = %+v, want stripe and paypal", got.PaymentOptions)
	}
	if got.FulfillmentOptions != nil {
		t.Errorf("FulfillmentOptions = %+v, want omitted", got.FulfillmentOptions)
	}
}

func TestAssemble_FulfillmentOptionsOnlyWhenGiven(t *testing.T) {
	catalog := DefaultCatalog()
	a := NewAssembler(catalog)

	got := a.Assemble(&model.Checkout{ID: "chk"}, catalog.FulfillmentOptions)
	if len(got.FulfillmentOptions) != 2 || got.FulfillmentOptions[1].Price != 1999 {
		t.Errorf("FulfillmentOptions = %+v", got.FulfillmentOptions)
	}

	got.FulfillmentOptions[0].Price = 1
	if catalog.FulfillmentOptions[0].Price != 999 {
		t.Error("assembled session must not alias the catalog")
	}
}

func TestAssemble_UnmappedStatusReported(t *testing.T) {
	var reported []string
	a := NewAssembler(DefaultCatalog(), WithUnmappedStatusHook(func(s string) {
		reported = append(reported, s)
	}))

	got := a.Assemble(&model.Checkout{ID: "chk", Status: "frobnicated"}, nil)
	if got.Status != acp.StatusOpen {
		t.Errorf("Status = %q, want open", got.Status)
	}
	a.Assemble(&model.Checkout{ID: "chk", Status: model.StatusCompleted}, nil)
	a.Assemble(&model.Checkout{ID: "chk"}, nil)

	if !reflect.DeepEqual(reported, []string{"frobnicated"}) {
		t.Errorf("reported = %v, want [frobnicated]", reported)
	}
}

func TestAssemble_CurrencyPrecedence(t *testing.T) {
	a := NewAssembler(Catalog{Currency: "EUR"})
	if got := a.Assemble(&model.Checkout{Currency: "GBP"}, nil); got.Currency != "GBP" {
		t.Errorf("engine currency should win, got %q", got.Currency)
	}
	if got := a.Assemble(&model.Checkout{}, nil); got.Currency != "EUR" {
		t.Errorf("catalog currency should be the fallback, got %q", got.Currency)
	}
	if got := NewAssembler(Catalog{}).Assemble(&model.Checkout{}, nil); got.Currency != "USD" {
		t.Errorf("default currency = %q, want USD", got.Currency)
	}
}

func TestAssemble_GeneratesMissingLineItemIDs(t *testing.T) {
	a := NewAssembler(DefaultCatalog(), WithIDGenerator(func() string { return "fixed" }))
	got := a.Assemble(&model.Checkout{LineItems: []model.LineItem{{Item: model.Item{ID: "X"}, Quantity: 1}}}, nil)
	if got.Items[0].ID != "fixed" {
		t.Errorf("ID = %q, want fixed", got.Items[0].ID)
	}
}

func TestAssemble_NullableFieldsSerializeAsNull(t *testing.T) {
	a := NewAssembler(DefaultCatalog())
	b, err := json.Marshal(a.Assemble(&model.Checkout{ID: "chk"}, nil))
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"buyer", "shipping_cost", "discount", "tax", "fulfillment_details"} {
		if string(m[key]) != "null" {
			t.Errorf("%s = %s, want null", key, m[key])
		}
	}
	if string(m["items"]) != "[]" {
		t.Errorf("items = %s, want []", m["items"])
	}
	if _, ok := m["fulfillment_options"]; ok {
		t.Error("fulfillment_options should be omitted")
	}
}

func TestAssemble_BuyerNullFields(t *testing.T) {
	a := NewAssembler(DefaultCatalog())
	s := a.Assemble(&model.Checkout{Buyer: &model.Buyer{Email: "a@b.com"}}, nil)
	b, err := json.Marshal(s.Buyer)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"email":"a@b.com","name":null,"phone":null}` {
		t.Errorf("buyer = %s", b)
	}
}

func TestCatalogPaymentOption(t *testing.T) {
	c := DefaultCatalog()
	if p, ok := c.PaymentOption("paypal"); !ok || p.Type != "wallet" {
		t.Errorf("PaymentOption(paypal) = %+v, %v", p, ok)
	}
	if _, ok := c.PaymentOption("bitcoin"); ok {
		t.Error("PaymentOption(bitcoin) should not be found")
	}
}
