package translate

import "acp-proxy/internal/model"

// Totals holds the session-level amounts derived from an engine totals list.
// Nil pointers mean the engine did not report that component.
type Totals struct {
	Subtotal int64
	Total    int64
	Shipping *int64
	Discount *int64
	Tax      *int64
}

// ExtractTotals picks the first amount of each recognized type.
// Duplicated tags are never summed: the first entry wins.
// A missing total falls back to the subtotal.
func ExtractTotals(totals []model.Total) Totals {
	var t Totals
	if v, ok := firstAmount(totals, model.TotalTypeSubtotal); ok {
		t.Subtotal = v
	}
	t.Total = t.Subtotal
	if v, ok := firstAmount(totals, model.TotalTypeTotal); ok {
		t.Total = v
	}
	if v, ok := firstAmount(totals, model.TotalTypeFulfillment); ok {
		t.Shipping = &v
	}
	if v, ok := firstAmount(totals, model.TotalTypeDiscount); ok {
		t.Discount = &v
	}
	if v, ok := firstAmount(totals, model.TotalTypeTax); ok {
		t.Tax = &v
	}
	return t
}

func firstAmount(totals []model.Total, typ model.TotalType) (int64, bool) {
	for _, t := range totals {
		if t.Type == typ {
			return t.Amount, true
		}
	}
	return 0, false
}
