package translate

import (
	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
	"acp-proxy/internal/reconcile"
)

const unknownItemName = "Unknown"

// CreateLineItems builds the engine line items for a new checkout.
func CreateLineItems(items []acp.Item) []model.LineItemRequest {
	out := make([]model.LineItemRequest, 0, len(items))
	for _, it := range items {
		out = append(out, lineItemRequest(it))
	}
	return out
}

// UpdateLineItems builds the full line-item list for an update.
//
// With no requested items the stored line items are sent back verbatim, so an
// update that leaves items out never clears the cart. Otherwise requested items
// that match a stored SKU carry the stored line-item id.
func UpdateLineItems(items []acp.Item, stored []model.LineItem) []model.LineItemRequest {
	if len(items) == 0 {
		out := make([]model.LineItemRequest, 0, len(stored))
		for _, li := range stored {
			out = append(out, model.LineItemRequest{
				ID:       li.ID,
				Item:     model.ItemRequest{ID: li.Item.ID, Title: li.Item.Title},
				Quantity: li.Quantity,
			})
		}
		return out
	}

	diff := reconcile.DiffLineItems(currentItems(stored), desiredItems(items))
	ids := diff.BackendIDs()

	out := make([]model.LineItemRequest, 0, len(items))
	for i, it := range items {
		req := lineItemRequest(it)
		req.ID = ids[i]
		out = append(out, req)
	}
	return out
}

// DiffItems reports how requested items relate to the stored ones.
func DiffItems(items []acp.Item, stored []model.LineItem) *reconcile.LineItemDiff {
	return reconcile.DiffLineItems(currentItems(stored), desiredItems(items))
}

// SessionLineItems projects engine line items into ACP line items.
// newID supplies ids for engine line items that arrive without one.
func SessionLineItems(items []model.LineItem, newID func() string) []acp.LineItem {
	out := make([]acp.LineItem, 0, len(items))
	for _, li := range items {
		id := li.ID
		if id == "" {
			id = newID()
		}
		name := li.Item.Title
		if name == "" {
			name = unknownItemName
		}
		qty := li.Quantity
		if qty == 0 {
			qty = 1
		}
		out = append(out, acp.LineItem{
			ID:         id,
			SKU:        li.Item.ID,
			Name:       name,
			Quantity:   qty,
			UnitPrice:  li.Item.Price,
			TotalPrice: li.Item.Price * int64(qty),
		})
	}
	return out
}

func lineItemRequest(it acp.Item) model.LineItemRequest {
	return model.LineItemRequest{
		Item:     model.ItemRequest{ID: it.SKU, Title: acp.Deref(it.Name)},
		Quantity: it.Qty(),
	}
}

func currentItems(stored []model.LineItem) []reconcile.CurrentItem {
	out := make([]reconcile.CurrentItem, 0, len(stored))
	for _, li := range stored {
		out = append(out, reconcile.CurrentItem{SKU: li.Item.ID, BackendID: li.ID, Quantity: li.Quantity})
	}
	return out
}

func desiredItems(items []acp.Item) []reconcile.DesiredItem {
	out := make([]reconcile.DesiredItem, 0, len(items))
	for _, it := range items {
		out = append(out, reconcile.DesiredItem{SKU: it.SKU, Quantity: it.Qty()})
	}
	return out
}
