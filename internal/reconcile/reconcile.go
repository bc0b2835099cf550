// Package reconcile computes the delta between an engine checkout's stored
// line items and the items an agent asks for on update.
//
// UCP update is full-state: every line item the engine should keep must be
// sent again. Items the engine already holds are sent with their line-item id
// so the engine updates them in place instead of adding duplicates.
package reconcile

// LineItemDiff describes how desired items relate to the stored ones.
// Slices preserve the order of the desired (or, for ToRemove, current) list.
type LineItemDiff struct {
	ToAdd     []ItemToAdd    // SKUs in desired but not current
	ToRemove  []ItemToRemove // SKUs in current but not desired
	ToUpdate  []ItemToUpdate // SKUs in both with different quantities
	Unchanged []ItemToUpdate // SKUs in both with the same quantity
}

// ItemToAdd specifies a new item for the checkout.
type ItemToAdd struct {
	Index    int // position in the desired list
	SKU      string
	Quantity int
}

// ItemToRemove specifies a stored item the update drops.
type ItemToRemove struct {
	SKU       string
	BackendID string // engine line-item id
}

// ItemToUpdate pairs a desired item with the stored line item it replaces.
type ItemToUpdate struct {
	Index       int // position in the desired list
	SKU         string
	BackendID   string
	OldQuantity int
	NewQuantity int
}

// IsEmpty returns true if no line item changes are needed.
func (d *LineItemDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// BackendIDs maps positions in the desired list to the engine line-item id
// they should carry. Positions absent from the map are new items.
func (d *LineItemDiff) BackendIDs() map[int]string {
	ids := make(map[int]string, len(d.ToUpdate)+len(d.Unchanged))
	for _, u := range d.ToUpdate {
		ids[u.Index] = u.BackendID
	}
	for _, u := range d.Unchanged {
		ids[u.Index] = u.BackendID
	}
	return ids
}

// CurrentItem is a line item already stored by the engine.
type CurrentItem struct {
	SKU       string
	BackendID string
	Quantity  int
}

// DesiredItem is an item requested by the agent.
type DesiredItem struct {
	SKU      string
	Quantity int
}

// DiffLineItems matches desired items to stored ones by SKU.
// Each stored line item is claimed by at most one desired entry, the first
// with its SKU, so repeated SKUs in a request become separate additions.
func DiffLineItems(current []CurrentItem, desired []DesiredItem) *LineItemDiff {
	diff := &LineItemDiff{}

	unclaimed := make(map[string][]int, len(current))
	for i, item := range current {
		unclaimed[item.SKU] = append(unclaimed[item.SKU], i)
	}

	claimed := make([]bool, len(current))
	for i, want := range desired {
		candidates := unclaimed[want.SKU]
		if len(candidates) == 0 {
			diff.ToAdd = append(diff.ToAdd, ItemToAdd{Index: i, SKU: want.SKU, Quantity: want.Quantity})
			continue
		}
		have := current[candidates[0]]
		claimed[candidates[0]] = true
		unclaimed[want.SKU] = candidates[1:]

		match := ItemToUpdate{
			Index:       i,
			SKU:         want.SKU,
			BackendID:   have.BackendID,
			OldQuantity: have.Quantity,
			NewQuantity: want.Quantity,
		}
		if have.Quantity == want.Quantity {
			diff.Unchanged = append(diff.Unchanged, match)
		} else {
			diff.ToUpdate = append(diff.ToUpdate, match)
		}
	}

	for i, have := range current {
		if !claimed[i] {
			diff.ToRemove = append(diff.ToRemove, ItemToRemove{SKU: have.SKU, BackendID: have.BackendID})
		}
	}

	return diff
}

// FulfillmentChanged returns true if fulfillment selection differs.
func FulfillmentChanged(currentID, desiredID string) bool {
	return desiredID != "" && currentID != desiredID
}
