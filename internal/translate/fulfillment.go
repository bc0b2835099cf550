package translate

import (
	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
)

// EngineFulfillment converts ACP fulfillment details into the engine's
// fulfillment address and selected option id.
func EngineFulfillment(d *acp.FulfillmentDetails) (*model.PostalAddress, string) {
	if d == nil {
		return nil, ""
	}
	return engineAddress(d.ShippingAddress), acp.Deref(d.SelectedOptionID)
}

// MergeFulfillment resolves the fulfillment to send on update.
// Requested values win; the first of selected_fulfillment_options stands in for
// a missing selected_option_id; anything still unset keeps the stored value.
func MergeFulfillment(req *acp.UpdateRequest, stored *model.Checkout) (*model.PostalAddress, string) {
	addr, optionID := EngineFulfillment(req.FulfillmentDetails)
	if optionID == "" && len(req.SelectedFulfillmentOptions) > 0 {
		optionID = req.SelectedFulfillmentOptions[0]
	}
	if stored != nil {
		if addr == nil && stored.FulfillmentAddress != nil {
			kept := *stored.FulfillmentAddress
			addr = &kept
		}
		if optionID == "" {
			optionID = stored.FulfillmentOptionID
		}
	}
	return addr, optionID
}

// SessionFulfillment projects the engine's fulfillment state into ACP.
// Returns nil when the engine holds neither an address nor a selection.
func SessionFulfillment(co *model.Checkout) *acp.FulfillmentDetails {
	if co.FulfillmentAddress == nil && co.FulfillmentOptionID == "" {
		return nil
	}
	return &acp.FulfillmentDetails{
		ShippingAddress:  sessionAddress(co.FulfillmentAddress),
		SelectedOptionID: acp.String(co.FulfillmentOptionID),
	}
}

func engineAddress(a *acp.Address) *model.PostalAddress {
	if a == nil {
		return nil
	}
	return &model.PostalAddress{
		StreetAddress:   acp.Deref(a.Line1),
		ExtendedAddress: acp.Deref(a.Line2),
		Locality:        acp.Deref(a.City),
		Region:          acp.Deref(a.State),
		PostalCode:      acp.Deref(a.PostalCode),
		Country:         acp.Deref(a.Country),
	}
}

func sessionAddress(a *model.PostalAddress) *acp.Address {
	if a == nil {
		return nil
	}
	return &acp.Address{
		Line1:      acp.String(a.StreetAddress),
		Line2:      acp.String(a.ExtendedAddress),
		City:       acp.String(a.Locality),
		State:      acp.String(a.Region),
		PostalCode: acp.String(a.PostalCode),
		Country:    acp.String(a.Country),
	}
}
