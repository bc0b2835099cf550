package translate

import (
	"reflect"
	"testing"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
)

func TestEngineFulfillment(t *testing.T) {
	addr, option := EngineFulfillment(&acp.FulfillmentDetails{
		ShippingAddress: &acp.Address{
			Line1:      ptr("1 Main St"),
			City:       ptr("Springfield"),
			State:      ptr("IL"),
			PostalCode: ptr("62701"),
			Country:    ptr("US"),
		},
		SelectedOptionID: ptr("express"),
	})

	want := &model.PostalAddress{
		StreetAddress: "1 Main St",
		Locality:      "Springfield",
		Region:        "IL",
		PostalCode:    "62701",
		Country:       "US",
	}
	if !reflect.DeepEqual(addr, want) {
		t.Errorf("address = %+v, want %+v", addr, want)
	}
	if option != "express" {
		t.Errorf("option = %q, want express", option)
	}

	if a, o := EngineFulfillment(nil); a != nil || o != "" {
		t.Errorf("EngineFulfillment(nil) = %+v, %q", a, o)
	}
}

func TestMergeFulfillment(t *testing.T) {
	stored := &model.Checkout{
		FulfillmentAddress:  &model.PostalAddress{StreetAddress: "old"},
		FulfillmentOptionID: "standard",
	}

	tests := []struct {
		name       string
		req        acp.UpdateRequest
		wantStreet string
		wantOption string
	}{
		{"nothing requested keeps stored", acp.UpdateRequest{}, "old", "standard"},
		{
			name:       "selected_fulfillment_options fallback",
			req:        acp.UpdateRequest{SelectedFulfillmentOptions: []string{"express", "standard"}},
			wantStreet: "old",
			wantOption: "express",
		},
		{
			name: "details win",
			req: acp.UpdateRequest{
				FulfillmentDetails:         &acp.FulfillmentDetails{ShippingAddress: &acp.Address{Line1: ptr("new")}, SelectedOptionID: ptr("express")},
				SelectedFulfillmentOptions: []string{"standard"},
			},
			wantStreet: "new",
			wantOption: "express",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, option := MergeFulfillment(&tt.req, stored)
			if addr == nil || addr.StreetAddress != tt.wantStreet {
				t.Errorf("address = %+v, want street %q", addr, tt.wantStreet)
			}
			if option != tt.wantOption {
				t.Errorf("option = %q, want %q", option, tt.wantOption)
			}
		})
	}
}

func TestSessionFulfillment(t *testing.T) {
	if got := SessionFulfillment(&model.Checkout{}); got != nil {
		t.Errorf("SessionFulfillment(empty) = %+v, want nil", got)
	}

	got := SessionFulfillment(&model.Checkout{
		FulfillmentAddress:  &model.PostalAddress{StreetAddress: "1 Main St", Country: "US"},
		FulfillmentOptionID: "standard",
	})
	if got == nil || acp.Deref(got.SelectedOptionID) != "standard" {
		t.Fatalf("SessionFulfillment() = %+v", got)
	}
	if acp.Deref(got.ShippingAddress.Line1) != "1 Main St" || got.ShippingAddress.City != nil {
		t.Errorf("ShippingAddress = %+v", got.ShippingAddress)
	}
}
