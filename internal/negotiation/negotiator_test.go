package negotiation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"acp-proxy/internal/model"
)

type stubSource struct {
	profile *model.DiscoveryProfile
	err     error
}

func (s *stubSource) Profile(context.Context) (*model.DiscoveryProfile, error) {
	return s.profile, s.err
}

var proxyPlatform = model.UCPMetadata{
	Version: "2026-01-11",
	Capabilities: map[string][]model.Capability{
		model.CapabilityCheckout:       {{Version: "2026-01-11"}},
		"dev.ucp.shopping.fulfillment": {{Version: "2026-01-11", Extends: model.NewSingleExtends(model.CapabilityCheckout)}},
	},
}

func engineProfile() *model.DiscoveryProfile {
	return &model.DiscoveryProfile{UCP: model.UCPMetadata{
		Version: "2026-01-11",
		Capabilities: map[string][]model.Capability{
			model.CapabilityCheckout:       {{Version: "2026-01-11"}},
			"dev.ucp.shopping.fulfillment": {{Version: "2026-01-11", Extends: model.NewSingleExtends(model.CapabilityCheckout)}},
			"dev.ucp.shopping.discount":    {{Version: "2026-01-11", Extends: model.NewSingleExtends(model.CapabilityCheckout)}},
		},
		PaymentHandlers: map[string][]model.PaymentHandler{
			"com.stripe.shared_payment_token": {
				{ID: "stripe_spt_v1", Version: "1.0.0"},
				{ID: "stripe_spt_v2", Version: "2.1.0"},
			},
			"com.paypal.wallet": {{ID: "pp_wallet", Version: "2026-01-11"}},
		},
	}}
}

func TestNegotiate_ResolvesHandlers(t *testing.T) {
	n := NewNegotiator(&stubSource{profile: engineProfile()}, proxyPlatform,
		[]string{"stripe", "paypal", "adyen"}, map[string]string{"adyen": "adyen_cfg"}, nil)

	res, err := n.Negotiate(context.Background())
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}

	want := map[string]string{"stripe": "stripe_spt_v2", "paypal": "pp_wallet", "adyen": "adyen_cfg"}
	if !reflect.DeepEqual(res.HandlerIDs, want) {
		t.Errorf("HandlerIDs = %v, want %v", res.HandlerIDs, want)
	}
	if n.HandlerID("stripe") != "stripe_spt_v2" {
		t.Errorf("HandlerID(stripe) = %q", n.HandlerID("stripe"))
	}
	if _, ok := res.Capabilities["dev.ucp.shopping.discount"]; ok {
		t.Error("discount is not declared by the proxy and should be dropped")
	}
	if _, ok := res.Capabilities["dev.ucp.shopping.fulfillment"]; !ok {
		t.Error("fulfillment should survive the intersection")
	}
}

func TestNegotiate_FetchFailureUsesFallback(t *testing.T) {
	n := NewNegotiator(&stubSource{err: errors.New("connection refused")}, proxyPlatform,
		[]string{"stripe"}, map[string]string{"stripe": "configured_stripe"}, nil)

	if n.HandlerID("stripe") != "configured_stripe" {
		t.Error("HandlerID before negotiation should use fallback")
	}

	res, err := n.Negotiate(context.Background())
	if err != nil {
		t.Fatalf("Negotiate() error = %v", err)
	}
	if res.FetchError == nil {
		t.Error("FetchError should be set")
	}
	if res.HandlerID("stripe") != "configured_stripe" {
		t.Errorf("HandlerID = %q", res.HandlerID("stripe"))
	}
}

func TestNegotiate_KeepsLastGoodResult(t *testing.T) {
	src := &stubSource{profile: engineProfile()}
	n := NewNegotiator(src, proxyPlatform, []string{"stripe"}, nil, nil)
	if _, err := n.Negotiate(context.Background()); err != nil {
		t.Fatal(err)
	}

	src.profile, src.err = nil, errors.New("timeout")
	res, err := n.Negotiate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.FetchError != nil || res.HandlerID("stripe") != "stripe_spt_v2" {
		t.Errorf("expected previous good result, got %+v", res)
	}
}

func TestNegotiate_Incompatible(t *testing.T) {
	oldEngine := engineProfile()
	oldEngine.UCP.Version = "2025-06-01"

	noCheckout := engineProfile()
	delete(noCheckout.UCP.Capabilities, model.CapabilityCheckout)

	tests := []struct {
		name    string
		profile *model.DiscoveryProfile
		code    string
	}{
		{"engine older than proxy", oldEngine, UCPVersionUnsupported},
		{"no checkout capability", noCheckout, UCPCapabilityMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNegotiator(&stubSource{profile: tt.profile}, proxyPlatform, nil, nil, nil)
			_, err := n.Negotiate(context.Background())
			var negErr *Error
			if !errors.As(err, &negErr) || negErr.Code != tt.code {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		engine, proxy string
		wantErr       bool
	}{
		{"2026-01-11", "2026-01-11", false},
		{"2027-01-01", "2026-01-11", false},
		{"2025-06-01", "2026-01-11", true},
		{"2026-01-11", "", false},
	}
	for _, tt := range tests {
		if err := validateVersion(tt.engine, tt.proxy); (err != nil) != tt.wantErr {
			t.Errorf("validateVersion(%q, %q) = %v, wantErr %v", tt.engine, tt.proxy, err, tt.wantErr)
		}
	}
}

func TestIntersectCapabilities_PrunesOrphans(t *testing.T) {
	engine := map[string][]model.Capability{
		"a":     {{Version: "1"}},
		"child": {{Version: "1", Extends: model.NewSingleExtends("b")}},
		"multi": {{Version: "1", Extends: model.NewMultiExtends("b", "a")}},
		"grand": {{Version: "1", Extends: model.NewSingleExtends("child")}},
	}
	platform := map[string][]model.Capability{"a": nil, "child": nil, "multi": nil, "grand": nil}

	got := intersectCapabilities(engine, platform)

	if _, ok := got["child"]; ok {
		t.Error("child extends missing b and should be pruned")
	}
	if _, ok := got["grand"]; ok {
		t.Error("grand extends pruned child and should be pruned")
	}
	if _, ok := got["multi"]; !ok {
		t.Error("multi has surviving parent a and should stay")
	}
}

func TestIntersectPaymentHandlers_Semver(t *testing.T) {
	engine := map[string][]model.PaymentHandler{
		"com.stripe": {{ID: "spt", Version: "1.2.0"}, {ID: "spt", Version: "3.0.0"}},
		"com.other":  {{ID: "x", Version: "1.0.0"}},
	}
	platform := map[string][]model.PaymentHandler{
		"com.stripe": {{ID: "spt", Version: "2.0.0"}},
	}

	got := intersectPaymentHandlers(engine, platform)

	want := map[string][]model.PaymentHandler{"com.stripe": {{ID: "spt", Version: "1.2.0"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("intersectPaymentHandlers() = %v, want %v", got, want)
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"v2.1.0", "2.1.0", 0},
		{"10.0.0", "9.0.0", 1},
		{"2026-01-11", "2025-12-31", 1},
		{"", "1.0.0", -1},
	}
	for _, tt := range tests {
		if got := compareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
