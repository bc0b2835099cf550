package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), "acp-proxy", "")
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error: %v", err)
	}
}

func TestSetupInvalidEndpoint(t *testing.T) {
	if _, err := Setup(context.Background(), "acp-proxy", "collector:4318"); err == nil {
		t.Error("expected error for endpoint without scheme")
	}
}

func TestSetupExportsSpans(t *testing.T) {
	var hits atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	shutdown, err := Setup(context.Background(), "acp-proxy", srv.URL)
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "checkout")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error: %v", err)
	}
	if hits.Load() == 0 {
		t.Fatal("collector received no export")
	}
	if got := path.Load(); got != "/v1/traces" {
		t.Errorf("export path = %v, want /v1/traces", got)
	}
}

func TestTracesURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
		wantErr  bool
	}{
		{endpoint: "http://collector:4318", want: "http://collector:4318/v1/traces"},
		{endpoint: "https://collector:4318/", want: "https://collector:4318/v1/traces"},
		{endpoint: "https://otlp.example.com/custom/traces", want: "https://otlp.example.com/custom/traces"},
		{endpoint: "collector:4318", wantErr: true},
		{endpoint: "ftp://collector", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			got, err := tracesURL(tt.endpoint)
			if tt.wantErr {
				if err == nil {
					t.Errorf("tracesURL(%q) expected error", tt.endpoint)
				}
				return
			}
			if err != nil {
				t.Fatalf("tracesURL(%q) error: %v", tt.endpoint, err)
			}
			if got != tt.want {
				t.Errorf("tracesURL(%q) = %q, want %q", tt.endpoint, got, tt.want)
			}
		})
	}
}
