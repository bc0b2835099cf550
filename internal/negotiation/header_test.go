package negotiation

import (
	"testing"
)

func TestParseUCPAgentHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{
			name:   "simple profile",
			header: `profile="https://proxy.example/profile"`,
			want:   "https://proxy.example/profile",
		},
		{
			name:   "profile with whitespace",
			header: `  profile="https://proxy.example/profile"  `,
			want:   "https://proxy.example/profile",
		},
		{
			name:   "profile after other params",
			header: `other="value", profile="https://foo.bar/p"`,
			want:   "https://foo.bar/p",
		},
		{
			name:   "profile with semicolon params ignored",
			header: `profile="https://proxy.example/profile";version=1`,
			want:   "https://proxy.example/profile",
		},
		{name: "empty header", header: "", wantErr: true},
		{name: "missing profile key", header: `other="value"`, wantErr: true},
		{name: "token instead of string", header: `profile=abc`, wantErr: true},
		{name: "malformed", header: `profile="unterminated`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUCPAgentHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUCPAgentHeader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseUCPAgentHeader() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatUCPAgentHeader(t *testing.T) {
	got, err := FormatUCPAgentHeader("https://proxy.example/.well-known/ucp")
	if err != nil {
		t.Fatalf("FormatUCPAgentHeader() error = %v", err)
	}
	if got != `profile="https://proxy.example/.well-known/ucp"` {
		t.Errorf("FormatUCPAgentHeader() = %q", got)
	}

	back, err := ParseUCPAgentHeader(got)
	if err != nil || back != "https://proxy.example/.well-known/ucp" {
		t.Errorf("round trip = %q, %v", back, err)
	}

	if _, err := FormatUCPAgentHeader(""); err == nil {
		t.Error("expected error for empty URL")
	}
}
