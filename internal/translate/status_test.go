package translate

import (
	"testing"

	"acp-proxy/internal/acp"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		internal  string
		want      acp.Status
		wantKnown bool
	}{
		{"in_progress", acp.StatusOpen, true},
		{"ready_for_complete", acp.StatusOpen, true},
		{"completed", acp.StatusComplete, true},
		{"canceled", acp.StatusCanceled, true},
		{"COMPLETED", acp.StatusComplete, true},
		{"  Canceled ", acp.StatusCanceled, true},
		{"incomplete", acp.StatusOpen, true},
		{"complete_in_progress", acp.StatusOpen, true},
		{"requires_escalation", acp.StatusOpen, true},
		{"frobnicated", acp.StatusOpen, false},
		{"", acp.StatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(tt.internal, func(t *testing.T) {
			got, known := MapStatus(tt.internal)
			if got != tt.want {
				t.Errorf("MapStatus(%q) = %q, want %q", tt.internal, got, tt.want)
			}
			if known != tt.wantKnown {
				t.Errorf("MapStatus(%q) known = %v, want %v", tt.internal, known, tt.wantKnown)
			}
		})
	}
}
