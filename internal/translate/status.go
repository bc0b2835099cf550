// Package translate converts between UCP engine checkouts and ACP sessions.
//
// Every function here is a pure projection: inputs are never mutated and
// each call builds fresh values. The only side effects are ID generation and
// the optional unmapped-status hook on Assembler.
package translate

import (
	"strings"

	"acp-proxy/internal/acp"
	"acp-proxy/internal/model"
)

// statusTable lists every engine status the proxy recognizes.
var statusTable = map[model.CheckoutStatus]acp.Status{
	model.StatusInProgress:         acp.StatusOpen,
	model.StatusIncomplete:         acp.StatusOpen,
	model.StatusReadyForComplete:   acp.StatusOpen,
	model.StatusCompleteInProgress: acp.StatusOpen,
	model.StatusRequiresEscalation: acp.StatusOpen,
	model.StatusCompleted:          acp.StatusComplete,
	model.StatusCanceled:           acp.StatusCanceled,
}

// MapStatus maps an engine status to its ACP status, ignoring case.
// Unrecognized statuses map to open with known=false so callers can report them.
func MapStatus(internal string) (acp.Status, bool) {
	key := model.CheckoutStatus(strings.ToLower(strings.TrimSpace(internal)))
	if status, ok := statusTable[key]; ok {
		return status, true
	}
	return acp.StatusOpen, false
}
