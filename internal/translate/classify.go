package translate

import (
	"errors"
	"net/http"
	"strings"

	"acp-proxy/internal/engine"
	"acp-proxy/internal/model"
)

// Operation names a session operation for error classification.
type Operation string

const (
	OpCreate   Operation = "create"
	OpRetrieve Operation = "retrieve"
	OpUpdate   Operation = "update"
	OpComplete Operation = "complete"
	OpCancel   Operation = "cancel"
)

// mutating reports whether op changes an existing checkout.
func (op Operation) mutating() bool {
	return op == OpUpdate || op == OpComplete || op == OpCancel
}

// ErrorKind is the ACP-facing category of a failed operation.
type ErrorKind int

const (
	ErrorGeneric ErrorKind = iota
	ErrorNotFound
	ErrorConflict
	ErrorValidationIncomplete
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNotFound:
		return "not_found"
	case ErrorConflict:
		return "conflict"
	case ErrorValidationIncomplete:
		return "validation_incomplete"
	default:
		return "generic"
	}
}

// Classify maps an engine failure to an ErrorKind.
// Structured engine errors are mapped by Kind; for invalid and unknown kinds
// the message text is matched instead.
func Classify(op Operation, err error) ErrorKind {
	if err == nil {
		return ErrorGeneric
	}

	kind, _ := engine.KindOf(err)
	switch kind {
	case engine.KindNotFound:
		return ErrorNotFound
	case engine.KindNotModifiable, engine.KindCannotCancel:
		if op.mutating() {
			return ErrorConflict
		}
		return ErrorGeneric
	case engine.KindFulfillmentRequired:
		if op == OpComplete {
			return ErrorValidationIncomplete
		}
		return ErrorGeneric
	case engine.KindUnavailable:
		return ErrorGeneric
	case engine.KindInvalid, engine.KindUnknown:
		return classifyMessage(op, err.Error())
	}
	return ErrorGeneric
}

func classifyMessage(op Operation, msg string) ErrorKind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "not found"):
		return ErrorNotFound
	case op.mutating() && strings.Contains(msg, "not modifiable"):
		return ErrorConflict
	case op == OpComplete && strings.Contains(msg, "fulfillment"):
		return ErrorValidationIncomplete
	case op == OpCancel && strings.Contains(msg, "cannot cancel"):
		return ErrorConflict
	}
	return ErrorGeneric
}

// HTTPStatus returns the response status for kind. Conflict is 405 on cancel
// and 409 everywhere else.
func HTTPStatus(op Operation, kind ErrorKind) int {
	switch kind {
	case ErrorNotFound:
		return http.StatusNotFound
	case ErrorConflict:
		if op == OpCancel {
			return http.StatusMethodNotAllowed
		}
		return http.StatusConflict
	case ErrorValidationIncomplete:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var conflictMessages = map[Operation]string{
	OpUpdate:   "Checkout session is not modifiable",
	OpComplete: "Checkout already completed",
	OpCancel:   "Checkout session cannot be canceled (already completed or canceled)",
}

// APIError converts a failed operation into the error returned to the agent.
// Errors that already are *model.APIError pass through unchanged.
func APIError(op Operation, err error) *model.APIError {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	kind := Classify(op, err)
	switch kind {
	case ErrorNotFound:
		return model.NewNotFoundError(err)
	case ErrorConflict:
		return model.NewConflictError(HTTPStatus(op, kind), conflictMessages[op], err)
	case ErrorValidationIncomplete:
		return model.NewIncompleteError(err)
	default:
		return model.NewProcessingError(err)
	}
}
