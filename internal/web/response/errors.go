package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/conduit-lang/dictquery/internal/fault"
)

// StatusClientClosedRequest is the non-standard status for requests the client abandoned
const StatusClientClosedRequest = 499

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Ref       string `json:"ref,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// StatusFor maps an engine error kind to an HTTP status
func StatusFor(kind fault.Kind) int {
	switch kind {
	case fault.NotFound:
		return http.StatusNotFound
	case fault.Unparseable:
		return http.StatusUnprocessableEntity
	case fault.InvalidArgument:
		return http.StatusBadRequest
	case fault.AccessDenied:
		return http.StatusForbidden
	case fault.Cancelled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// RenderFault renders an engine error. Errors that did not originate in the engine
// are reported as a generic internal error.
func RenderFault(w http.ResponseWriter, requestID string, err error) {
	var fe *fault.Error
	if !errors.As(err, &fe) {
		RenderError(w, http.StatusInternalServerError, ErrorResponse{
			Error:     "error",
			Message:   "internal server error",
			Code:      "internal_error",
			RequestID: requestID,
		})
		return
	}

	RenderError(w, StatusFor(fe.Kind), ErrorResponse{
		Error:     "error",
		Message:   fe.Error(),
		Code:      fe.Kind.String(),
		Ref:       fe.Ref,
		RequestID: requestID,
	})
}

// RenderBadRequest renders a 400 for malformed request parameters
func RenderBadRequest(w http.ResponseWriter, requestID, message string) {
	RenderError(w, http.StatusBadRequest, ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      fault.InvalidArgument.String(),
		RequestID: requestID,
	})
}

// RenderError writes body as JSON with the given status
func RenderError(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	RenderJSON(w, statusCode, body)
}

// RenderJSON writes v as JSON with the given status
func RenderJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
