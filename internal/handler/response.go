package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/efreitasn/minivenue/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// messageResponse is the body of successful commands that return no data.
type messageResponse struct {
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// statusHTTP maps each failure status to its HTTP code and default message.
var statusHTTP = map[domain.Status]struct {
	code    int
	message string
}{
	domain.StatusAlreadyExists:        {http.StatusConflict, "User already exists"},
	domain.StatusWrongPassword:        {http.StatusUnauthorized, "Wrong password"},
	domain.StatusUserNotFound:         {http.StatusNotFound, "User not found"},
	domain.StatusMarketNotFound:       {http.StatusNotFound, "Market not found"},
	domain.StatusInsufficientFunds:    {http.StatusUnprocessableEntity, "Insufficient funds"},
	domain.StatusInsufficientHoldings: {http.StatusUnprocessableEntity, "Insufficient holdings"},
	domain.StatusNoLiquidity:          {http.StatusUnprocessableEntity, "No liquidity on the opposite side"},
	domain.StatusInvalidOrder:         {http.StatusBadRequest, "Invalid order"},
	domain.StatusInternalError:        {http.StatusInternalServerError, "An unexpected error occurred"},
}

// HTTPStatus returns the HTTP status code for a core status.
func HTTPStatus(s domain.Status) int {
	switch s {
	case domain.StatusOk, domain.StatusAuthenticated:
		return http.StatusOK
	case domain.StatusCreated:
		return http.StatusCreated
	}
	if m, ok := statusHTTP[s]; ok {
		return m.code
	}
	return http.StatusInternalServerError
}

// writeStatusError classifies err and writes it as an error response.
// Validation messages are passed through; internal faults never are.
func writeStatusError(w http.ResponseWriter, err error) {
	status := domain.StatusOf(err)
	m, ok := statusHTTP[status]
	if !ok {
		status = domain.StatusInternalError
		m = statusHTTP[status]
	}

	message := m.message
	var verr *domain.ValidationError
	if status == domain.StatusInvalidOrder && errors.As(err, &verr) {
		message = verr.Message
	}
	WriteError(w, m.code, string(status), message)
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// writeBadRequest reports a malformed request body or parameter.
func writeBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, string(domain.StatusInvalidOrder), message)
}
