package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope used for non-streaming failures.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{
		Error: APIErrorBody{
			Message:   message,
			Type:      errType,
			Code:      code,
			RequestID: requestID,
		},
	})
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

func WriteServiceUnavailableError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusServiceUnavailable, "server_error", "service_unavailable", message)
}

// QuotaExceededCode is the machine-readable error code of a quota rejection.
const QuotaExceededCode = "RATE_LIMIT_EXCEEDED"

// QuotaExceededBody is the 429 body the web client renders when a visitor has
// used up the day's assessments.
type QuotaExceededBody struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Error       string `json:"error"`
	HoursLeft   int    `json:"hoursLeft"`
	MinutesLeft int    `json:"minutesLeft"`
	Tip         string `json:"tip"`
}

// WriteQuotaExceeded writes a 429 with body. Callers set Retry-After.
func WriteQuotaExceeded(w http.ResponseWriter, requestID string, body QuotaExceededBody) {
	body.Success = false
	body.Error = QuotaExceededCode
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(body)
}

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
