package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes, stable across releases; clients branch on these, not on
// messages.
const (
	codeUnauthorized        = "UNAUTHORIZED"
	codeInvalidRequestData  = "INVALID_REQUEST_DATA"
	codeReceiptInvalid      = "RECEIPT_INVALID"
	codeReceiptNotFound     = "RECEIPT_NOT_FOUND"
	codeReceiptAccessDenied = "RECEIPT_ACCESS_DENIED"
	codeNotAReceipt         = "NOT_A_RECEIPT"
	codeInternalServerError = "INTERNAL_SERVER_ERROR"
)

// fieldError points at the request field that failed validation.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []fieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details []fieldError) {
	writeJSON(w, status, errorResponse{Code: code, Message: message, Details: details})
}

func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, codeInternalServerError, "internal server error", nil)
}
