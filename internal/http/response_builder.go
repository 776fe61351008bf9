// Package http provides the JSON API server and handler implementations.
//
// This file implements the response envelope: success bodies are plain JSON
// payloads, errors carry a {code, message, description} object so clients
// can branch on the code without parsing prose.

package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"pouch/internal/core"
	"pouch/internal/log"
)

// APIError is the error envelope for every non-2xx response.
type APIError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
	}
}

func writeAPIError(w http.ResponseWriter, status int, code, message, description string) {
	writeJSON(w, status, APIError{Code: code, Message: message, Description: description})
}

// writeDomainError maps sentinel errors onto the API taxonomy. Anything not
// in the map is an internal error; its detail stays in the log, not on the
// wire.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			writeAPIError(w, m.status, m.code, m.message, err.Error())
			return
		}
	}
	slog.ErrorContext(r.Context(), "Request failed", log.FieldError, err, "url", r.URL.Path)
	writeAPIError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong", "")
}

var domainErrors = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{core.ErrWalletNotFound, http.StatusNotFound, "WALLET_NOT_FOUND", "Wallet not found"},
	{sql.ErrNoRows, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found"},
	{core.ErrInvalidPeriodUnit, http.StatusUnprocessableEntity, "INVALID_PERIOD_UNIT", "Unknown spending period"},
	{core.ErrInvalidTimezone, http.StatusUnprocessableEntity, "INVALID_TIMEZONE", "Unknown timezone"},
	{core.ErrInvalidLimit, http.StatusUnprocessableEntity, "INVALID_LIMIT", "Limit and offset must be non-negative integers"},
	{core.ErrInvalidAmount, http.StatusUnprocessableEntity, "INVALID_AMOUNT", "Amount must be a positive number"},
	{core.ErrInvalidCategory, http.StatusUnprocessableEntity, "INVALID_CATEGORY", "Unknown category"},
	{core.ErrInvalidCurrency, http.StatusUnprocessableEntity, "INVALID_CURRENCY", "Currency must be a 3-letter code"},
	{core.ErrInvalidCountry, http.StatusUnprocessableEntity, "INVALID_COUNTRY", "Country must be a 2-letter code"},
	{core.ErrEmptyName, http.StatusUnprocessableEntity, "INVALID_NAME", "Name is required"},
	{core.ErrEmptyDescription, http.StatusUnprocessableEntity, "INVALID_DESCRIPTION", "Description is required"},
	{core.ErrNestedSubWallet, http.StatusUnprocessableEntity, "NESTED_SUB_WALLET", "A sub-wallet cannot have sub-wallets"},
}
