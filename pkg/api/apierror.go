// Package api exposes the HTTP surface of the export server: document CRUD,
// version listings, and the export download endpoint.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Wzesk/sd-export-server/pkg/export"
)

// errorBody is the JSON shape of every API error response.
type errorBody struct {
	// Error is a short, stable summary of the failure class.
	Error string `json:"error"`
	// Message is a human-readable explanation of this occurrence.
	Message string `json:"message"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: title, Message: message})
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "Validation error", message)
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "Not found", message)
}

// WriteMethodNotAllowed writes a 405 error response.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed",
		"The HTTP method is not supported for this endpoint")
}

// WriteTooManyRequests writes a 429 error response with a Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, retryAfterSecs int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
	WriteError(w, http.StatusTooManyRequests, "Too many requests",
		"Rate limit exceeded. Retry after the specified interval.")
}

// WriteInternal writes a 500 error response.
// The err parameter is logged but never exposed to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal error",
		"An unexpected error occurred. Please try again later.")
}

// WriteExportError maps a classified pipeline error onto its HTTP status,
// keeping its title and message as the response body.
func WriteExportError(w http.ResponseWriter, err error) {
	var exErr *export.Error
	if errors.As(err, &exErr) {
		if exErr.HTTPStatus() >= 500 {
			slog.Error("export pipeline error", "kind", exErr.Kind, "error", err)
		}
		WriteError(w, exErr.HTTPStatus(), exErr.Title, exErr.Message)
		return
	}
	WriteInternal(w, err)
}

// writeJSON writes a JSON success response.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
