// Package handlers provides HTTP handlers for the Deuce API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// Problem is the error body returned on every non-2xx response.
type Problem struct {
	// Title is a short, human-readable summary of the error class.
	Title string `json:"title"`

	// Description is a human-readable explanation specific to this occurrence.
	Description string `json:"description"`
}

// WriteProblem writes a Problem response with the given status code.
func WriteProblem(w http.ResponseWriter, status int, title, description string) {
	problem := &Problem{
		Title:       title,
		Description: description,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// Common problem helper functions for standard HTTP errors.

// BadRequest writes a 400 Bad Request problem response.
func BadRequest(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusBadRequest, "Invalid API request", description)
}

// BadRequestBody writes a 400 Bad Request problem response for a malformed body.
func BadRequestBody(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusBadRequest, "Invalid request body", description)
}

// Unauthorized writes a 401 Unauthorized problem response.
func Unauthorized(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusUnauthorized, "Unauthorized", description)
}

// NotFound writes a 404 Not Found problem response.
func NotFound(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusNotFound, "Not Found", description)
}

// MethodNotAllowed writes a 405 problem response. Callers set the Allow
// header before invoking it.
func MethodNotAllowed(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", description)
}

// Conflict writes a 409 Conflict problem response.
func Conflict(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusConflict, "Conflict", description)
}

// RequestEntityTooLarge writes a 413 problem response.
func RequestEntityTooLarge(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", description)
}

// Gone writes a 410 Gone problem response.
func Gone(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusGone, "Gone", description)
}

// PreconditionFailed writes a 412 problem response.
func PreconditionFailed(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusPreconditionFailed, "Precondition Failure", description)
}

// InternalServerError writes a 500 Internal Server Error problem response.
func InternalServerError(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", description)
}

// ServiceUnavailable writes a 503 Service Unavailable problem response.
func ServiceUnavailable(w http.ResponseWriter, description string) {
	WriteProblem(w, http.StatusServiceUnavailable, "Service Unavailable", description)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteJSONOK writes a 200 OK JSON response.
func WriteJSONOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
