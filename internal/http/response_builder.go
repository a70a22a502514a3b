// Package http exposes the ledger, claim and payment operations as a JSON API.
//
// This file implements the builder for JSON envelope responses. Every body
// written by the API is either {"success":true,"data":...} or the
// {"success":false,"code":...,"message":...} envelope built from core.Result.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"reimburse/internal/core"
	"reimburse/internal/log"
)

// envelope is the body of every API response.
type envelope struct {
	core.Result
	Data any `json:"data,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       envelope
}

// NewJSONResponse creates a successful response builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
		body:       envelope{Result: core.Result{Success: true}},
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Data sets the payload of a successful response.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.body.Data = v
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Result replaces the envelope outcome, typically with core.ResultOf(err).
func (b *JSONResponseBuilder) Result(res core.Result) *JSONResponseBuilder {
	b.body.Result = res
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorResponse builds the failure envelope for err with the status its
// kind maps to.
func ErrorResponse(err error) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(StatusFor(err)).
		Result(core.ResultOf(err))
}

// StatusFor maps an operation error to an HTTP status.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	var bad *badRequestError
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}
	switch core.KindOf(err) {
	case "":
		return http.StatusOK
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures with the request logger and writes
// the failure envelope. Domain rejections were already logged by the service.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if core.KindOf(err) == core.KindStorage {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err, log.FieldErrorType, log.ErrorTypeDatabase, log.FieldPath, r.URL.Path)
	}
	ErrorResponse(err).Write(w)
}

func writeData(w http.ResponseWriter, status int, data any) {
	NewJSONResponse().Status(status).Data(data).Write(w)
}
