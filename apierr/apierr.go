// Package apierr defines the error kinds the gateway surfaces to HTTP
// clients and the single helper that writes their JSON bodies.
package apierr

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Kind identifies one of the error kinds spec.md §7 enumerates.
type Kind string

const (
	InvalidRequest          Kind = "invalid_request"
	Unauthorized            Kind = "unauthorized"
	RateLimited             Kind = "rate_limit_exceeded"
	CoordinationUnavailable Kind = "coordination_unavailable"
	Overloaded              Kind = "overloaded"
	GeneratorFailed         Kind = "generator_failed"
)

// status maps each kind to its HTTP status code.
var status = map[Kind]int{
	InvalidRequest:          http.StatusBadRequest,
	Unauthorized:            http.StatusUnauthorized,
	RateLimited:             http.StatusTooManyRequests,
	CoordinationUnavailable: http.StatusBadGateway,
	Overloaded:              http.StatusServiceUnavailable,
	GeneratorFailed:         http.StatusBadGateway,
}

// Error is the error type every component in this repo returns for a
// client-facing failure. Internal errors (I/O, parsing) should be wrapped
// into one of these kinds before reaching the handler.
type Error struct {
	Kind    Kind
	Message string
	// Dimension and RetryAfter are only populated for RateLimited.
	Dimension  string
	RetryAfter int
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// RateLimit constructs the 429 variant carrying the denied dimension and
// retry hint, per spec.md §6's 429 body shape.
func RateLimit(dimension string, retryAfter int) *Error {
	return &Error{Kind: RateLimited, Message: "rate limit exceeded", Dimension: dimension, RetryAfter: retryAfter}
}

// StatusCode returns the HTTP status code for this error's kind.
func (e *Error) StatusCode() int {
	if c, ok := status[e.Kind]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// Write serializes the error to w per spec.md §6's body shapes and sets
// Retry-After for rate-limit denials.
func Write(w http.ResponseWriter, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	if err.Kind == RateLimited {
		w.Header().Set("Retry-After", strconv.Itoa(err.RetryAfter))
	}
	w.WriteHeader(err.StatusCode())

	if err.Kind == RateLimited {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"type":        "rate_limit_exceeded",
				"dimension":   err.Dimension,
				"retry_after": err.RetryAfter,
			},
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"type":    string(err.Kind),
			"message": err.Message,
		},
	})
}
