// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds decoded request bodies.
const maxBodyBytes = 1 << 20

// ProblemDetail represents RFC7807 problem details. Kind and Errors carry
// machine-readable context for business-rule failures.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Errors any    `json:"errors,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	WriteProblem(w, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// WriteProblem sends a fully populated problem document.
func WriteProblem(w http.ResponseWriter, p ProblemDetail) {
	if p.Type == "" {
		p.Type = "about:blank"
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// DecodeJSON decodes a JSON request body into target, rejecting unknown
// fields and trailing data.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected trailing data", ErrMalformedBody)
	}
	return nil
}

// ErrMalformedBody indicates a request body that is not valid JSON for the target.
var ErrMalformedBody = errors.New("malformed request body")
