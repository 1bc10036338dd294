package util

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"portal/internal/apperr"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 1 << 20

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads a JSON body into dst. A malformed or oversized body is
// reported as a validation error on "body" so clients get a 422 like any
// other bad input. Unknown fields are ignored.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooBig):
			return apperr.NewValidationError("body", "The request body is too large")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return apperr.NewValidationError(typeErr.Field, "The "+typeErr.Field+" field has the wrong type")
		case errors.Is(err, io.EOF):
			return apperr.NewValidationError("body", "The request body must not be empty")
		}
		return apperr.NewValidationError("body", "The request body must be valid JSON")
	}
	return nil
}
