// Package handler contains the HTTP layer: JSON decoding, response
// envelopes, cache headers and the error-to-status mapping. Handlers hold
// no state beyond their service dependencies.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DukeRupert/medbank/internal/domain"
)

// Cache-Control values by data class.
const (
	// CacheNoStore is for identity data and anything set alongside cookies.
	CacheNoStore = "no-store"

	// CachePrivateShort is for per-user aggregates (summary cards).
	CachePrivateShort = "private, max-age=15"

	// CachePublicContent is for shared read-only content (textbook,
	// reference ranges).
	CachePublicContent = "public, max-age=300"
)

// maxBodyBytes caps request bodies; every payload here is small JSON.
const maxBodyBytes = 1 << 20

// ErrEmptyBody is returned by DecodeJSON when the request carried no body
// at all. Endpoints where that is legal match on it with errors.Is.
var ErrEmptyBody = domain.Invalid("handler.decode", "Request body must not be empty")

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads the request body into dst. Malformed input comes back
// as a domain validation error so handlers can pass it straight to
// ErrorResponse.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return domain.Wrap(err, domain.EINVALID, "handler.decode", "Request body is not valid JSON")
	}
	// Trailing garbage after the object is a malformed request too.
	if dec.More() {
		return domain.Invalid("handler.decode", "Request body must contain a single JSON object")
	}
	return nil
}

// DecodeJSONOptional is DecodeJSON for endpoints where an empty body is
// legal (refresh).
func DecodeJSONOptional(w http.ResponseWriter, r *http.Request, dst any) error {
	err := DecodeJSON(w, r, dst)
	if errors.Is(err, ErrEmptyBody) {
		return nil
	}
	return err
}
