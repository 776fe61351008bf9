// Package http provides the JSON API server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// the identity header, path ids, and the digit-string limit/offset pair.

package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"pouch/internal/core"
)

// userID returns the caller identity from the X-User-ID header.
// Authentication happens upstream; by the time a request reaches this
// service the header is trusted.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// parseLimitOffset reads the limit/offset pair from the query. Values must
// be plain decimal digit strings; offset defaults to 0 and limit to its
// caller-supplied default. Anything else maps to core.ErrInvalidLimit.
func parseLimitOffset(query url.Values, defaultLimit int) (limit, offset int, err error) {
	limit = defaultLimit
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err = parseDigits(raw)
		if err != nil || limit < 1 {
			return 0, 0, core.ErrInvalidLimit
		}
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err = parseDigits(raw)
		if err != nil {
			return 0, 0, core.ErrInvalidLimit
		}
	}
	return limit, offset, nil
}

// parseDigits accepts only unsigned decimal digit strings, so "+5", "5.0"
// and "1e2" are all rejected.
func parseDigits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a digit string: %q", s)
		}
	}
	return strconv.Atoi(s)
}

// decodeBody parses a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
