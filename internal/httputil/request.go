package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"cloudsyncpro/internal/domain"
)

// maxJSONBody caps JSON request bodies; uploads use multipart and their own limit
const maxJSONBody = 1 << 20

// ParseJSON decodes JSON from the request body into the given destination.
// An empty body leaves dest untouched. Malformed JSON is a validation error.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewValidationError("body", "request body too large")
		}
		return domain.NewValidationError("body", fmt.Sprintf("invalid JSON: %v", err))
	}

	return nil
}

// ParseID reads a positive integer path parameter
func ParseID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, domain.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// QueryOptionalID reads an optional id from the query string
func QueryOptionalID(r *http.Request, name string) (*int64, error) {
	id, err := ParseOptionalID(r.URL.Query().Get(name))
	if err != nil {
		return nil, domain.NewValidationError(name, "must be a positive integer or null")
	}
	return id, nil
}

// QueryInt reads an optional integer query parameter, def when absent
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
