package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// OptionalID is a nullable folder reference as clients send it. Absent, null,
// "" and "null" all mean root (Value == nil); numbers and numeric strings
// must be positive.
type OptionalID struct {
	Value *int64
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		o.Value = nil
		return nil
	}

	var raw string
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
	} else {
		raw = string(trimmed)
	}

	id, err := ParseOptionalID(raw)
	if err != nil {
		return err
	}
	o.Value = id
	return nil
}

// ParseOptionalID normalizes an id that may be blank or the literal "null"
func ParseOptionalID(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" || raw == "undefined" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return nil, fmt.Errorf("%q is not a valid id", raw)
	}
	return &id, nil
}
