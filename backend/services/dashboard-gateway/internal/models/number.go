package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a metric value as sent by the backend: a JSON number, a numeric
// string, an empty string or null. Anything unparseable is kept as invalid
// rather than failing the whole payload.
type Number struct {
	Value float64
	Valid bool
}

// NewNumber returns a valid Number.
func NewNumber(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{Value: v, Valid: true}
}

// ParseNumber parses loosely formatted numeric text.
func ParseNumber(raw string) Number {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number{}
	}
	return NewNumber(v)
}

// Ptr returns nil for invalid numbers.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// String renders the value or "N/A".
func (n Number) String() string {
	if !n.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = Number{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*n = ParseNumber(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*n = NewNumber(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
