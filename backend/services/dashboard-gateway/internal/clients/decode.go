package clients

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrStringBody is returned when a list endpoint answers with a bare string.
var ErrStringBody = errors.New("backend returned a string body")

// UnwrapData returns the Data (or data) member of an object body, or the
// body itself when it is not wrapped.
func UnwrapData(raw []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return trimmed
	}
	for _, key := range []string{"Data", "data"} {
		if inner, ok := wrapper[key]; ok && !bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
			return inner
		}
	}
	return trimmed
}

// DecodeList decodes a bare array or a Data-wrapped array. null and empty
// bodies give an empty slice.
func DecodeList[T any](raw []byte) ([]T, error) {
	inner := UnwrapData(raw)
	if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
		return []T{}, nil
	}
	if inner[0] == '"' {
		return nil, ErrStringBody
	}
	if inner[0] == '{' {
		// an object without Data means no rows
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(inner, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
