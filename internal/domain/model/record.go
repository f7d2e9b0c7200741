package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// field binds a known upstream key to a struct member.
type field struct {
	key string
	dst *string
}

// decodeRecord fills the known fields from data and returns everything else.
// Known fields that arrive as numbers or booleans keep their literal text;
// null leaves the field empty.
func decodeRecord(data []byte, fields []field) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		delete(raw, f.key)
		s, err := scalarString(v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.key, err)
		}
		*f.dst = s
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

func scalarString(v json.RawMessage) (string, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", nil
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("expected scalar, got %s", string(v[:1]))
	}
	if bytes.Equal(v, []byte("true")) || bytes.Equal(v, []byte("false")) {
		return string(v), nil
	}
	if _, err := strconv.ParseFloat(string(v), 64); err != nil {
		return "", err
	}
	return string(v), nil
}

// encodeRecord merges the known fields over extra. Empty known fields are
// omitted except "name".
func encodeRecord(fields []field, extra map[string]json.RawMessage) ([]byte, error) {
	out := make(map[string]any, len(fields)+len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for _, f := range fields {
		if *f.dst == "" && f.key != "name" {
			continue
		}
		out[f.key] = *f.dst
	}
	return json.Marshal(out)
}
