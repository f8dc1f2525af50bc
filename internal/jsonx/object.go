// Package jsonx reads JSON objects without losing their key order.
package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one key/value pair of a JSON object, in document order.
type Field struct {
	Key   string
	Value json.RawMessage
}

// Shape is the top-level JSON kind of a raw value.
type Shape int

const (
	ShapeInvalid Shape = iota
	ShapeNull
	ShapeObject
	ShapeArray
	ShapeString
	ShapeScalar
)

// ShapeOf inspects the first significant byte of raw.
func ShapeOf(raw json.RawMessage) Shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ShapeInvalid
	}
	switch trimmed[0] {
	case '{':
		return ShapeObject
	case '[':
		return ShapeArray
	case '"':
		return ShapeString
	case 'n':
		return ShapeNull
	default:
		return ShapeScalar
	}
}

// Fields decodes a JSON object into its ordered fields. Duplicate keys are kept.
func Fields(raw json.RawMessage) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		fields = append(fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

// Elements decodes a JSON array into its raw elements.
func Elements(raw json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Text renders a scalar as a string: strings are unquoted, numbers and bools keep their literal.
func Text(raw json.RawMessage) string {
	switch ShapeOf(raw) {
	case ShapeString:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case ShapeScalar:
		return string(bytes.TrimSpace(raw))
	}
	return ""
}

// Lookup returns the first field whose key matches one of names exactly.
func Lookup(fields []Field, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		for _, f := range fields {
			if f.Key == name {
				return f.Value, true
			}
		}
	}
	return nil, false
}
