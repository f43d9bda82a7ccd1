package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValueKind tags the shape of a filter value.
type ValueKind uint8

const (
	// KindMissing is an omitted or null value. Conditions carrying it are dropped.
	KindMissing ValueKind = iota
	// KindSingle is a single string literal.
	KindSingle
	// KindRange is a pair of string literals, used by between.
	KindRange
	// KindMalformed is a list whose length is not two. It is kept instead of
	// being rejected so the condition can be dropped without failing the request.
	KindMalformed
)

// Value is the tagged variant Single(string) | Range(string, string).
// The zero value is missing, so a condition decoded without a value never
// compiles to a comparison against the empty string.
type Value struct {
	kind  ValueKind
	items []string
}

// Single returns a single-literal value.
func Single(s string) Value {
	return Value{kind: KindSingle, items: []string{s}}
}

// Range returns a two-literal value.
func Range(low, high string) Value {
	return Value{kind: KindRange, items: []string{low, high}}
}

// List returns Range for exactly two items and a malformed value otherwise.
func List(items []string) Value {
	if len(items) == 2 {
		return Range(items[0], items[1])
	}
	return Value{kind: KindMalformed, items: append([]string(nil), items...)}
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// AsSingle returns the literal of a Single value.
func (v Value) AsSingle() (string, bool) {
	if v.kind != KindSingle {
		return "", false
	}
	if len(v.items) == 0 {
		return "", true
	}
	return v.items[0], true
}

// AsRange returns both ends of a Range value.
func (v Value) AsRange() (low, high string, ok bool) {
	if v.kind != KindRange {
		return "", "", false
	}
	return v.items[0], v.items[1], true
}

// String renders the raw value for logs and descriptions.
func (v Value) String() string {
	switch v.kind {
	case KindSingle:
		s, _ := v.AsSingle()
		return s
	case KindRange:
		return v.items[0] + " / " + v.items[1]
	case KindMissing:
		return ""
	default:
		return "[" + strings.Join(v.items, ", ") + "]"
	}
}

// MarshalJSON encodes Single as a string, the list variants as arrays and a
// missing value as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMissing:
		return []byte("null"), nil
	case KindSingle:
		s, _ := v.AsSingle()
		return json.Marshal(s)
	}
	items := v.items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

// UnmarshalJSON accepts a string or an array of strings. Numbers and booleans
// are taken by their literal text, the way a form would send them. null
// decodes to a missing value.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, len(raw))
		for i, r := range raw {
			s, err := literal(r)
			if err != nil {
				return fmt.Errorf("value[%d]: %w", i, err)
			}
			items[i] = s
		}
		*v = List(items)
		return nil
	}
	s, err := literal(data)
	if err != nil {
		return err
	}
	*v = Single(s)
	return nil
}

func literal(data json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			return "true", nil
		}
		return "false", nil
	}
	return "", fmt.Errorf("unsupported filter value %s", string(data))
}

// UnmarshalJSON normalizes the connector and defaults it to AND.
func (l *Logical) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*l = AND
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseLogical(s)
	if !ok {
		return fmt.Errorf("logical must be AND or OR, got %q", s)
	}
	*l = parsed
	return nil
}
