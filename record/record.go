// Package record models dataset rows for bulk translation.
//
// A Record maps field names to values. A value is either a single text, an
// ordered list of texts, or any other JSON value, which is carried through
// untouched. Every record has a sequence identifier that is only used to
// order the final output.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultIDKey is the JSON key holding the record sequence identifier.
const DefaultIDKey = "qas_id"

// Kind tells which of the Value fields is meaningful.
type Kind int

const (
	KindText Kind = iota // single text
	KindList             // ordered list of texts
	KindRaw              // any other JSON value, never translated
)

// Value is a field value of a record.
type Value struct {
	Kind Kind
	Text string
	List []string
	Raw  json.RawMessage
}

// Text returns a single-text value.
func Text(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// List returns a list value holding a copy of items.
func List(items ...string) Value {
	l := make([]string, len(items))
	copy(l, items)
	return Value{Kind: KindList, List: l}
}

// IsEmpty reports whether there is nothing to translate in v.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindText:
		return v.Text == ""
	case KindList:
		return len(v.List) == 0
	default:
		return true
	}
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	c := Value{Kind: v.Kind, Text: v.Text}
	if v.List != nil {
		c.List = make([]string, len(v.List))
		copy(c.List, v.List)
	}
	if v.Raw != nil {
		c.Raw = append(json.RawMessage(nil), v.Raw...)
	}
	return c
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Strings become KindText,
// arrays made only of strings become KindList, anything else is kept raw.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty JSON value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '[':
		var l []string
		if err := json.Unmarshal(trimmed, &l); err == nil {
			if l == nil {
				l = []string{}
			}
			*v = Value{Kind: KindList, List: l}
			return nil
		}
	}
	*v = Value{Kind: KindRaw, Raw: append(json.RawMessage(nil), trimmed...)}
	return nil
}

// Record is one dataset row.
type Record struct {
	// ID orders the final output; it never influences how a record is translated.
	ID     int64
	Fields map[string]Value
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := &Record{ID: r.ID, Fields: make(map[string]Value, len(r.Fields))}
	for k, v := range r.Fields {
		c.Fields[k] = v.Clone()
	}
	return c
}

// FieldSet lists every field of a dataset in a fixed order and the subset
// that gets translated.
type FieldSet struct {
	All     []string
	Targets []string
}

// NewFieldSet validates that every target field is one of all.
func NewFieldSet(all, targets []string) (FieldSet, error) {
	known := make(map[string]bool, len(all))
	for _, f := range all {
		known[f] = true
	}
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if !known[t] {
			return FieldSet{}, fmt.Errorf("target field %q is not a dataset field", t)
		}
		if seen[t] {
			return FieldSet{}, fmt.Errorf("target field %q listed twice", t)
		}
		seen[t] = true
	}
	return FieldSet{All: append([]string(nil), all...), Targets: append([]string(nil), targets...)}, nil
}

// IsTarget reports whether name is translated.
func (fs FieldSet) IsTarget(name string) bool {
	for _, t := range fs.Targets {
		if t == name {
			return true
		}
	}
	return false
}

// TargetsInOrder returns the target fields in dataset field order.
func (fs FieldSet) TargetsInOrder() []string {
	out := make([]string, 0, len(fs.Targets))
	for _, f := range fs.All {
		if fs.IsTarget(f) {
			out = append(out, f)
		}
	}
	return out
}
