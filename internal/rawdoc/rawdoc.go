// Package rawdoc wraps decoded JSON documents in a safe accessor API.
//
// Every accessor returns a usable zero result instead of failing when a key
// is missing or the value has an unexpected shape, so flattening code can walk
// upstream documents as straight-line code.
package rawdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind is the shape of a Value.
type Kind int

const (
	Missing Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "missing"
}

// Value is one node of a decoded document. The zero Value is Missing.
type Value struct {
	v       any
	present bool
}

// Parse decodes data, keeping numbers in their textual form.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("decoding document: %w", err)
	}
	return Value{v: v, present: true}, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind {
	if !v.present {
		return Missing
	}
	switch v.v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case json.Number:
		return Number
	case string:
		return String
	case []any:
		return Array
	case map[string]any:
		return Object
	}
	return Missing
}

// Exists is false for missing keys and out-of-range indexes.
func (v Value) Exists() bool { return v.present }

// IsNull is true for explicit JSON nulls.
func (v Value) IsNull() bool { return v.Kind() == Null }

// Get returns the member named key, or a Missing value.
func (v Value) Get(key string) Value {
	m, ok := v.v.(map[string]any)
	if !ok {
		return Value{}
	}
	child, ok := m[key]
	if !ok {
		return Value{}
	}
	return Value{v: child, present: true}
}

// Path follows a sequence of object keys.
func (v Value) Path(keys ...string) Value {
	cur := v
	for _, k := range keys {
		cur = cur.Get(k)
	}
	return cur
}

// Index returns the i-th array element, or a Missing value.
func (v Value) Index(i int) Value {
	a, ok := v.v.([]any)
	if !ok || i < 0 || i >= len(a) {
		return Value{}
	}
	return Value{v: a[i], present: true}
}

// Len is the number of array elements or object members.
func (v Value) Len() int {
	switch t := v.v.(type) {
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	}
	return 0
}

// Items returns the array elements, or nil.
func (v Value) Items() []Value {
	a, ok := v.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Value, len(a))
	for i, e := range a {
		out[i] = Value{v: e, present: true}
	}
	return out
}

// Keys returns object member names in sorted order.
func (v Value) Keys() []string {
	m, ok := v.v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Each visits object members in sorted key order.
func (v Value) Each(fn func(key string, child Value)) {
	for _, k := range v.Keys() {
		fn(k, v.Get(k))
	}
}

// Str returns the string value, or "" for anything that is not a string.
func (v Value) Str() string {
	s, _ := v.v.(string)
	return s
}

// StrOK returns the string value and whether it was a non-empty string.
func (v Value) StrOK() (string, bool) {
	s, ok := v.v.(string)
	return s, ok && s != ""
}

// Text renders scalars as text: strings verbatim, numbers in their source
// form, booleans as true/false. Other kinds yield "".
func (v Value) Text() string {
	switch t := v.v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

// Truthy follows upstream conventions: true, non-zero numbers and the strings
// "Y", "true" and "1" are true.
func (v Value) Truthy() bool {
	switch t := v.v.(type) {
	case bool:
		return t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case string:
		switch strings.TrimSpace(t) {
		case "Y", "y", "true", "True", "1":
			return true
		}
	}
	return false
}

// Int returns an integer for integral numbers or numeric strings.
func (v Value) Int() (int64, bool) {
	switch t := v.v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		if f, err := t.Float64(); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// NumberText returns the source text of a number, or of a string holding one.
func (v Value) NumberText() (string, bool) {
	switch t := v.v.(type) {
	case json.Number:
		return t.String(), true
	case string:
		s := strings.TrimSpace(t)
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s, true
		}
	}
	return "", false
}

// Strings returns the string elements of an array, skipping other kinds.
func (v Value) Strings() []string {
	items := v.Items()
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.StrOK(); ok {
			out = append(out, s)
		}
	}
	return out
}
