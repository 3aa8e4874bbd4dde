package claims

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Kind int

const (
	KindMissing Kind = iota
	KindNumber
	KindText
	KindBoolean
	KindDate
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	default:
		return "missing"
	}
}

// Value is a credential attribute or requirement operand with an explicit kind.
type Value struct {
	kind    Kind
	number  float64
	text    string
	boolean bool
	date    time.Time
	list    []Value
}

func Missing() Value { return Value{} }
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }
func Text(s string) Value { return Value{kind: KindText, text: strings.TrimSpace(s)} }
func Boolean(b bool) Value { return Value{kind: KindBoolean, boolean: b} }
func Date(t time.Time) Value { return Value{kind: KindDate, date: t.UTC()} }
func List(values ...Value) Value { return Value{kind: KindList, list: values} }

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ValueOf converts a decoded JSON value into a Value.
func ValueOf(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Missing()
	case Value:
		return v
	case bool:
		return Boolean(v)
	case float64:
		return Number(v)
	case float32:
		return Number(float64(v))
	case int:
		return Number(float64(v))
	case int32:
		return Number(float64(v))
	case int64:
		return Number(float64(v))
	case uint64:
		return Number(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return Number(f)
		}
		return Text(v.String())
	case time.Time:
		return Date(v)
	case string:
		s := strings.TrimSpace(v)
		if t, ok := parseDate(s); ok {
			return Date(t)
		}
		return Text(s)
	case []any:
		values := make([]Value, 0, len(v))
		for _, item := range v {
			values = append(values, ValueOf(item))
		}
		return List(values...)
	case []string:
		values := make([]Value, 0, len(v))
		for _, item := range v {
			values = append(values, ValueOf(item))
		}
		return List(values...)
	case map[string]any:
		if len(v) == 0 {
			return Missing()
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return Missing()
		}
		return Text(string(encoded))
	default:
		return Text(fmt.Sprint(v))
	}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsEmpty is true for missing values, blank text and empty lists.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindMissing:
		return true
	case KindText:
		return v.text == ""
	case KindList:
		return len(v.list) == 0
	default:
		return false
	}
}

// AsNumber returns the numeric reading of numbers and numeric text.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.number, true
	case KindText:
		f, err := strconv.ParseFloat(v.text, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (v Value) AsDate() (time.Time, bool) {
	switch v.kind {
	case KindDate:
		return v.date, true
	case KindText:
		return parseDate(v.text)
	default:
		return time.Time{}, false
	}
}

func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBoolean:
		return v.boolean, true
	case KindText:
		b, err := strconv.ParseBool(v.text)
		return b, err == nil
	default:
		return false, false
	}
}

func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Canonical renders the value in the form used for equality and hashing.
func (v Value) Canonical() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case KindText:
		return v.text
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindDate:
		return v.date.Format(time.RFC3339)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.Canonical()
		}
		sort.Strings(parts)
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return ""
	}
}

// Compare orders two numeric or date values; ok is false when they are not comparable.
func Compare(a, b Value) (int, bool) {
	if x, ok := a.AsNumber(); ok {
		if y, ok := b.AsNumber(); ok {
			switch {
			case x < y:
				return -1, true
			case x > y:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	if x, ok := a.AsDate(); ok {
		if y, ok := b.AsDate(); ok {
			return x.Compare(y), true
		}
	}
	return 0, false
}

// Equal compares two scalar values after canonicalization.
func Equal(a, b Value) bool {
	if a.IsMissing() || b.IsMissing() {
		return false
	}
	if c, ok := Compare(a, b); ok {
		return c == 0
	}
	if x, ok := a.AsBool(); ok {
		if y, ok := b.AsBool(); ok {
			return x == y
		}
	}
	return a.Canonical() == b.Canonical()
}

// Subject is the decoded credential subject of a credential.
type Subject map[string]any

// Lookup resolves a dotted attribute path.
func (s Subject) Lookup(path string) (any, bool) {
	var current any = map[string]any(s)
	for _, segment := range strings.Split(path, ".") {
		var m map[string]any
		switch node := current.(type) {
		case map[string]any:
			m = node
		case Subject:
			m = node
		default:
			return nil, false
		}
		next, ok := m[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func (s Subject) Value(path string) Value {
	raw, ok := s.Lookup(path)
	if !ok {
		return Missing()
	}
	return ValueOf(raw)
}

// LookupAny returns the first non-empty value found under any of the aliases.
func (s Subject) LookupAny(aliases ...string) (Value, string, bool) {
	for _, alias := range aliases {
		v := s.Value(alias)
		if !v.IsEmpty() {
			return v, alias, true
		}
	}
	return Missing(), "", false
}
