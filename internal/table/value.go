// Package table implements the in-memory typed table that every pipeline
// stage consumes and produces. Tables are built once and treated as
// read-only afterwards; each stage derives a new Table rather than
// mutating its input.
package table

import (
	"strconv"
	"strings"
	"time"
)

// Kind enumerates the scalar types a column may hold.
type Kind int

const (
	// KindString is a text column.
	KindString Kind = iota
	// KindInt is a 64-bit integer column.
	KindInt
	// KindFloat is a 64-bit floating point column.
	KindFloat
	// KindDate is a calendar date column (time component ignored).
	KindDate
)

// String returns the kind name for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// dateLayouts are the input formats accepted when coercing text to a date,
// tried in order. Covers ISO dates and the US-style dates used by the
// municipal open-data endpoints.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// Value is a single typed cell: a string, int, float, or date, or an
// explicit missing marker. The zero Value is a missing string.
type Value struct {
	kind    Kind
	missing bool
	str     string
	i       int64
	f       float64
	t       time.Time
}

// String creates a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int creates an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float creates a float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Date creates a date Value. The time component is truncated.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Missing creates an explicit missing marker of the given kind.
func Missing(k Kind) Value { return Value{kind: k, missing: true} }

// Kind returns the value's kind. Missing values still carry a kind.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is an explicit missing marker.
func (v Value) IsMissing() bool { return v.missing }

// Str returns the string payload. ok is false for missing or non-string values.
func (v Value) Str() (string, bool) {
	if v.missing || v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Int64 returns the integer payload. ok is false for missing or non-int values.
func (v Value) Int64() (int64, bool) {
	if v.missing || v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float64 returns the value as a float. Integer values convert; ok is
// false for missing and non-numeric values.
func (v Value) Float64() (float64, bool) {
	if v.missing {
		return 0, false
	}
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// Time returns the date payload. ok is false for missing or non-date values.
func (v Value) Time() (time.Time, bool) {
	if v.missing || v.kind != KindDate {
		return time.Time{}, false
	}
	return v.t, true
}

// Display renders the value for human-readable output. Missing renders as
// the empty string.
func (v Value) Display() string {
	if v.missing {
		return ""
	}
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return v.t.Format("2006-01-02")
	default:
		return ""
	}
}

// Key returns a canonical type-tagged encoding of the value, suitable for
// use as a map key during grouping and joining. Distinct values of
// different kinds never collide.
func (v Value) Key() string {
	if v.missing {
		return "\x00"
	}
	switch v.kind {
	case KindString:
		return "s:" + v.str
	case KindInt:
		return "i:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		return "f:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindDate:
		return "d:" + v.t.Format("2006-01-02")
	default:
		return "\x00"
	}
}

// CompositeKey joins the canonical keys of several values into one
// grouping key. The separator cannot occur inside a single-value key
// except within string payloads, where it is escaped.
func CompositeKey(vals []Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strings.ReplaceAll(v.Key(), "\x1f", "\x1f\x1f")
	}
	return strings.Join(parts, "\x1f")
}

// Parse coerces a raw text cell to the target kind. ok is false when the
// text cannot be represented as the target kind; callers treat that as a
// skipped (missing) cell. Empty text always parses as missing.
func Parse(s string, k Kind) (Value, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing(k), true
	}
	switch k {
	case KindString:
		return String(s), true
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Missing(k), false
		}
		return Int(i), true
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Missing(k), false
		}
		return Float(f), true
	case KindDate:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return Date(t), true
			}
		}
		return Missing(k), false
	default:
		return Missing(k), false
	}
}

// Coerce converts a typed value to the target kind. String sources are
// re-parsed; int widens to float. ok is false for unsupported conversions.
func Coerce(v Value, k Kind) (Value, bool) {
	if v.kind == k {
		return v, true
	}
	if v.missing {
		return Missing(k), true
	}
	switch {
	case v.kind == KindString:
		return Parse(v.str, k)
	case v.kind == KindInt && k == KindFloat:
		return Float(float64(v.i)), true
	case k == KindString:
		return String(v.Display()), true
	default:
		return Missing(k), false
	}
}
