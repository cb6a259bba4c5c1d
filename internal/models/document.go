package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Document is the flat key-value record an entity is stored as.
type Document map[string]interface{}

// docReader pulls typed fields out of a Document, collecting every failure
// instead of stopping at the first one.
type docReader struct {
	doc  Document
	errs *ValidationError
}

func newDocReader(doc Document) *docReader {
	return &docReader{doc: doc, errs: &ValidationError{}}
}

func (r *docReader) lookup(key string, required bool) (interface{}, bool) {
	v, ok := r.doc[key]
	if !ok || v == nil {
		if required {
			r.errs.Add(key, "is required")
		}
		return nil, false
	}
	return v, true
}

func (r *docReader) wrongType(key, want string, got interface{}) {
	r.errs.Add(key, "must be %s, got %T", want, got)
}

func (r *docReader) str(key string, required bool) string {
	v, ok := r.lookup(key, required)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		r.wrongType(key, "a string", v)
		return ""
	}
	return s
}

// String reads a required string field.
func (r *docReader) String(key string) string { return r.str(key, true) }

// OptionalString reads a string field that may be absent.
func (r *docReader) OptionalString(key string) string { return r.str(key, false) }

func (r *docReader) Bool(key string) bool {
	v, ok := r.lookup(key, true)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		r.wrongType(key, "a boolean", v)
		return false
	}
	return b
}

func (r *docReader) integer(key string, required bool) int {
	v, ok := r.lookup(key, required)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		if n == math.Trunc(n) && !math.IsInf(n, 0) {
			return int(n)
		}
	case float32:
		if f := float64(n); f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int(f)
		}
	}
	r.wrongType(key, "an integer", v)
	return 0
}

func (r *docReader) Int(key string) int { return r.integer(key, true) }

func (r *docReader) OptionalInt(key string) int { return r.integer(key, false) }

func (r *docReader) Float(key string) float64 {
	v, ok := r.lookup(key, true)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	r.wrongType(key, "a number", v)
	return 0
}

// Time reads a timestamp at millisecond precision, the resolution of BSON
// datetimes.
func (r *docReader) Time(key string) time.Time {
	v, ok := r.lookup(key, true)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Truncate(time.Millisecond)
	case primitive.DateTime:
		return t.Time().UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			r.errs.Add(key, "must be an RFC 3339 timestamp")
			return time.Time{}
		}
		return parsed.UTC().Truncate(time.Millisecond)
	}
	r.wrongType(key, "a timestamp", v)
	return time.Time{}
}

// OptionalStrings reads a list of strings, defaulting to an empty slice.
func (r *docReader) OptionalStrings(key string) []string {
	v, ok := r.lookup(key, false)
	if !ok {
		return []string{}
	}
	var items []interface{}
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...)
	case []interface{}:
		items = list
	case primitive.A:
		items = list
	default:
		r.wrongType(key, "a list of strings", v)
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			r.wrongType(key, "a list of strings", item)
			return []string{}
		}
		out = append(out, s)
	}
	return out
}

// enum reads a required string field and parses it with parse.
func enum[T ~string](r *docReader, key string, parse func(string) (T, error)) T {
	var zero T
	s := r.String(key)
	if s == "" {
		return zero
	}
	v, err := parse(s)
	if err != nil {
		r.errs.Add(key, "unknown value %q", s)
		return zero
	}
	return v
}

func (r *docReader) Err() error {
	return r.errs.orNil()
}
