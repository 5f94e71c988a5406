package redact

import (
	"reflect"
	"strings"
)

// DefaultMaxRecords caps the number of records a list response may carry.
const DefaultMaxRecords = 10

// Sanitizer strips sensitive fields from outbound data and caps list
// cardinality. It applies to every role: redaction protects field
// categories, not access levels.
type Sanitizer struct {
	fields     []string
	maxRecords int
}

// Stats describes what a Sanitize call removed.
type Stats struct {
	FieldsDropped  int
	RecordsTrimmed int
}

// NewSanitizer builds a sanitizer from lowercase field-name substrings. A
// non-positive maxRecords selects DefaultMaxRecords.
func NewSanitizer(fields []string, maxRecords int) *Sanitizer {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	lowered := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			lowered = append(lowered, f)
		}
	}
	return &Sanitizer{fields: lowered, maxRecords: maxRecords}
}

// MaxRecords returns the list cap.
func (s *Sanitizer) MaxRecords() int { return s.maxRecords }

// Sanitize returns data with sensitive fields removed. Any map keyed by
// strings counts as a record, whatever its declared type, and any slice or
// array counts as a list; pointers to either are followed. A top-level list
// is truncated to MaxRecords before its records are visited. Other values
// pass through unchanged, including nil. The input is never mutated and the
// output keeps the input's types, except that an over-long top-level array
// comes back as a slice.
func (s *Sanitizer) Sanitize(data any) any {
	out, _ := s.SanitizeWithStats(data)
	return out
}

// SanitizeWithStats is Sanitize plus a count of what was removed.
func (s *Sanitizer) SanitizeWithStats(data any) (any, Stats) {
	var st Stats
	if data == nil {
		return nil, st
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if n := rv.Len(); n > s.maxRecords {
			st.RecordsTrimmed = n - s.maxRecords
			if rv.Kind() == reflect.Array {
				trimmed := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), s.maxRecords, s.maxRecords)
				reflect.Copy(trimmed, rv)
				rv = trimmed
			} else {
				rv = rv.Slice(0, s.maxRecords)
			}
		}
	}
	return s.value(rv, &st).Interface(), st
}

// IsSensitive reports whether a field name contains a sensitive substring.
func (s *Sanitizer) IsSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, f := range s.fields {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) value(rv reflect.Value, st *Stats) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(s.value(rv.Elem(), st))
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
			return rv
		}
		return s.record(rv, st)
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		s.list(out, rv, st)
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		s.list(out, rv, st)
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		switch rv.Elem().Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Interface:
			out := reflect.New(rv.Elem().Type())
			out.Elem().Set(s.value(rv.Elem(), st))
			return out
		}
	}
	return rv
}

func (s *Sanitizer) record(rec reflect.Value, st *Stats) reflect.Value {
	out := reflect.MakeMapWithSize(rec.Type(), rec.Len())
	iter := rec.MapRange()
	for iter.Next() {
		if s.IsSensitive(iter.Key().String()) {
			st.FieldsDropped++
			continue
		}
		out.SetMapIndex(iter.Key(), s.value(iter.Value(), st))
	}
	return out
}

// list visits the items of src into dst; nested lists are not truncated.
func (s *Sanitizer) list(dst, src reflect.Value, st *Stats) {
	for i := 0; i < src.Len(); i++ {
		dst.Index(i).Set(s.value(src.Index(i), st))
	}
}
