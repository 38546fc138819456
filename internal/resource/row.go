// ABOUTME: Ordered row type for records returned by the warehouse API.
// ABOUTME: Preserves JSON key order so tables render columns as the server sends them.

package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	cerrors "github.com/cockroachdb/errors"
)

// Row is an ordered mapping from column name to scalar value. The zero
// value is an empty row ready to use.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from alternating key/value pairs.
func NewRow(pairs ...any) Row {
	var r Row
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		r.Set(key, pairs[i+1])
	}
	return r
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of columns.
func (r Row) Len() int {
	return len(r.keys)
}

// Get returns a column value.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether the column is present.
func (r Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Set stores a value. New keys are appended; existing keys keep their position.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Clone returns an independent copy.
func (r Row) Clone() Row {
	c := Row{keys: r.Keys(), values: make(map[string]any, len(r.values))}
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Map returns the values as a plain map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// UnmarshalJSON decodes a JSON object keeping key order. Numbers are kept as
// json.Number so identifiers round-trip without float formatting.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return cerrors.Newf("row: expected JSON object, got %v", tok)
	}

	r.keys = nil
	r.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return cerrors.Newf("row: expected object key, got %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return cerrors.Wrapf(err, "row: decoding %q", key)
		}
		r.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the row as a JSON object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, cerrors.Wrapf(err, "row: encoding %q", key)
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatValue renders a scalar for display and URL use. nil renders empty.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
