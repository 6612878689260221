// Package record provides an order-preserving representation of
// schema-less API records and field projection over them.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one logical item (row) extracted from an API response page.
//
// Records are heterogeneous: field sets may differ between records of
// the same page. Field order is preserved from the JSON source so that
// downstream column ordering stays deterministic. A Record can also
// hold a bare scalar when an API returns non-object array elements;
// such records are carried through the pipeline and rejected by the
// sinks at serialization time.
type Record struct {
	keys     []string
	values   map[string]any
	scalar   any
	isScalar bool
}

// NewScalar wraps a non-object value in a Record.
func NewScalar(v any) Record {
	return Record{scalar: v, isScalar: true}
}

// IsScalar reports whether the record holds a bare non-object value.
func (r Record) IsScalar() bool {
	return r.isScalar
}

// ScalarValue returns the wrapped non-object value, if any.
func (r Record) ScalarValue() any {
	return r.scalar
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Keys returns the field names in source order. The returned slice is
// owned by the record and must not be modified.
func (r Record) Keys() []string {
	return r.keys
}

// Get returns the value for a field and whether the field is present.
// An explicit null value is present with a nil value.
func (r Record) Get(key string) (any, bool) {
	if r.values == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Set stores a field value. A new field is appended after all
// existing fields; setting an existing field keeps its position.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// UnmarshalJSON decodes a JSON value into the record. Objects keep
// their key order, including nested objects (decoded as Records).
// Numbers are decoded as json.Number. Any non-object value is stored
// in scalar form.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return err
	}

	if obj, ok := v.(Record); ok {
		*r = obj
		return nil
	}
	*r = NewScalar(v)
	return nil
}

// MarshalJSON encodes the record with fields in their stored order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.isScalar {
		return json.Marshal(r.scalar)
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", key, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeValue reads one complete JSON value from the decoder,
// preserving object key order at every nesting level.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// string, json.Number, bool or nil
		return tok, nil
	}

	switch delim {
	case '{':
		var obj Record
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is not a string: %v", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil { // consume '}'
			return nil, err
		}
		return obj, nil

	case '[':
		arr := make([]any, 0)
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil { // consume ']'
			return nil, err
		}
		return arr, nil

	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}
