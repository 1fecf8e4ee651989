// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// Value is a JSON value. It is implemented only by [Null], [Bool], [Number],
// [String], [Array] and [Object]. A nil Value means the value is absent.
type Value interface {
	json.Marshaler

	jsonValue()
}

// Null is the JSON null literal.
type Null struct{}

// Bool is a JSON boolean.
type Bool bool

// Number is a JSON number kept as its literal text so no precision is lost.
type Number string

// String is a JSON string.
type String string

// Array is an ordered JSON array.
type Array []Value

// Member is a single name/value pair of an [Object].
type Member struct {
	Key   string
	Value Value
}

// Object is a JSON object whose members keep their document order.
type Object []Member

func (Null) jsonValue()   {}
func (Bool) jsonValue()   {}
func (Number) jsonValue() {}
func (String) jsonValue() {}
func (Array) jsonValue()  {}
func (Object) jsonValue() {}

// Get returns the value of the member named key.
func (o Object) Get(key string) (Value, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Index returns the position of the member named key or -1.
func (o Object) Index(key string) int {
	for i, m := range o {
		if m.Key == key {
			return i
		}
	}
	return -1
}

// Keys returns the member names in document order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, m := range o {
		keys[i] = m.Key
	}
	return keys
}

// Set replaces the value of an existing member in place or appends a new one.
// The receiver is never modified; a new Object is returned.
func (o Object) Set(key string, v Value) Object {
	out := make(Object, len(o), len(o)+1)
	copy(out, o)
	if i := out.Index(key); i >= 0 {
		out[i].Value = v
		return out
	}
	return append(out, Member{Key: key, Value: v})
}

// Delete returns a copy of the Object without the member named key.
func (o Object) Delete(key string) Object {
	out := make(Object, 0, len(o))
	for _, m := range o {
		if m.Key == key {
			continue
		}
		out = append(out, m)
	}
	return out
}

// MarshalJSON implements the [json.Marshaler] interface.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements the [json.Marshaler] interface.
func (b Bool) MarshalJSON() ([]byte, error) {
	return strconv.AppendBool(nil, bool(b)), nil
}

// MarshalJSON implements the [json.Marshaler] interface.
func (n Number) MarshalJSON() ([]byte, error) {
	if !json.Valid([]byte(n)) {
		return nil, fmt.Errorf("invalid json number literal: %q", string(n))
	}
	return []byte(n), nil
}

// MarshalJSON implements the [json.Marshaler] interface.
func (s String) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// MarshalJSON implements the [json.Marshaler] interface.
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON implements the [json.Marshaler] interface.
// Members are written in document order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := marshalValue(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v.MarshalJSON()
}

// ErrTrailingData is returned by [ParseJSON] when more than one JSON value is present.
var ErrTrailingData = errors.New("unexpected data after top-level json value")

// ParseJSON decodes a single JSON document into a [Value], keeping object
// member order and the exact text of numbers. When a member name repeats,
// the last value wins and the first position is kept.
func ParseJSON(b []byte) (Value, error) {
	return Decode(bytes.NewReader(b))
}

// Decode reads a single JSON document from r.
func Decode(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	_, err = dec.Token()
	if err == io.EOF {
		return v, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, ErrTrailingData
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			return decodeArray(dec)
		case '{':
			return decodeObject(dec)
		}
	}
	return nil, fmt.Errorf("unexpected json token: %v", tok)
}

func decodeArray(dec *json.Decoder) (Value, error) {
	arr := Array{}
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	// closing ]
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key but got: %v", tok)
		}

		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}

		if i := obj.Index(key); i >= 0 {
			obj[i].Value = v
			continue
		}
		obj = append(obj, Member{Key: key, Value: v})
	}
	// closing }
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// ToAny converts a [Value] into the generic representation produced by
// encoding/json with UseNumber: nil, bool, json.Number, string, []any and
// map[string]any.
func ToAny(v Value) any {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Number:
		return json.Number(v)
	case String:
		return string(v)
	case Array:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = ToAny(el)
		}
		return out
	case Object:
		out := make(map[string]any, len(v))
		for _, m := range v {
			out[m.Key] = ToAny(m.Value)
		}
		return out
	default:
		return nil
	}
}

// FromAny converts a generic Go value into a [Value]. Map keys are sorted
// since Go maps carry no order.
func FromAny(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return x, nil
	case bool:
		return Bool(x), nil
	case json.Number:
		return Number(x), nil
	case string:
		return String(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("unsupported json number: %v", x)
		}
		return Number(strconv.FormatFloat(x, 'g', -1, 64)), nil
	case float32:
		return FromAny(float64(x))
	case int:
		return Number(strconv.Itoa(x)), nil
	case int64:
		return Number(strconv.FormatInt(x, 10)), nil
	case int32:
		return Number(strconv.FormatInt(int64(x), 10)), nil
	case uint64:
		return Number(strconv.FormatUint(x, 10)), nil
	case []any:
		arr := make(Array, len(x))
		for i, el := range x {
			v, err := FromAny(el)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		obj := make(Object, 0, len(x))
		for _, k := range keys {
			v, err := FromAny(x[k])
			if err != nil {
				return nil, err
			}
			obj = append(obj, Member{Key: k, Value: v})
		}
		return obj, nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		return ParseJSON(b)
	}
}

// IsNull reports whether v is absent or the JSON null literal.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}
