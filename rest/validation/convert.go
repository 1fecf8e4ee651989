// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"errors"
	"fmt"
)

// ErrSchemaNotObject is returned by [ToJSONSchema] for anything but a JSON
// object or boolean.
var ErrSchemaNotObject = errors.New("schema must be a json object")

// openapi only keywords which JSON Schema does not know about
var openapiKeywords = map[string]bool{
	"nullable":      true,
	"discriminator": true,
	"readOnly":      true,
	"writeOnly":     true,
	"xml":           true,
	"externalDocs":  true,
	"example":       true,
	"deprecated":    true,
}

// keywords holding a single subschema
var schemaKeywords = []string{"items", "additionalProperties", "not", "contains", "propertyNames"}

// keywords holding a list of subschemas
var schemaListKeywords = []string{"allOf", "anyOf", "oneOf", "prefixItems"}

// keywords holding a map of subschemas
var schemaMapKeywords = []string{"properties", "patternProperties", "$defs", "definitions"}

type formatBounds struct {
	min, max Number
}

var numericFormats = map[string]formatBounds{
	"int32":  {min: "-2147483648", max: "2147483647"},
	"int64":  {min: "-9223372036854775808", max: "9223372036854775807"},
	"float":  {min: "-3.402823669209385e+38", max: "3.402823669209385e+38"},
	"double": {min: "-1.7976931348623157e+308", max: "1.7976931348623157e+308"},
}

const base64Pattern = `^[\w\d+\/=]*$`

// ToJSONSchema converts an OpenAPI Schema Object into a Draft 2020-12
// JSON Schema document. The input is never modified. The boolean schemas
// true and false are returned as is.
func ToJSONSchema(schema Value) (Value, error) {
	if b, ok := schema.(Bool); ok {
		return b, nil
	}
	obj, ok := schema.(Object)
	if !ok {
		return nil, ErrSchemaNotObject
	}

	out, err := convertSchema(obj)
	if err != nil {
		return nil, err
	}
	return out.Delete("$schema"), nil
}

func convertSchema(schema Object) (Object, error) {
	out := make(Object, 0, len(schema))
	for _, m := range schema {
		if openapiKeywords[m.Key] {
			continue
		}

		v, err := convertKeyword(m.Key, m.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Key, err)
		}
		if v == nil {
			continue
		}
		out = append(out, Member{Key: m.Key, Value: v})
	}

	out = convertNullable(schema, out)
	out = convertExclusiveBound(out, "exclusiveMinimum", "minimum")
	out = convertExclusiveBound(out, "exclusiveMaximum", "maximum")
	out = convertFormat(out)
	return out, nil
}

func convertKeyword(key string, v Value) (Value, error) {
	switch {
	case key == "required":
		arr, ok := v.(Array)
		if ok && len(arr) == 0 {
			return nil, nil
		}
		return v, nil
	case contains(schemaKeywords, key):
		return convertSubschema(v)
	case contains(schemaListKeywords, key):
		arr, ok := v.(Array)
		if !ok {
			return v, nil
		}
		out := make(Array, len(arr))
		for i, el := range arr {
			sub, err := convertSubschema(el)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	case contains(schemaMapKeywords, key):
		obj, ok := v.(Object)
		if !ok {
			return v, nil
		}
		out := make(Object, len(obj))
		for i, m := range obj {
			sub, err := convertSubschema(m.Value)
			if err != nil {
				return nil, err
			}
			out[i] = Member{Key: m.Key, Value: sub}
		}
		return out, nil
	default:
		return v, nil
	}
}

// boolean schemas and anything which is not an object pass through untouched
func convertSubschema(v Value) (Value, error) {
	obj, ok := v.(Object)
	if !ok {
		return v, nil
	}
	return convertSchema(obj)
}

func convertNullable(original, out Object) Object {
	nullable, ok := original.Get("nullable")
	if !ok || nullable != Bool(true) {
		return out
	}

	if typ, ok := out.Get("type"); ok {
		switch t := typ.(type) {
		case String:
			if t != "null" {
				out = out.Set("type", Array{t, String("null")})
			}
		case Array:
			if !containsValue(t, String("null")) {
				out = out.Set("type", append(append(Array{}, t...), String("null")))
			}
		}
	}

	if enum, ok := out.Get("enum"); ok {
		if arr, ok := enum.(Array); ok && !containsValue(arr, Null{}) {
			out = out.Set("enum", append(append(Array{}, arr...), Null{}))
		}
	}
	return out
}

// OpenAPI 3.0 uses boolean exclusive bounds alongside minimum/maximum.
func convertExclusiveBound(out Object, exclusiveKey, boundKey string) Object {
	ex, ok := out.Get(exclusiveKey)
	if !ok {
		return out
	}
	b, ok := ex.(Bool)
	if !ok {
		return out
	}
	if !b {
		return out.Delete(exclusiveKey)
	}

	bound, ok := out.Get(boundKey)
	if !ok {
		return out.Delete(exclusiveKey)
	}
	return out.Set(exclusiveKey, bound).Delete(boundKey)
}

func convertFormat(out Object) Object {
	f, ok := out.Get("format")
	if !ok {
		return out
	}
	format, ok := f.(String)
	if !ok {
		return out
	}

	if format == "byte" {
		if _, ok := out.Get("pattern"); !ok {
			out = out.Set("pattern", String(base64Pattern))
		}
		return out
	}

	bounds, ok := numericFormats[string(format)]
	if !ok {
		return out
	}
	_, hasMin := out.Get("minimum")
	_, hasExMin := out.Get("exclusiveMinimum")
	if !hasMin && !hasExMin {
		out = out.Set("minimum", bounds.min)
	}
	_, hasMax := out.Get("maximum")
	_, hasExMax := out.Get("exclusiveMaximum")
	if !hasMax && !hasExMax {
		out = out.Set("maximum", bounds.max)
	}
	return out
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}

func containsValue(arr Array, v Value) bool {
	for _, el := range arr {
		if el == v {
			return true
		}
	}
	return false
}
