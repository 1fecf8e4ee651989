// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/swaggest/openapi-go/openapi3"
)

// MediaType is one entry of a request body's content map.
type MediaType struct {
	// Name is the media type, e.g. application/json.
	Name string

	// Schema is either an inline schema object or an object
	// holding a single $ref member. It is nil when no schema is declared.
	Schema Value
}

// RequestBody describes the body an operation accepts.
// Content keeps the order the media types were declared in.
type RequestBody struct {
	Required bool
	Content  []MediaType
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
// The order of the content map is preserved.
func (rb *RequestBody) UnmarshalJSON(b []byte) error {
	v, err := ParseJSON(b)
	if err != nil {
		return err
	}
	parsed, err := RequestBodyFromValue(v)
	if err != nil {
		return err
	}
	*rb = *parsed
	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
func (rb RequestBody) MarshalJSON() ([]byte, error) {
	content := Object{}
	for _, mt := range rb.Content {
		media := Object{}
		if mt.Schema != nil {
			media = media.Set("schema", mt.Schema)
		}
		content = content.Set(mt.Name, media)
	}

	obj := Object{{Key: "content", Value: content}}
	if rb.Required {
		obj = obj.Set("required", Bool(true))
	}
	return obj.MarshalJSON()
}

// ErrRequestBodyNotObject is returned when a request body description is not a JSON object.
var ErrRequestBodyNotObject = errors.New("request body must be a json object")

// RequestBodyFromValue reads an OpenAPI Request Body Object.
func RequestBodyFromValue(v Value) (*RequestBody, error) {
	obj, ok := v.(Object)
	if !ok {
		return nil, ErrRequestBodyNotObject
	}

	rb := &RequestBody{}
	if req, ok := obj.Get("required"); ok {
		b, ok := req.(Bool)
		if !ok {
			return nil, fmt.Errorf("request body required must be a boolean")
		}
		rb.Required = bool(b)
	}

	content, ok := obj.Get("content")
	if !ok {
		return rb, nil
	}
	contentObj, ok := content.(Object)
	if !ok {
		return nil, fmt.Errorf("request body content must be an object")
	}
	for _, m := range contentObj {
		mt := MediaType{Name: m.Key}
		if media, ok := m.Value.(Object); ok {
			if schema, ok := media.Get("schema"); ok && !IsNull(schema) {
				mt.Schema = schema
			}
		}
		rb.Content = append(rb.Content, mt)
	}
	return rb, nil
}

// RequestBodyFromOpenAPI converts a swaggest request body into a [RequestBody].
// The swaggest content map has no order so media types come out sorted by name.
// A nil request body or a request body reference yields nil.
func RequestBodyFromOpenAPI(rb openapi3.RequestBodyOrRef) (*RequestBody, error) {
	if rb.RequestBody == nil {
		return nil, nil
	}

	b, err := json.Marshal(rb.RequestBody)
	if err != nil {
		return nil, err
	}
	v, err := ParseJSON(b)
	if err != nil {
		return nil, err
	}
	return RequestBodyFromValue(v)
}

// Components is the registry of named component schemas found under
// #/components/schemas of an API document. It is only ever read.
type Components map[string]Value

// ComponentsFromDocument extracts #/components/schemas from a parsed API document.
func ComponentsFromDocument(doc Value) Components {
	components := Components{}

	obj, ok := doc.(Object)
	if !ok {
		return components
	}
	c, ok := obj.Get("components")
	if !ok {
		return components
	}
	cobj, ok := c.(Object)
	if !ok {
		return components
	}
	schemas, ok := cobj.Get("schemas")
	if !ok {
		return components
	}
	sobj, ok := schemas.(Object)
	if !ok {
		return components
	}
	for _, m := range sobj {
		components[m.Key] = m.Value
	}
	return components
}

// ComponentsFromSpec extracts the component schemas of a swaggest OpenAPI document.
func ComponentsFromSpec(spec *openapi3.Spec) (Components, error) {
	if spec == nil {
		return Components{}, nil
	}

	b, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	doc, err := ParseJSON(b)
	if err != nil {
		return nil, err
	}
	return ComponentsFromDocument(doc), nil
}
