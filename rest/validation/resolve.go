// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"regexp"
)

var componentSchemaRef = regexp.MustCompile(`^#/components/schemas/([^/]+)$`)

// Resolve returns the schema a request body must be validated against.
//
// Only the first declared media type is consulted. A schema given as a
// reference is looked up in components; references must have the form
// #/components/schemas/<name>. A nil schema with a nil error means there
// is nothing to validate.
func Resolve(rb *RequestBody, components Components) (Value, error) {
	if rb == nil || len(rb.Content) == 0 {
		return nil, nil
	}

	schema := rb.Content[0].Schema
	if schema == nil {
		return nil, nil
	}

	ref, ok := schemaRef(schema)
	if !ok {
		return schema, nil
	}
	return lookupRef(ref, components)
}

func schemaRef(schema Value) (string, bool) {
	obj, ok := schema.(Object)
	if !ok {
		return "", false
	}
	v, ok := obj.Get("$ref")
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	if !ok {
		return "", false
	}
	return string(s), true
}

func refName(ref string) (string, error) {
	match := componentSchemaRef.FindStringSubmatch(ref)
	if match == nil {
		return "", &MalformedReferenceError{Ref: ref}
	}
	return match[1], nil
}

func lookupRef(ref string, components Components) (Value, error) {
	name, err := refName(ref)
	if err != nil {
		return nil, err
	}

	schema, ok := components[name]
	if !ok {
		return nil, &UnresolvedReferenceError{Ref: ref, Name: name}
	}
	return schema, nil
}
