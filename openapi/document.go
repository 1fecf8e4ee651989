// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package openapi loads OpenAPI 3 documents written in JSON or YAML so their
// request bodies can be validated without running a server.
//
// Member order is kept as written, which keeps validation messages in the
// order the document declares properties.
package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/z5labs/rampart/rest/validation"

	"github.com/z5labs/sdk-go/try"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// ErrOperationNotFound is returned by [Document.RequestBody] when the
// document does not declare the requested operation.
var ErrOperationNotFound = errors.New("operation not found")

// ErrNotADocument is returned when the parsed root is not an object.
var ErrNotADocument = errors.New("openapi document must be an object")

// Operation identifies an operation declared by a [Document].
type Operation struct {
	Method string
	Path   string
}

// Document is a parsed OpenAPI document.
type Document struct {
	root       validation.Object
	components validation.Components
}

// Parse reads a JSON or YAML document. JSON is detected by a leading '{'.
func Parse(b []byte) (*Document, error) {
	var root validation.Value
	var err error

	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		root, err = validation.ParseJSON(trimmed)
	} else {
		root, err = parseYAML(b)
	}
	if err != nil {
		return nil, err
	}

	obj, ok := root.(validation.Object)
	if !ok {
		return nil, ErrNotADocument
	}
	return &Document{
		root:       obj,
		components: validation.ComponentsFromDocument(obj),
	}, nil
}

func parseYAML(b []byte) (validation.Value, error) {
	var n yaml.Node
	err := yaml.Unmarshal(b, &n)
	if err != nil {
		return nil, err
	}
	return fromYAML(&n)
}

// Load reads a document from r.
func Load(r io.Reader) (*Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// LoadFile reads the document stored at name.
func LoadFile(name string) (doc *Document, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer try.Close(&err, f)

	doc, err = Load(f)
	if err != nil {
		return nil, fmt.Errorf("openapi: loading %s: %w", name, err)
	}
	return doc, nil
}

// LoadFiles reads every named document concurrently. The documents are
// returned in the order of names and the first failure cancels the rest.
func LoadFiles(ctx context.Context, names ...string) ([]*Document, error) {
	docs := make([]*Document, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			doc, err := LoadFile(name)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Root returns the whole document.
func (d *Document) Root() validation.Value {
	return d.root
}

// Components returns the schemas under #/components/schemas.
func (d *Document) Components() validation.Components {
	return d.components
}

var methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Operations lists the declared operations in document order.
func (d *Document) Operations() []Operation {
	paths, _ := member(d.root, "paths").(validation.Object)

	var ops []Operation
	for _, p := range paths {
		item, ok := p.Value.(validation.Object)
		if !ok {
			continue
		}
		for _, m := range item {
			if !isMethod(m.Key) {
				continue
			}
			ops = append(ops, Operation{Method: strings.ToUpper(m.Key), Path: p.Key})
		}
	}
	return ops
}

// RequestBody returns the request body of the operation declared for
// method at path. It returns nil if the operation declares no body.
// A request body given as #/components/requestBodies/<name> is followed.
func (d *Document) RequestBody(method, path string) (*validation.RequestBody, error) {
	item, ok := member(member(d.root, "paths"), path).(validation.Object)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrOperationNotFound, strings.ToUpper(method), path)
	}
	op, ok := member(item, strings.ToLower(method)).(validation.Object)
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrOperationNotFound, strings.ToUpper(method), path)
	}

	rb := member(op, "requestBody")
	if rb == nil {
		return nil, nil
	}
	rb, err := d.followRequestBodyRef(rb)
	if err != nil {
		return nil, err
	}
	return validation.RequestBodyFromValue(rb)
}

const requestBodiesPrefix = "#/components/requestBodies/"

func (d *Document) followRequestBodyRef(rb validation.Value) (validation.Value, error) {
	for range 8 {
		ref, ok := member(rb, "$ref").(validation.String)
		if !ok {
			return rb, nil
		}

		name, found := strings.CutPrefix(string(ref), requestBodiesPrefix)
		if !found || name == "" {
			return nil, &validation.MalformedReferenceError{Ref: string(ref)}
		}

		next := member(member(member(d.root, "components"), "requestBodies"), name)
		if next == nil {
			return nil, &validation.UnresolvedReferenceError{Ref: string(ref), Name: name}
		}
		rb = next
	}
	return nil, fmt.Errorf("request body references nest too deeply")
}

func member(v validation.Value, key string) validation.Value {
	obj, ok := v.(validation.Object)
	if !ok {
		return nil
	}
	m, _ := obj.Get(key)
	return m
}

func isMethod(s string) bool {
	for _, m := range methods {
		if s == m {
			return true
		}
	}
	return false
}
