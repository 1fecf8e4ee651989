// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// PathElement is either a static [PathSegment] or a path parameter.
type PathElement interface {
	pathElement() string
}

// PathSegment is a static part of a path.
type PathSegment string

func (s PathSegment) pathElement() string {
	return string(s)
}

type pathParam struct {
	name string
	opts []ParameterOption
}

// PathParam creates a path parameter. The parameter is always documented
// as required and its value can be constrained with [Regex].
//
// Example:
//
//	rest.Path{rest.StaticPath("/products"), rest.PathParam("id", rest.Regex(regexp.MustCompile(`^\d+$`)))}
func PathParam(name string, opts ...ParameterOption) PathElement {
	return pathParam{
		name: name,
		opts: opts,
	}
}

func (p pathParam) pathElement() string {
	return "{" + p.name + "}"
}

// StaticPath is the [PathElement] form of [PathSegment].
func StaticPath(s string) PathElement {
	return PathSegment(s)
}

// Path is an OpenAPI path template made of segments and parameters.
type Path []PathElement

// BasePath starts a [Path] with s.
//
// Example:
//
//	rest.BasePath("/stores").Param("storeId").Segment("products")
//	// Results in: /stores/{storeId}/products
func BasePath(s string) Path {
	return []PathElement{PathSegment(s)}
}

// Segment appends a static segment.
func (p Path) Segment(s string) Path {
	return append(p, PathSegment(s))
}

// Param appends a path parameter with no constraints.
func (p Path) Param(name string) Path {
	return append(p, PathParam(name))
}

// Params returns the parameter names in the order they appear.
func (p Path) Params() []string {
	var names []string
	for _, param := range p.params() {
		names = append(names, param.name)
	}
	return names
}

func (p Path) params() []pathParam {
	var params []pathParam
	for _, el := range p {
		if param, ok := el.(pathParam); ok {
			params = append(params, param)
		}
	}
	return params
}

// String returns the template as it appears under paths in an OpenAPI
// document. The result always starts with a slash.
func (p Path) String() string {
	ss := make([]string, 0, len(p)+1)
	ss = append(ss, "/")
	for _, el := range p {
		ss = append(ss, el.pathElement())
	}
	return path.Join(ss...)
}

// ErrInvalidPathTemplate is returned by [ParsePath] for templates a
// [Path] can not represent.
var ErrInvalidPathTemplate = errors.New("invalid path template")

// ParsePath reads an OpenAPI path template such as /products/{id}.
// A parameter must fill its whole segment.
func ParsePath(template string) (Path, error) {
	if !strings.HasPrefix(template, "/") {
		return nil, fmt.Errorf("%w: %q must start with /", ErrInvalidPathTemplate, template)
	}

	var p Path
	var static []string
	for _, seg := range strings.Split(strings.Trim(template, "/"), "/") {
		name, isParam := strings.CutPrefix(seg, "{")
		if isParam {
			name, isParam = strings.CutSuffix(name, "}")
		}
		if !isParam {
			if strings.ContainsAny(seg, "{}") {
				return nil, fmt.Errorf("%w: segment %q of %q", ErrInvalidPathTemplate, seg, template)
			}
			static = append(static, seg)
			continue
		}
		if name == "" || strings.ContainsAny(name, "{}") {
			return nil, fmt.Errorf("%w: parameter %q of %q", ErrInvalidPathTemplate, seg, template)
		}

		if len(static) > 0 {
			p = append(p, PathSegment("/"+strings.Join(static, "/")))
			static = static[:0]
		}
		p = append(p, PathParam(name))
	}
	if len(static) > 0 || len(p) == 0 {
		p = append(p, PathSegment("/"+strings.Join(static, "/")))
	}
	return p, nil
}

// MustParsePath is like [ParsePath] but panics if template is invalid.
func MustParsePath(template string) Path {
	p, err := ParsePath(template)
	if err != nil {
		panic(err)
	}
	return p
}
