// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// Header declares a header parameter. Handlers read it with [HeaderValue].
//
// Example:
//
//	rest.Header("X-Request-ID", rest.Required())
func Header(name string, opts ...ParameterOption) OperationOption {
	return param(name, openapi3.ParameterInHeader, opts...)
}

// HeaderValue returns every value of the header parameter name.
func HeaderValue(ctx context.Context, name string) []string {
	return paramValues(ctx, openapi3.ParameterInHeader, name)
}

// QueryParam declares a query parameter. Handlers read it with [QueryParamValue].
//
// Example:
//
//	rest.QueryParam("page", rest.Regex(regexp.MustCompile(`^\d+$`)))
func QueryParam(name string, opts ...ParameterOption) OperationOption {
	return param(name, openapi3.ParameterInQuery, opts...)
}

// QueryParamValue returns every value of the query parameter name.
func QueryParamValue(ctx context.Context, name string) []string {
	return paramValues(ctx, openapi3.ParameterInQuery, name)
}

// PathParamValue returns the value of the path parameter name or "" if the
// operation has no such parameter.
func PathParamValue(ctx context.Context, name string) string {
	vs := paramValues(ctx, openapi3.ParameterInPath, name)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

type paramCtxKey struct {
	in   openapi3.ParameterIn
	name string
}

func paramValues(ctx context.Context, in openapi3.ParameterIn, name string) []string {
	vs, _ := ctx.Value(paramCtxKey{in: in, name: name}).([]string)
	return vs
}

func extractor(name string, in openapi3.ParameterIn) func(*http.Request) []string {
	switch in {
	case openapi3.ParameterInHeader:
		return func(r *http.Request) []string {
			return r.Header.Values(name)
		}
	case openapi3.ParameterInQuery:
		return func(r *http.Request) []string {
			return r.URL.Query()[name]
		}
	case openapi3.ParameterInPath:
		return func(r *http.Request) []string {
			if v := chi.URLParam(r, name); v != "" {
				return []string{v}
			}
			return nil
		}
	default:
		panic("rest: unsupported parameter location " + string(in))
	}
}

// param documents the parameter and stores its values in the request
// context for handlers. Checks added by opts run after the values are stored.
func param(name string, in openapi3.ParameterIn, opts ...ParameterOption) OperationOption {
	return func(oo *OperationOptions) {
		extract := extractor(name, in)
		key := paramCtxKey{in: in, name: name}
		oo.transforms = append(oo.transforms, func(r *http.Request) (*http.Request, error) {
			return r.WithContext(context.WithValue(r.Context(), key, extract(r))), nil
		})

		po := &ParameterOptions{
			operationOptions: oo,
			extract:          extract,
			def: &openapi3.Parameter{
				Name:     name,
				In:       in,
				Required: ptr.Ref(in == openapi3.ParameterInPath),
			},
		}
		for _, opt := range opts {
			opt(po)
		}
		if !*po.def.Required {
			po.def.Required = nil
		}

		oo.parameters = append(oo.parameters, openapi3.ParameterOrRef{
			Parameter: po.def,
		})
	}
}

// ParameterOptions are the settings of one parameter.
type ParameterOptions struct {
	operationOptions *OperationOptions
	extract          func(*http.Request) []string
	def              *openapi3.Parameter
}

// ParameterOption sets a value on [ParameterOptions].
type ParameterOption func(*ParameterOptions)

// check rejects requests for which f returns an error.
func (po *ParameterOptions) check(f func([]string) error) {
	extract := po.extract
	po.operationOptions.transforms = append(po.operationOptions.transforms, func(r *http.Request) (*http.Request, error) {
		err := f(extract(r))
		if err != nil {
			return nil, BadRequestError{Cause: err}
		}
		return r, nil
	})
}

func (po *ParameterOptions) stringSchema() *openapi3.Schema {
	if po.def.Schema == nil {
		po.def.Schema = &openapi3.SchemaOrRef{
			Schema: &openapi3.Schema{Type: ptr.Ref(openapi3.SchemaTypeString)},
		}
	}
	return po.def.Schema.Schema
}

func (po *ParameterOptions) invalid() error {
	return InvalidParameterValueError{
		Parameter: po.def.Name,
		In:        string(po.def.In),
	}
}

// MissingRequiredParameterError is the cause of the [BadRequestError]
// returned when a [Required] parameter is absent.
type MissingRequiredParameterError struct {
	Parameter string
	In        string
}

func (e MissingRequiredParameterError) Error() string {
	return fmt.Sprintf("missing required request parameter in %s: %s", e.In, e.Parameter)
}

// InvalidParameterValueError is the cause of the [BadRequestError] returned
// when a parameter value is rejected by [Regex] or [OneOf].
type InvalidParameterValueError struct {
	Parameter string
	In        string
}

func (e InvalidParameterValueError) Error() string {
	return fmt.Sprintf("invalid parameter value in %s: %s", e.In, e.Parameter)
}

// Required rejects requests without a value for the parameter.
func Required() ParameterOption {
	return func(po *ParameterOptions) {
		po.def.Required = ptr.Ref(true)

		missing := MissingRequiredParameterError{
			Parameter: po.def.Name,
			In:        string(po.def.In),
		}
		po.check(func(vs []string) error {
			if len(vs) == 0 {
				return missing
			}
			return nil
		})
	}
}

// Regex rejects requests with any parameter value not matching re.
func Regex(re *regexp.Regexp) ParameterOption {
	return func(po *ParameterOptions) {
		po.stringSchema().Pattern = ptr.Ref(re.String())

		invalid := po.invalid()
		po.check(func(vs []string) error {
			for _, v := range vs {
				if !re.MatchString(v) {
					return invalid
				}
			}
			return nil
		})
	}
}

// OneOf rejects requests with any parameter value not in allowed.
func OneOf(allowed ...string) ParameterOption {
	return func(po *ParameterOptions) {
		schema := po.stringSchema()
		schema.Enum = nil
		for _, v := range allowed {
			schema.Enum = append(schema.Enum, v)
		}

		invalid := po.invalid()
		po.check(func(vs []string) error {
			for _, v := range vs {
				if !slices.Contains(allowed, v) {
					return invalid
				}
			}
			return nil
		})
	}
}

// Description documents the parameter.
func Description(s string) ParameterOption {
	return func(po *ParameterOptions) {
		po.def.Description = &s
	}
}
