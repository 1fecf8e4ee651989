// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/z5labs/rampart"
	"github.com/z5labs/rampart/health"
	"github.com/z5labs/rampart/rest/validation"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"github.com/swaggest/openapi-go/openapi3"
)

// ApiOptions holds configuration values used when constructing an [Api].
// This struct is passed to [ApiOption] implementations to configure the API's
// router, OpenAPI specification and request body validation.
type ApiOptions struct {
	mux        *chi.Mux
	def        *openapi3.Spec
	components validation.Components
	validator  *validation.Validator
	valOpts    []validation.ValidatorOption
	cors       *cors.Cors
	readiness  health.Monitor
	bodies     []*validation.RequestBody
}

// ApiOption is an interface for configuring an [Api].
//
// Common implementations include:
//   - [Operation] - registers HTTP operations
//   - [Component] - registers a named schema used by request body references
//   - [Readiness] - configures the readiness probe
//   - [CORS] - enables cross origin resource sharing
type ApiOption interface {
	ApplyApiOption(*ApiOptions)
}

type apiOptionFunc func(*ApiOptions)

func (f apiOptionFunc) ApplyApiOption(ao *ApiOptions) {
	f(ao)
}

// Readiness reports the health of m at GET /health/readiness. The API is
// never ready while the request body schema of any operation references a
// missing or malformed component.
//
// See [Liveness, Readiness, and Startup Probes] for more details.
//
// [Liveness, Readiness, and Startup Probes]: https://kubernetes.io/docs/concepts/configuration/liveness-readiness-startup-probes/
func Readiness(m health.Monitor) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.readiness = m
	})
}

// NotFound configures a custom handler for requests that don't match any registered routes.
func NotFound(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.NotFound(h.ServeHTTP)
	})
}

// MethodNotAllowed configures a custom handler for requests to valid routes
// with unsupported HTTP methods.
func MethodNotAllowed(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.mux.MethodNotAllowed(h.ServeHTTP)
	})
}

// CORS wraps the [Api] with a CORS handler configured by opts.
func CORS(opts cors.Options) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.cors = cors.New(opts)
	})
}

// ValidatorOptions customizes the [validation.Validator] shared by every
// operation of the [Api].
func ValidatorOptions(opts ...validation.ValidatorOption) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.valOpts = append(ao.valOpts, opts...)
	})
}

// Component registers schema under #/components/schemas/name in the OpenAPI
// document. Request bodies may reference it with [JsonBodyRef].
//
// Component panics if schema can not be represented as an OpenAPI schema.
func Component(name string, schema validation.Value) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		b, err := json.Marshal(schema)
		if err != nil {
			panic(fmt.Errorf("rest: marshaling component %s: %w", name, err))
		}

		var schemaOrRef openapi3.SchemaOrRef
		err = json.Unmarshal(b, &schemaOrRef)
		if err != nil {
			panic(fmt.Errorf("rest: component %s is not an openapi schema: %w", name, err))
		}

		ao.def.ComponentsEns().SchemasEns().WithMapOfSchemaOrRefValuesItem(name, schemaOrRef)
		ao.components[name] = schema
	})
}

// ComponentOf registers the schema reflected from T under
// #/components/schemas/name. See [Component].
func ComponentOf[T any](name string) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		schemaOrRef, err := reflectSchema[T]()
		if err != nil {
			panic(fmt.Errorf("rest: reflecting component %s: %w", name, err))
		}

		b, err := json.Marshal(schemaOrRef)
		if err != nil {
			panic(fmt.Errorf("rest: marshaling component %s: %w", name, err))
		}

		schema, err := validation.ParseJSON(b)
		if err != nil {
			panic(fmt.Errorf("rest: parsing component %s: %w", name, err))
		}

		Component(name, schema).ApplyApiOption(ao)
	})
}

// Api is an OpenAPI-compliant [http.Handler] that serves as the foundation
// for building REST APIs.
//
// # Standard Features
//
// Every Api automatically provides:
//   - OpenAPI 3.0 schema available at GET /openapi.json
//   - Liveness probe at GET /health/liveness (returns 200 OK)
//   - Readiness probe at GET /health/readiness
//   - Request body validation against the schema declared for each operation
//
// # Usage
//
// Create an Api using [NewApi], passing operations created with [Operation]:
//
//	createProduct := rest.Operation(http.MethodPost, rest.BasePath("/products"), rest.HandleJson(handler))
//	api := rest.NewApi("Products", "v1.0.0", createProduct)
//	http.ListenAndServe(":8080", api)
type Api struct {
	handler http.Handler
}

// NewApi creates a new [Api] with the specified title and version.
//
// Options are applied in order, but components may be registered before or
// after the operations referencing them.
func NewApi(title, version string, opts ...ApiOption) *Api {
	log := rampart.Logger("github.com/z5labs/rampart/rest")

	ao := &ApiOptions{
		mux: chi.NewMux(),
		def: &openapi3.Spec{
			Openapi: "3.0.3",
			Info: openapi3.Info{
				Title:   title,
				Version: version,
			},
		},
		components: validation.Components{},
		readiness:  health.MonitorFunc(health.AlwaysHealthy),
	}

	// operations look the validator up when serving since
	// ValidatorOptions may be given after them.
	for _, opt := range opts {
		opt.ApplyApiOption(ao)
	}
	ao.resolveValidator()

	ao.mux.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		enc := json.NewEncoder(w)
		err := enc.Encode(ao.def)
		if err == nil {
			return
		}
		log.ErrorContext(
			r.Context(),
			"failed to encode openapi schema to json",
			slog.Any("error", err),
		)
	})
	ao.mux.Method(http.MethodGet, "/health/liveness", health.Handler(health.MonitorFunc(health.AlwaysHealthy)))
	ao.mux.Method(http.MethodGet, "/health/readiness", health.Handler(health.And(
		health.Once(health.MonitorFunc(ao.checkRequestBodies)),
		ao.readiness,
	)))

	var h http.Handler = ao.mux
	if ao.cors != nil {
		h = ao.cors.Handler(h)
	}

	return &Api{
		handler: h,
	}
}

// ServeHTTP implements the [http.Handler] interface.
func (api *Api) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	api.handler.ServeHTTP(w, req)
}

func (ao *ApiOptions) resolveValidator() *validation.Validator {
	if ao.validator == nil {
		ao.validator = validation.NewValidator(ao.components, ao.valOpts...)
	}
	return ao.validator
}

// checkRequestBodies reports whether every validated request body schema
// resolves against the registered components.
func (ao *ApiOptions) checkRequestBodies(ctx context.Context) (bool, error) {
	v := ao.resolveValidator()

	var errs []error
	for _, rb := range ao.bodies {
		err := v.CheckRequestBody(rb)
		if err != nil {
			errs = append(errs, err)
		}
	}
	err := errors.Join(errs...)
	return err == nil, err
}
