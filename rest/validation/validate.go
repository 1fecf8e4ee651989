// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package validation checks request bodies against the schemas declared
// for them in an OpenAPI document.
//
// A request body schema is resolved from the first media type of the
// operation's request body, following a #/components/schemas reference when
// one is given. The OpenAPI schema is converted into a JSON Schema document
// and handed to an [Engine] which reports every violation. Failures are
// returned as typed errors whose [Kind] callers can map to status codes.
package validation

import (
	"context"

	"github.com/z5labs/rampart"
	"github.com/z5labs/rampart/concurrent"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ValidatorOptions are configurable parameters of a [Validator].
type ValidatorOptions struct {
	engine Engine
	tracer Tracer
}

// ValidatorOption sets a value on [ValidatorOptions].
type ValidatorOption interface {
	ApplyValidatorOption(*ValidatorOptions)
}

type validatorOptionFunc func(*ValidatorOptions)

func (f validatorOptionFunc) ApplyValidatorOption(vo *ValidatorOptions) {
	f(vo)
}

// WithEngine replaces the default [JSONSchemaEngine].
func WithEngine(e Engine) ValidatorOption {
	return validatorOptionFunc(func(vo *ValidatorOptions) {
		vo.engine = e
	})
}

// WithTracer replaces the default debug logging [Tracer].
func WithTracer(t Tracer) ValidatorOption {
	return validatorOptionFunc(func(vo *ValidatorOptions) {
		vo.tracer = t
	})
}

// Validator validates request bodies against one registry of component
// schemas. It is safe for concurrent use.
type Validator struct {
	components Components
	engine     Engine
	tracer     Tracer
	otel       trace.Tracer
}

// NewValidator initializes a [Validator].
func NewValidator(components Components, opts ...ValidatorOption) *Validator {
	vo := &ValidatorOptions{
		engine: NewJSONSchemaEngine(),
		tracer: NewLogTracer(rampart.LogHandler("github.com/z5labs/rampart/rest/validation")),
	}
	for _, opt := range opts {
		opt.ApplyValidatorOption(vo)
	}

	if components == nil {
		components = Components{}
	}

	return &Validator{
		components: components,
		engine:     vo.engine,
		tracer:     vo.tracer,
		otel:       otel.Tracer("github.com/z5labs/rampart/rest/validation"),
	}
}

// ValidateRequestBody checks body against rb. A nil body means no body was
// sent. It returns nil when the body is acceptable, otherwise one of
// [*MissingRequiredBodyError], [*MalformedReferenceError],
// [*UnresolvedReferenceError] or [*InvalidRequestBodyError].
func (v *Validator) ValidateRequestBody(ctx context.Context, body Value, rb *RequestBody) (err error) {
	spanCtx, span := v.otel.Start(ctx, "Validator.ValidateRequestBody")
	defer span.End()
	defer func() {
		if err == nil {
			return
		}
		span.SetAttributes(attribute.String("validation.error.kind", KindOf(err).String()))
		span.SetStatus(codes.Error, err.Error())
	}()

	if rb != nil && rb.Required && IsNull(body) {
		return &MissingRequiredBodyError{}
	}

	schema, err := Resolve(rb, v.components)
	if err != nil {
		return err
	}
	v.tracer.Trace(spanCtx, EventSchemaResolved, schema)
	if schema == nil || body == nil {
		return nil
	}

	jsonSchema, err := ToJSONSchema(schema)
	if err != nil {
		return err
	}
	jsonSchema, err = Bundle(jsonSchema, v.components)
	if err != nil {
		return err
	}
	v.tracer.Trace(spanCtx, EventSchemaConverted, jsonSchema)

	outcome := Check(body, jsonSchema, v.engine)
	v.tracer.Trace(spanCtx, EventValidationResult, outcome)
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
	}
	if outcome.Valid {
		return nil
	}
	return &InvalidRequestBodyError{
		Body:       body,
		Message:    outcome.Message,
		Violations: outcome.Violations,
	}
}

// CheckRequestBody reports whether the schema of rb can be resolved and
// converted using the components of v, without validating any body. It
// returns nil or one of [*MalformedReferenceError] and
// [*UnresolvedReferenceError].
func (v *Validator) CheckRequestBody(rb *RequestBody) error {
	schema, err := Resolve(rb, v.components)
	if err != nil || schema == nil {
		return err
	}

	jsonSchema, err := ToJSONSchema(schema)
	if err != nil {
		return err
	}
	_, err = Bundle(jsonSchema, v.components)
	return err
}

// ValidateRequestBody checks body against rb using components to resolve
// references. See [Validator.ValidateRequestBody].
func ValidateRequestBody(body Value, rb *RequestBody, components Components) error {
	v := NewValidator(components, WithEngine(sharedEngine), WithTracer(NopTracer))
	return v.ValidateRequestBody(context.Background(), body, rb)
}

// compiled schemas embed their bundled components so sharing is safe
// across registries
var sharedEngine = NewJSONSchemaEngine(concurrent.MaxEntries(256))
