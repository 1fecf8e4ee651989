// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"errors"
	"fmt"
)

// Kind classifies the errors returned by [Validator.ValidateRequestBody]
// so callers can pick a response without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota

	// KindMissingRequiredBody is a client error. The operation requires a
	// body but none was sent.
	KindMissingRequiredBody

	// KindMalformedReference means the API description holds a $ref which
	// does not point into #/components/schemas.
	KindMalformedReference

	// KindUnresolvedReference means the API description references a
	// component schema which was never registered.
	KindUnresolvedReference

	// KindInvalidRequestBody is a client error. The body does not
	// satisfy its schema.
	KindInvalidRequestBody
)

func (k Kind) String() string {
	switch k {
	case KindMissingRequiredBody:
		return "MissingRequiredBody"
	case KindMalformedReference:
		return "MalformedReference"
	case KindUnresolvedReference:
		return "UnresolvedReference"
	case KindInvalidRequestBody:
		return "InvalidRequestBody"
	default:
		return "Unknown"
	}
}

// Sentinel errors for use with errors.Is.
var (
	ErrMissingRequiredBody = errors.New("missing required request body")
	ErrMalformedReference  = errors.New("malformed schema reference")
	ErrUnresolvedReference = errors.New("unresolved schema reference")
	ErrInvalidRequestBody  = errors.New("invalid request body")
)

// MissingRequiredBodyError is returned when a required request body is absent.
type MissingRequiredBodyError struct{}

func (*MissingRequiredBodyError) Error() string {
	return "Request body is required"
}

// Is reports whether target is [ErrMissingRequiredBody].
func (*MissingRequiredBodyError) Is(target error) bool {
	return target == ErrMissingRequiredBody
}

// MalformedReferenceError is returned when a schema $ref does not have
// the form #/components/schemas/<name>.
type MalformedReferenceError struct {
	Ref string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("Unsupported schema reference format: %s", e.Ref)
}

// Is reports whether target is [ErrMalformedReference].
func (e *MalformedReferenceError) Is(target error) bool {
	return target == ErrMalformedReference
}

// UnresolvedReferenceError is returned when a schema $ref names a
// component schema which is not registered.
type UnresolvedReferenceError struct {
	Ref  string
	Name string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("Invalid reference %s - schema %s not found.", e.Ref, e.Name)
}

// Is reports whether target is [ErrUnresolvedReference].
func (e *UnresolvedReferenceError) Is(target error) bool {
	return target == ErrUnresolvedReference
}

// InvalidRequestBodyError is returned when a request body fails schema
// validation. Message holds every violation in one line.
type InvalidRequestBodyError struct {
	Body       Value
	Message    string
	Violations []Violation
}

func (e *InvalidRequestBodyError) Error() string {
	return fmt.Sprintf("invalid request body: %s", e.Message)
}

// Is reports whether target is [ErrInvalidRequestBody].
func (e *InvalidRequestBodyError) Is(target error) bool {
	return target == ErrInvalidRequestBody
}

// KindOf returns the [Kind] of err, looking through wrapped errors.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrMissingRequiredBody):
		return KindMissingRequiredBody
	case errors.Is(err, ErrMalformedReference):
		return KindMalformedReference
	case errors.Is(err, ErrUnresolvedReference):
		return KindUnresolvedReference
	case errors.Is(err, ErrInvalidRequestBody):
		return KindInvalidRequestBody
	default:
		return KindUnknown
	}
}

// IsSpecError reports whether err points at a broken API description
// rather than a bad request.
func IsSpecError(err error) bool {
	k := KindOf(err)
	return k == KindMalformedReference || k == KindUnresolvedReference
}
