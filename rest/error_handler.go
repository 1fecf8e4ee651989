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

	"github.com/z5labs/rampart/rest/validation"
)

// HttpResponseWriter is an interface for errors that can write their own HTTP responses.
// When an error implementing this interface is returned from an operation handler,
// its WriteHttpResponse method is called to generate the HTTP response.
type HttpResponseWriter interface {
	WriteHttpResponse(context.Context, http.ResponseWriter)
}

// ErrorHandler handles errors that occur during request processing.
// Custom error handlers can be configured per-operation using [OnError].
type ErrorHandler interface {
	OnError(context.Context, http.ResponseWriter, error)
}

// ErrorHandlerFunc is a function adapter that implements [ErrorHandler].
type ErrorHandlerFunc func(context.Context, http.ResponseWriter, error)

// OnError implements the [ErrorHandler] interface.
func (f ErrorHandlerFunc) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	f(ctx, w, err)
}

func defaultErrorHandler(h slog.Handler) ErrorHandlerFunc {
	log := slog.New(h)

	return func(ctx context.Context, w http.ResponseWriter, err error) {
		log.ErrorContext(ctx, "sending error response", slog.Any("error", err))

		var hrw HttpResponseWriter
		if errors.As(err, &hrw) {
			hrw.WriteHttpResponse(ctx, w)
			return
		}

		writeProblem(w, ProblemDetail{
			Type:   "about:blank",
			Title:  http.StatusText(http.StatusInternalServerError),
			Status: http.StatusInternalServerError,
		})
	}
}

func writeProblem(w http.ResponseWriter, pd ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(pd.Status)
	json.NewEncoder(w).Encode(pd)
}

// BadRequestError represents a 400 Bad Request error.
// It wraps the reason the request was rejected, for example a
// [MissingRequiredParameterError] or a missing request body.
type BadRequestError struct {
	Cause error
}

func (e BadRequestError) Error() string {
	return fmt.Sprintf("bad request error: %v", e.Cause)
}

// Unwrap returns the underlying cause of the bad request.
func (e BadRequestError) Unwrap() error {
	return e.Cause
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e BadRequestError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	writeProblem(w, ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusBadRequest),
		Status: http.StatusBadRequest,
		Detail: e.Cause.Error(),
	})
}

// InvalidContentTypeError is the cause of a [BadRequestError] when a request
// body is sent with a media type the operation does not accept.
type InvalidContentTypeError struct {
	ContentType string
}

func (e InvalidContentTypeError) Error() string {
	return fmt.Sprintf("invalid content type for request: %s", e.ContentType)
}

// InvalidJSONError is the cause of a [BadRequestError] when a request body
// is not well formed JSON.
type InvalidJSONError struct {
	Cause error
}

func (e InvalidJSONError) Error() string {
	return fmt.Sprintf("request body is not valid json: %v", e.Cause)
}

// Unwrap returns the underlying decoding error.
func (e InvalidJSONError) Unwrap() error {
	return e.Cause
}

// RequestTooLargeError is returned when a request body exceeds the limit set
// by [MaxRequestBytes]. It results in a 413 Request Entity Too Large response.
type RequestTooLargeError struct {
	Limit int64
}

func (e RequestTooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e RequestTooLargeError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	writeProblem(w, ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusRequestEntityTooLarge),
		Status: http.StatusRequestEntityTooLarge,
		Detail: e.Error(),
	})
}

// UnprocessableEntityError is returned when a well formed request body does
// not satisfy the schema declared for it. It results in a 422 response whose
// problem detail lists every violation.
type UnprocessableEntityError struct {
	Cause error
}

func (e UnprocessableEntityError) Error() string {
	return fmt.Sprintf("unprocessable entity: %v", e.Cause)
}

// Unwrap returns the underlying validation error.
func (e UnprocessableEntityError) Unwrap() error {
	return e.Cause
}

// Detail returns the aggregated validation message.
func (e UnprocessableEntityError) Detail() string {
	var ierr *validation.InvalidRequestBodyError
	if errors.As(e.Cause, &ierr) {
		return ierr.Message
	}
	return e.Cause.Error()
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e UnprocessableEntityError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	writeProblem(w, ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusUnprocessableEntity),
		Status: http.StatusUnprocessableEntity,
		Detail: e.Detail(),
	})
}

// InvalidSpecError is returned when the request body schema of an operation
// can not be resolved. The fault lies with the API definition so it results
// in a 500 Internal Server Error without exposing the cause.
type InvalidSpecError struct {
	Cause error
}

func (e InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid api specification: %v", e.Cause)
}

// Unwrap returns the underlying resolution error.
func (e InvalidSpecError) Unwrap() error {
	return e.Cause
}

// WriteHttpResponse implements [HttpResponseWriter].
func (e InvalidSpecError) WriteHttpResponse(ctx context.Context, w http.ResponseWriter) {
	writeProblem(w, ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusInternalServerError),
		Status: http.StatusInternalServerError,
	})
}
