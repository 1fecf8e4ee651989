// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"io"
	"net/http"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/try"
)

// maxDiscardBytes bounds how much of an unexpected body is drained so the
// connection can be reused.
const maxDiscardBytes = 64 << 10

// EmptyRequest is a [TypedRequest] for operations without a request body.
// Nothing is documented for it so nothing is validated. A body sent anyway
// is discarded.
type EmptyRequest struct{}

// Spec implements the [TypedRequest] interface.
func (*EmptyRequest) Spec() (openapi3.RequestBodyOrRef, error) {
	return openapi3.RequestBodyOrRef{}, nil
}

// ReadRequest implements the [RequestReader] interface.
func (*EmptyRequest) ReadRequest(ctx context.Context, r *http.Request) (err error) {
	if r.Body == nil {
		return nil
	}
	defer try.Close(&err, r.Body)

	_, err = io.Copy(io.Discard, io.LimitReader(r.Body, maxDiscardBytes))
	return err
}

// EmptyResponse is a [TypedResponse] writing a 200 status and no body.
type EmptyResponse struct{}

// Spec implements the [TypedResponse] interface.
func (*EmptyResponse) Spec() (int, openapi3.ResponseOrRef, error) {
	return http.StatusOK, openapi3.ResponseOrRef{
		Response: &openapi3.Response{
			Description: http.StatusText(http.StatusOK),
		},
	}, nil
}

// WriteResponse implements the [ResponseWriter] interface.
func (*EmptyResponse) WriteResponse(ctx context.Context, w http.ResponseWriter) error {
	w.WriteHeader(http.StatusOK)
	return nil
}

// Consumer accepts a request value and produces no response value.
type Consumer[T any] interface {
	Consume(context.Context, *T) error
}

// ConsumerFunc is an adapter to allow the use of ordinary functions
// as [Consumer]s.
type ConsumerFunc[T any] func(context.Context, *T) error

// Consume implements the [Consumer] interface.
func (f ConsumerFunc[T]) Consume(ctx context.Context, req *T) error {
	return f(ctx, req)
}

// ConsumerHandler adapts a [Consumer] into a [Handler] answering with an
// [EmptyResponse].
type ConsumerHandler[T any] struct {
	c Consumer[T]
}

// ProduceNothing initializes a [ConsumerHandler].
func ProduceNothing[T any](c Consumer[T]) *ConsumerHandler[T] {
	return &ConsumerHandler[T]{c: c}
}

// Handle implements the [Handler] interface.
func (h *ConsumerHandler[T]) Handle(ctx context.Context, req *T) (*EmptyResponse, error) {
	err := h.c.Consume(ctx, req)
	if err != nil {
		return nil, err
	}
	return &EmptyResponse{}, nil
}

// Producer produces a response value from the request context alone,
// e.g. from path or query parameters.
type Producer[T any] interface {
	Produce(context.Context) (*T, error)
}

// ProducerFunc is an adapter to allow the use of ordinary functions
// as [Producer]s.
type ProducerFunc[T any] func(context.Context) (*T, error)

// Produce implements the [Producer] interface.
func (f ProducerFunc[T]) Produce(ctx context.Context) (*T, error) {
	return f(ctx)
}

// ProducerHandler adapts a [Producer] into a [Handler] reading an
// [EmptyRequest].
type ProducerHandler[T any] struct {
	p Producer[T]
}

// ConsumeNothing initializes a [ProducerHandler].
func ConsumeNothing[T any](p Producer[T]) *ProducerHandler[T] {
	return &ProducerHandler[T]{p: p}
}

// Handle implements the [Handler] interface.
func (h *ProducerHandler[T]) Handle(ctx context.Context, req *EmptyRequest) (*T, error) {
	return h.p.Produce(ctx)
}
