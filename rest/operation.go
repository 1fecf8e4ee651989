// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"
	"strconv"

	"github.com/z5labs/rampart"
	"github.com/z5labs/rampart/rest/validation"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxRequestBytes = 1 << 20

// OperationOptions are the settings of one operation registered with [Operation].
type OperationOptions struct {
	parameters      []openapi3.ParameterOrRef
	transforms      []func(*http.Request) (*http.Request, error)
	errHandler      ErrorHandler
	requestBody     *openapi3.RequestBody
	skipValidation  bool
	maxRequestBytes int64
}

// OperationOption sets a value on [OperationOptions].
type OperationOption func(*OperationOptions)

// OnError replaces the [ErrorHandler] of an operation. By default errors
// implementing [HttpResponseWriter] write their own response and any other
// error becomes an empty 500 problem.
func OnError(eh ErrorHandler) OperationOption {
	return func(oo *OperationOptions) {
		oo.errHandler = eh
	}
}

// RequestBodySpec replaces the request body documented for, and validated
// by, an operation. Use it with [JsonBodyRef] to reference a [Component].
func RequestBodySpec(rb openapi3.RequestBody) OperationOption {
	return func(oo *OperationOptions) {
		oo.requestBody = &rb
	}
}

// SkipValidation disables request body validation for an operation.
// The request body is still documented.
func SkipValidation() OperationOption {
	return func(oo *OperationOptions) {
		oo.skipValidation = true
	}
}

// MaxRequestBytes limits the size of request bodies read for validation.
// Larger bodies are rejected with a [RequestTooLargeError]. The default is
// 1 MiB and n <= 0 keeps it. [math.MaxInt64] removes the limit.
func MaxRequestBytes(n int64) OperationOption {
	return func(oo *OperationOptions) {
		if n <= 0 {
			n = defaultMaxRequestBytes
		}
		oo.maxRequestBytes = n
	}
}

// Handler implements the logic of an operation once its request has been
// checked and decoded.
type Handler[Req, Resp any] interface {
	Handle(context.Context, *Req) (*Resp, error)
}

// HandlerFunc is an adapter to allow the use of ordinary functions
// as [Handler]s.
type HandlerFunc[Req, Resp any] func(context.Context, *Req) (*Resp, error)

// Handle implements the [Handler] interface.
func (f HandlerFunc[Req, Resp]) Handle(ctx context.Context, req *Req) (*Resp, error) {
	return f(ctx, req)
}

// RequestReader decodes T from a [http.Request].
type RequestReader[T any] interface {
	*T

	ReadRequest(context.Context, *http.Request) error
}

// TypedRequest is a [RequestReader] which documents its own request body.
// The documented request body is also the one validated.
type TypedRequest[T any] interface {
	RequestReader[T]

	Spec() (openapi3.RequestBodyOrRef, error)
}

// ResponseWriter encodes T into a [http.ResponseWriter].
type ResponseWriter[T any] interface {
	*T

	WriteResponse(context.Context, http.ResponseWriter) error
}

// TypedResponse is a [ResponseWriter] which documents its own response
// and status code.
type TypedResponse[T any] interface {
	ResponseWriter[T]

	Spec() (int, openapi3.ResponseOrRef, error)
}

// Operation registers h to serve method requests to path. The request body
// declared by Req, or by [RequestBodySpec], is documented in the OpenAPI
// document and every request body is validated against it before h runs.
// Parameters are checked before the request body.
//
// Operation panics if the request or response specs can not be generated.
func Operation[I, O any, Req TypedRequest[I], Resp TypedResponse[O]](method string, path Path, h Handler[I, O], opts ...OperationOption) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		oo := &OperationOptions{
			errHandler:      defaultErrorHandler(rampart.LogHandler("github.com/z5labs/rampart/rest")),
			maxRequestBytes: defaultMaxRequestBytes,
		}
		for _, p := range path.params() {
			param(p.name, openapi3.ParameterInPath, p.opts...)(oo)
		}
		for _, opt := range opts {
			opt(oo)
		}

		op, requestBody, err := document[I, O, Req, Resp](oo)
		if err != nil {
			panic(err)
		}

		endpoint := path.String()
		err = ao.def.AddOperation(method, endpoint, op)
		if err != nil {
			panic(err)
		}

		checks := oo.transforms
		if !oo.skipValidation {
			rb, err := validation.RequestBodyFromOpenAPI(requestBody)
			if err != nil {
				panic(err)
			}
			if rb != nil {
				bv := &bodyValidator{
					validator: ao.resolveValidator,
					rb:        rb,
					maxBytes:  oo.maxRequestBytes,
				}
				checks = append(checks, bv.transform)
				ao.bodies = append(ao.bodies, rb)
			}
		}

		ao.mux.Method(method, endpoint, otelhttp.WithRouteTag(endpoint, &operation[I, O, Req, Resp]{
			tracer:     otel.Tracer("github.com/z5labs/rampart/rest"),
			errHandler: oo.errHandler,
			checks:     checks,
			handler:    h,
		}))
	})
}

// document builds the OpenAPI operation. The returned request body is the
// one requests are validated against.
func document[I, O any, Req TypedRequest[I], Resp TypedResponse[O]](oo *OperationOptions) (openapi3.Operation, openapi3.RequestBodyOrRef, error) {
	var req Req
	requestBody, err := req.Spec()
	if err != nil {
		return openapi3.Operation{}, requestBody, err
	}
	if oo.requestBody != nil {
		requestBody = openapi3.RequestBodyOrRef{RequestBody: oo.requestBody}
	}

	var resp Resp
	status, respSpec, err := resp.Spec()
	if err != nil {
		return openapi3.Operation{}, requestBody, err
	}

	op := openapi3.Operation{
		Parameters: oo.parameters,
		Responses: openapi3.Responses{
			MapOfResponseOrRefValues: map[string]openapi3.ResponseOrRef{
				strconv.Itoa(status): respSpec,
			},
		},
	}
	if requestBody.RequestBody != nil || requestBody.RequestBodyReference != nil {
		op.RequestBody = &requestBody
	}
	return op, requestBody, nil
}

type operation[I, O any, Req TypedRequest[I], Resp TypedResponse[O]] struct {
	tracer     trace.Tracer
	errHandler ErrorHandler
	checks     []func(*http.Request) (*http.Request, error)
	handler    Handler[I, O]
}

func (o *operation[I, O, Req, Resp]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var err error
	defer func() {
		if err == nil {
			return
		}

		trace.SpanFromContext(ctx).SetStatus(codes.Error, err.Error())
		o.errHandler.OnError(ctx, w, err)
	}()
	defer try.Recover(&err)

	r, err = o.checkRequest(r)
	if err != nil {
		return
	}

	// checks store parameter values in the request context
	ctx = r.Context()

	req, err := o.readRequest(ctx, r)
	if err != nil {
		return
	}

	resp, err := o.handler.Handle(ctx, &req)
	if err != nil {
		return
	}

	err = o.writeResponse(ctx, w, resp)
}

// checkRequest runs the parameter checks followed by request body validation.
func (o *operation[I, O, Req, Resp]) checkRequest(r *http.Request) (_ *http.Request, err error) {
	_, span := o.tracer.Start(r.Context(), "operation.checkRequest")
	defer span.End()

	for _, check := range o.checks {
		r, err = check(r)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
	}
	return r, nil
}

func (o *operation[I, O, Req, Resp]) readRequest(ctx context.Context, r *http.Request) (I, error) {
	spanCtx, span := o.tracer.Start(ctx, "operation.readRequest")
	defer span.End()

	var req I
	err := Req(&req).ReadRequest(spanCtx, r)
	return req, err
}

func (o *operation[I, O, Req, Resp]) writeResponse(ctx context.Context, w http.ResponseWriter, resp Resp) error {
	spanCtx, span := o.tracer.Start(ctx, "operation.writeResponse")
	defer span.End()

	return resp.WriteResponse(spanCtx, w)
}
