// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/z5labs/rampart/rest/validation"

	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
	"github.com/z5labs/sdk-go/try"
)

// reflectSchema documents T the way request and response bodies and
// components are documented. Nested types are inlined so the resulting
// schema never references definitions missing from the API document.
func reflectSchema[T any]() (*openapi3.SchemaOrRef, error) {
	var t T
	var reflector jsonschema.Reflector

	jsonSchema, err := reflector.Reflect(t, jsonschema.InlineRefs)
	if err != nil {
		return nil, err
	}

	var schemaOrRef openapi3.SchemaOrRef
	schemaOrRef.FromJSONSchema(jsonSchema.ToSchemaOrBool())
	return &schemaOrRef, nil
}

func jsonContent(schema *openapi3.SchemaOrRef) map[string]openapi3.MediaType {
	return map[string]openapi3.MediaType{
		"application/json": {
			Schema: schema,
		},
	}
}

// JsonRequest is a [TypedRequest] decoding T from an application/json
// body. Its documented schema, reflected from T, is the schema the body is
// validated against unless the operation sets [RequestBodySpec].
type JsonRequest[T any] struct {
	inner T
}

// Spec implements the [TypedRequest] interface.
func (*JsonRequest[T]) Spec() (openapi3.RequestBodyOrRef, error) {
	schema, err := reflectSchema[T]()
	if err != nil {
		return openapi3.RequestBodyOrRef{}, err
	}

	return openapi3.RequestBodyOrRef{
		RequestBody: &openapi3.RequestBody{
			Required: ptr.Ref(true),
			Content:  jsonContent(schema),
		},
	}, nil
}

var errEmptyBody = errors.New("request body is empty")

// ReadRequest implements the [RequestReader] interface.
// Exactly one JSON value must be present. Anything following it is
// reported as [validation.ErrTrailingData], which matches what body
// validation reports for the same input.
func (jr *JsonRequest[T]) ReadRequest(ctx context.Context, r *http.Request) (err error) {
	defer try.Close(&err, r.Body)

	contentType := r.Header.Get("Content-Type")
	if !isJsonContentType(contentType) {
		return BadRequestError{
			Cause: InvalidContentTypeError{
				ContentType: contentType,
			},
		}
	}

	dec := json.NewDecoder(r.Body)
	err = dec.Decode(&jr.inner)
	if errors.Is(err, io.EOF) {
		err = errEmptyBody
	}
	if err == nil && dec.More() {
		err = validation.ErrTrailingData
	}
	if err != nil {
		return BadRequestError{
			Cause: InvalidJSONError{
				Cause: err,
			},
		}
	}
	return nil
}

// JsonResponse is a [TypedResponse] encoding T as a 200 application/json body.
type JsonResponse[T any] struct {
	inner *T
}

// Spec implements the [TypedResponse] interface.
func (*JsonResponse[T]) Spec() (int, openapi3.ResponseOrRef, error) {
	schema, err := reflectSchema[T]()
	if err != nil {
		return 0, openapi3.ResponseOrRef{}, err
	}

	return http.StatusOK, openapi3.ResponseOrRef{
		Response: &openapi3.Response{
			Description: http.StatusText(http.StatusOK),
			Content:     jsonContent(schema),
		},
	}, nil
}

// WriteResponse implements the [ResponseWriter] interface.
func (jr *JsonResponse[T]) WriteResponse(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	return json.NewEncoder(w).Encode(jr.inner)
}

// ReturnJsonHandler writes the result of a [Handler] as a [JsonResponse].
type ReturnJsonHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
}

// ReturnJson initializes a [ReturnJsonHandler].
func ReturnJson[Req, Resp any](h Handler[Req, Resp]) *ReturnJsonHandler[Req, Resp] {
	return &ReturnJsonHandler[Req, Resp]{inner: h}
}

// Handle implements the [Handler] interface.
func (h *ReturnJsonHandler[Req, Resp]) Handle(ctx context.Context, req *Req) (*JsonResponse[Resp], error) {
	resp, err := h.inner.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	return &JsonResponse[Resp]{inner: resp}, nil
}

// ConsumeJsonHandler passes the decoded [JsonRequest] body to a [Handler].
type ConsumeJsonHandler[Req, Resp any] struct {
	inner Handler[Req, Resp]
}

// ConsumeJson initializes a [ConsumeJsonHandler].
func ConsumeJson[Req, Resp any](h Handler[Req, Resp]) *ConsumeJsonHandler[Req, Resp] {
	return &ConsumeJsonHandler[Req, Resp]{inner: h}
}

// Handle implements the [Handler] interface.
func (h *ConsumeJsonHandler[Req, Resp]) Handle(ctx context.Context, req *JsonRequest[Req]) (*Resp, error) {
	return h.inner.Handle(ctx, &req.inner)
}

// HandleJson serves operations with a JSON request and a JSON response,
// such as creating a product and returning it.
//
// Example:
//
//	h := rest.HandlerFunc[Product, Product](func(ctx context.Context, p *Product) (*Product, error) {
//	    return store.Add(p)
//	})
//	rest.Operation(http.MethodPost, rest.BasePath("/products"), rest.HandleJson(h))
func HandleJson[Req, Resp any](h Handler[Req, Resp]) *ConsumeJsonHandler[Req, JsonResponse[Resp]] {
	return ConsumeJson(ReturnJson(h))
}

// ProduceJson serves operations without a request body, typically GET.
// No request body validation happens for them.
func ProduceJson[T any](p Producer[T]) *ReturnJsonHandler[EmptyRequest, T] {
	return ReturnJson[EmptyRequest, T](ConsumeNothing(p))
}

// ConsumeOnlyJson serves operations which accept a validated JSON body and
// answer with an empty 200 response.
func ConsumeOnlyJson[T any](c Consumer[T]) *ConsumeJsonHandler[T, EmptyResponse] {
	return ConsumeJson[T, EmptyResponse](ProduceNothing(c))
}
