// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"bytes"
	"io"
	"math"
	"mime"
	"net/http"
	"strings"

	"github.com/z5labs/rampart/rest/validation"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// JsonBodyRef returns a required application/json request body whose schema
// references the component registered under name.
//
// Example:
//
//	rest.NewApi(
//	    "Products",
//	    "v1.0.0",
//	    rest.Component("Product", productSchema),
//	    rest.Operation(
//	        http.MethodPost,
//	        rest.BasePath("/products"),
//	        rest.HandleJson(handler),
//	        rest.RequestBodySpec(rest.JsonBodyRef("Product")),
//	    ),
//	)
func JsonBodyRef(name string) openapi3.RequestBody {
	return openapi3.RequestBody{
		Required: ptr.Ref(true),
		Content: map[string]openapi3.MediaType{
			"application/json": {
				Schema: &openapi3.SchemaOrRef{
					SchemaReference: &openapi3.SchemaReference{
						Ref: "#/components/schemas/" + name,
					},
				},
			},
		},
	}
}

type bodyValidator struct {
	validator func() *validation.Validator
	rb        *validation.RequestBody
	maxBytes  int64
}

// transform validates the request body and restores it so the operation
// can still decode it.
func (bv *bodyValidator) transform(r *http.Request) (*http.Request, error) {
	ctx := r.Context()

	b, err := readBody(r, bv.maxBytes)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(b))

	var body validation.Value
	if len(bytes.TrimSpace(b)) > 0 {
		contentType := r.Header.Get("Content-Type")
		if !isJsonContentType(contentType) {
			return nil, BadRequestError{
				Cause: InvalidContentTypeError{
					ContentType: contentType,
				},
			}
		}

		body, err = validation.ParseJSON(b)
		if err != nil {
			return nil, BadRequestError{
				Cause: InvalidJSONError{
					Cause: err,
				},
			}
		}
	}

	err = bv.validator().ValidateRequestBody(ctx, body, bv.rb)
	switch validation.KindOf(err) {
	case validation.KindMissingRequiredBody:
		return nil, BadRequestError{Cause: err}
	case validation.KindInvalidRequestBody:
		return nil, UnprocessableEntityError{Cause: err}
	case validation.KindMalformedReference, validation.KindUnresolvedReference:
		return nil, InvalidSpecError{Cause: err}
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	body := io.Reader(r.Body)
	if limit < math.MaxInt64 {
		// one extra byte tells a body at the limit from one over it
		body = io.LimitReader(r.Body, limit+1)
	}

	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, RequestTooLargeError{Limit: limit}
	}
	return b, nil
}

func isJsonContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
