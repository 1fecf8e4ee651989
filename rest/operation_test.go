// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureErrorHandler struct {
	errs []error
}

func (h *captureErrorHandler) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	h.errs = append(h.errs, err)
	w.WriteHeader(http.StatusTeapot)
}

func TestOperation(t *testing.T) {
	t.Run("will register the operation at its method and path", func(t *testing.T) {
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodGet,
				BasePath("/products").Param("id"),
				ProduceJson(ProducerFunc[Product](func(ctx context.Context) (*Product, error) {
					return &Product{Name: PathParamValue(ctx, "id")}, nil
				})),
			),
		)

		req := httptest.NewRequest(http.MethodGet, "/products/pen", nil)
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"name":"pen","price":0}`, w.Body.String())
	})

	t.Run("will document path parameters as required", func(t *testing.T) {
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodGet,
				BasePath("/products").Param("id"),
				ProduceJson(ProducerFunc[Product](nil)),
			),
		)

		doc := getOpenApiDoc(t, api)

		op := doc["paths"].(map[string]any)["/products/{id}"].(map[string]any)["get"].(map[string]any)
		params, ok := op["parameters"].([]any)
		require.True(t, ok)
		require.Len(t, params, 1)

		param := params[0].(map[string]any)
		assert.Equal(t, "id", param["name"])
		assert.Equal(t, "path", param["in"])
		assert.Equal(t, true, param["required"])
	})

	t.Run("will document the overriding request body", func(t *testing.T) {
		api := NewApi(
			"Products",
			"v1.0.0",
			Component("Product", mustParse(t, productSchema)),
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(echoProduct()),
				RequestBodySpec(JsonBodyRef("Product")),
			),
		)

		doc := getOpenApiDoc(t, api)

		op := doc["paths"].(map[string]any)["/products"].(map[string]any)["post"].(map[string]any)
		rb := op["requestBody"].(map[string]any)
		schema := rb["content"].(map[string]any)["application/json"].(map[string]any)["schema"].(map[string]any)
		assert.Equal(t, "#/components/schemas/Product", schema["$ref"])
	})
}

func TestOperation_ServeHTTP(t *testing.T) {
	t.Run("will call the error handler if the handler fails", func(t *testing.T) {
		handlerErr := errors.New("out of stock")
		eh := &captureErrorHandler{}

		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(HandlerFunc[Product, Product](func(ctx context.Context, p *Product) (*Product, error) {
					return nil, handlerErr
				})),
				OnError(eh),
			),
		)

		w := post(api, "/products", "application/json", `{"name":"pen","price":2}`)

		assert.Equal(t, http.StatusTeapot, w.Code)
		require.Len(t, eh.errs, 1)
		assert.ErrorIs(t, eh.errs[0], handlerErr)
	})

	t.Run("will call the error handler if validation fails", func(t *testing.T) {
		eh := &captureErrorHandler{}

		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(echoProduct()),
				OnError(eh),
			),
		)

		w := post(api, "/products", "application/json", `{}`)

		assert.Equal(t, http.StatusTeapot, w.Code)
		require.Len(t, eh.errs, 1)

		var uerr UnprocessableEntityError
		assert.True(t, errors.As(eh.errs[0], &uerr))
	})

	t.Run("will recover a panicking handler", func(t *testing.T) {
		eh := &captureErrorHandler{}

		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(HandlerFunc[Product, Product](func(ctx context.Context, p *Product) (*Product, error) {
					panic("boom")
				})),
				OnError(eh),
			),
		)

		w := post(api, "/products", "application/json", `{"name":"pen","price":2}`)

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Len(t, eh.errs, 1)
	})

	t.Run("will write a 500 problem for unknown errors by default", func(t *testing.T) {
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(HandlerFunc[Product, Product](func(ctx context.Context, p *Product) (*Product, error) {
					return nil, errors.New("database unavailable")
				})),
			),
		)

		w := post(api, "/products", "application/json", `{"name":"pen","price":2}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)

		pd := decodeProblem(t, w)
		assert.Empty(t, pd.Detail)
	})

	t.Run("will check parameters before the request body", func(t *testing.T) {
		eh := &captureErrorHandler{}

		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(echoProduct()),
				Header("X-Request-ID", Required()),
				OnError(eh),
			),
		)

		w := post(api, "/products", "application/json", `{}`)

		assert.Equal(t, http.StatusTeapot, w.Code)
		require.Len(t, eh.errs, 1)

		var mrpErr MissingRequiredParameterError
		assert.True(t, errors.As(eh.errs[0], &mrpErr))
	})

	t.Run("will not validate operations without a request body", func(t *testing.T) {
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodDelete,
				BasePath("/products"),
				ProduceNothing(ConsumerFunc[EmptyRequest](func(ctx context.Context, req *EmptyRequest) error {
					return nil
				})),
			),
		)

		req := httptest.NewRequest(http.MethodDelete, "/products", strings.NewReader("not json"))
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
