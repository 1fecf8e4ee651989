// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonRequest_ReadRequest(t *testing.T) {
	t.Run("will decode the body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"pen","price":2}`))
		req.Header.Set("Content-Type", "application/json")

		var jr JsonRequest[Product]
		err := jr.ReadRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, Product{Name: "pen", Price: 2}, jr.inner)
	})

	t.Run("will accept structured json media types", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"pen","price":2}`))
		req.Header.Set("Content-Type", "application/merge-patch+json")

		var jr JsonRequest[Product]
		err := jr.ReadRequest(context.Background(), req)
		assert.NoError(t, err)
	})

	t.Run("will return an InvalidContentTypeError", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/xml")

		var jr JsonRequest[Product]
		err := jr.ReadRequest(context.Background(), req)

		var badRequest BadRequestError
		require.True(t, errors.As(err, &badRequest))

		var ictErr InvalidContentTypeError
		require.True(t, errors.As(err, &ictErr))
		assert.Equal(t, "application/xml", ictErr.ContentType)
	})

	t.Run("will return an InvalidJSONError", func(t *testing.T) {
		testCases := map[string]string{
			"empty":      "",
			"truncated":  `{"name":`,
			"mistyped":   `{"price":"free"}`,
			"two values": `{"name":"pen"} {"name":"ink"}`,
		}

		for name, body := range testCases {
			t.Run("if the body is "+name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
				req.Header.Set("Content-Type", "application/json")

				var jr JsonRequest[Product]
				err := jr.ReadRequest(context.Background(), req)

				var badRequest BadRequestError
				require.True(t, errors.As(err, &badRequest))

				var ijErr InvalidJSONError
				assert.True(t, errors.As(err, &ijErr))
			})
		}
	})
}

func TestEmptyRequest_ReadRequest(t *testing.T) {
	t.Run("will drain and close an unexpected body", func(t *testing.T) {
		body := &closeRecorder{Reader: strings.NewReader(`{"name":"pen"}`)}
		req := httptest.NewRequest(http.MethodGet, "/products", body)

		var er EmptyRequest
		err := er.ReadRequest(context.Background(), req)
		require.NoError(t, err)

		assert.True(t, body.closed)
		assert.Equal(t, 0, body.Len())
	})
}

type closeRecorder struct {
	*strings.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestJsonRequest_Spec(t *testing.T) {
	t.Run("will declare a required json body", func(t *testing.T) {
		var jr JsonRequest[Product]
		spec, err := jr.Spec()
		require.NoError(t, err)
		require.NotNil(t, spec.RequestBody)

		rb := spec.RequestBody
		require.NotNil(t, rb.Required)
		assert.True(t, *rb.Required)
		require.Contains(t, rb.Content, "application/json")

		schema := rb.Content["application/json"].Schema
		require.NotNil(t, schema)
		require.NotNil(t, schema.Schema)
		assert.ElementsMatch(t, []string{"name", "price"}, schema.Schema.Required)
	})
}

func TestJsonResponse_WriteResponse(t *testing.T) {
	t.Run("will write json with the content type", func(t *testing.T) {
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodGet,
				BasePath("/products/pen"),
				ProduceJson(ProducerFunc[Product](func(ctx context.Context) (*Product, error) {
					return &Product{Name: "pen", Price: 2}, nil
				})),
			),
		)

		req := httptest.NewRequest(http.MethodGet, "/products/pen", nil)
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var p Product
		err := json.NewDecoder(w.Body).Decode(&p)
		require.NoError(t, err)
		assert.Equal(t, Product{Name: "pen", Price: 2}, p)
	})
}

func TestJsonResponse_Spec(t *testing.T) {
	t.Run("will declare a 200 json response", func(t *testing.T) {
		var jr JsonResponse[Product]
		status, spec, err := jr.Spec()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, status)
		require.NotNil(t, spec.Response)
		assert.Contains(t, spec.Response.Content, "application/json")
	})
}

func TestConsumeOnlyJson(t *testing.T) {
	t.Run("will pass the validated body to the consumer", func(t *testing.T) {
		var consumed []Product
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPut,
				BasePath("/products"),
				ConsumeOnlyJson(ConsumerFunc[Product](func(ctx context.Context, p *Product) error {
					consumed = append(consumed, *p)
					return nil
				})),
			),
		)

		req := httptest.NewRequest(http.MethodPut, "/products", strings.NewReader(`{"name":"pen","price":2}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []Product{{Name: "pen", Price: 2}}, consumed)
	})

	t.Run("will not call the consumer for an invalid body", func(t *testing.T) {
		called := false
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPut,
				BasePath("/products"),
				ConsumeOnlyJson(ConsumerFunc[Product](func(ctx context.Context, p *Product) error {
					called = true
					return nil
				})),
			),
		)

		req := httptest.NewRequest(http.MethodPut, "/products", strings.NewReader(`{"name":"pen"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		api.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.False(t, called)
	})
}
