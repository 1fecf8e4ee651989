// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/z5labs/rampart/rest/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Product struct {
	Name        string  `json:"name" required:"true"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price" required:"true"`
}

const productSchema = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"description": {"type": "string"},
		"price": {"type": "number"}
	},
	"required": ["name", "price"]
}`

func echoProduct() Handler[Product, Product] {
	return HandlerFunc[Product, Product](func(ctx context.Context, p *Product) (*Product, error) {
		return p, nil
	})
}

func mustParse(t *testing.T, s string) validation.Value {
	t.Helper()

	v, err := validation.ParseJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func post(h http.Handler, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()

	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var pd ProblemDetail
	err := json.NewDecoder(w.Body).Decode(&pd)
	require.NoError(t, err)
	return pd
}

func TestRequestBodyValidation(t *testing.T) {
	productsApi := func(opts ...OperationOption) *Api {
		return NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(echoProduct()),
				opts...,
			),
		)
	}

	t.Run("will pass a valid body to the handler", func(t *testing.T) {
		w := post(productsApi(), "/products", "application/json", `{"name":"pen","price":1.5}`)
		require.Equal(t, http.StatusOK, w.Code)

		var p Product
		err := json.NewDecoder(w.Body).Decode(&p)
		require.NoError(t, err)
		assert.Equal(t, Product{Name: "pen", Price: 1.5}, p)
	})

	t.Run("will accept a json media type with parameters", func(t *testing.T) {
		w := post(productsApi(), "/products", "application/json; charset=utf-8", `{"name":"pen","price":1.5}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("will return 422 listing every missing property", func(t *testing.T) {
		w := post(productsApi(), "/products", "application/json", `{}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(t, http.StatusUnprocessableEntity, pd.Status)
		assert.Equal(
			t,
			"[object Object] should have required property 'name', [object Object] should have required property 'price'",
			pd.Detail,
		)
	})

	t.Run("will return 422 listing every type mismatch", func(t *testing.T) {
		w := post(productsApi(), "/products", "application/json", `{"name":1,"price":"free"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(
			t,
			"[object Object].name should be string, [object Object].price should be number",
			pd.Detail,
		)
	})

	t.Run("will label an array body", func(t *testing.T) {
		w := post(productsApi(), "/products", "application/json", `[]`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(t, "[object Array] should be object", pd.Detail)
	})

	t.Run("will return 400 for a missing body", func(t *testing.T) {
		testCases := map[string]string{
			"empty":      "",
			"whitespace": "  \n",
			"null":       "null",
		}

		for name, body := range testCases {
			t.Run("if the body is "+name, func(t *testing.T) {
				w := post(productsApi(), "/products", "application/json", body)
				require.Equal(t, http.StatusBadRequest, w.Code)

				pd := decodeProblem(t, w)
				assert.Equal(t, "Request body is required", pd.Detail)
			})
		}
	})

	t.Run("will return 400 for a non json content type", func(t *testing.T) {
		w := post(productsApi(), "/products", "text/plain", `{"name":"pen","price":1.5}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(t, "invalid content type for request: text/plain", pd.Detail)
	})

	t.Run("will return 400 for malformed json", func(t *testing.T) {
		w := post(productsApi(), "/products", "application/json", `{"name":`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		pd := decodeProblem(t, w)
		assert.Contains(t, pd.Detail, "request body is not valid json")
	})

	t.Run("will return 413 for a body over the limit", func(t *testing.T) {
		w := post(productsApi(MaxRequestBytes(8)), "/products", "application/json", `{"name":"pen","price":1.5}`)
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(t, "request body exceeds 8 bytes", pd.Detail)
	})

	t.Run("will read the whole body without a limit", func(t *testing.T) {
		w := post(productsApi(MaxRequestBytes(math.MaxInt64)), "/products", "application/json", `{"name":"pen","price":1.5}`)
		require.Equal(t, http.StatusOK, w.Code)

		var p Product
		err := json.NewDecoder(w.Body).Decode(&p)
		require.NoError(t, err)
		assert.Equal(t, Product{Name: "pen", Price: 1.5}, p)
	})

	t.Run("will keep the default limit for a non positive limit", func(t *testing.T) {
		for _, n := range []int64{0, -1} {
			w := post(productsApi(MaxRequestBytes(n)), "/products", "application/json", `{"name":"pen","price":1.5}`)
			assert.Equal(t, http.StatusOK, w.Code)

			w = post(productsApi(MaxRequestBytes(n)), "/products", "application/json", `{"name":"pen","price":"`+strings.Repeat("9", defaultMaxRequestBytes)+`"}`)
			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		}
	})

	t.Run("will accept a body exactly at the limit", func(t *testing.T) {
		body := `{"name":"pen","price":1.5}`
		w := post(productsApi(MaxRequestBytes(int64(len(body)))), "/products", "application/json", body)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("will not expose why a schema failed to compile", func(t *testing.T) {
		rb, err := validation.RequestBodyFromValue(mustParse(t, `{
			"required": true,
			"content": {"application/json": {"schema": {"type": 5}}}
		}`))
		require.NoError(t, err)

		v := validation.NewValidator(nil, validation.WithTracer(validation.NopTracer))
		err = v.ValidateRequestBody(context.Background(), mustParse(t, `{"a":1}`), rb)

		w := httptest.NewRecorder()
		NewProblemDetailsErrorHandler().OnError(context.Background(), w, UnprocessableEntityError{Cause: err})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(t, "[object Object] could not be validated: schema is invalid", pd.Detail)
		assert.NotContains(t, pd.Detail, "file://")
	})

	t.Run("will not validate if skipped", func(t *testing.T) {
		w := post(productsApi(SkipValidation()), "/products", "application/json", `{}`)
		require.Equal(t, http.StatusOK, w.Code)

		var p Product
		err := json.NewDecoder(w.Body).Decode(&p)
		require.NoError(t, err)
		assert.Equal(t, Product{}, p)
	})

	t.Run("will still reject an empty body if validation is skipped", func(t *testing.T) {
		w := post(productsApi(SkipValidation()), "/products", "application/json", "")
		require.Equal(t, http.StatusBadRequest, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(t, "request body is not valid json: request body is empty", pd.Detail)
	})
}

func TestRequestBodyValidation_ComponentReference(t *testing.T) {
	refApi := func(ref string, opts ...ApiOption) *Api {
		opts = append(
			opts,
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(echoProduct()),
				RequestBodySpec(JsonBodyRef(ref)),
			),
		)
		return NewApi("Products", "v1.0.0", opts...)
	}

	t.Run("will validate against a registered component", func(t *testing.T) {
		api := refApi("Product", Component("Product", mustParse(t, productSchema)))

		w := post(api, "/products", "application/json", `{"name":"pen","price":1.5}`)
		assert.Equal(t, http.StatusOK, w.Code)

		w = post(api, "/products", "application/json", `{"description":"blue"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(
			t,
			"[object Object] should have required property 'name', [object Object] should have required property 'price'",
			pd.Detail,
		)
	})

	t.Run("will resolve a component registered after the operation", func(t *testing.T) {
		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(echoProduct()),
				RequestBodySpec(JsonBodyRef("Product")),
			),
			Component("Product", mustParse(t, productSchema)),
		)

		w := post(api, "/products", "application/json", `{}`)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("will validate against a component reflected from a type", func(t *testing.T) {
		api := refApi("Product", ComponentOf[Product]("Product"))

		w := post(api, "/products", "application/json", `{"name":"pen","price":1.5}`)
		assert.Equal(t, http.StatusOK, w.Code)

		w = post(api, "/products", "application/json", `{"name":"pen"}`)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		pd := decodeProblem(t, w)
		assert.Equal(t, "[object Object] should have required property 'price'", pd.Detail)
	})

	t.Run("will return 500 for an unregistered component", func(t *testing.T) {
		w := post(refApi("Missing"), "/products", "application/json", `{"name":"pen","price":1.5}`)
		require.Equal(t, http.StatusInternalServerError, w.Code)

		pd := decodeProblem(t, w)
		assert.Empty(t, pd.Detail)
	})

	t.Run("will report a missing body before resolving the reference", func(t *testing.T) {
		w := post(refApi("Missing"), "/products", "application/json", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRequestBodyValidation_ValidatorOptions(t *testing.T) {
	t.Run("will trace every stage of validation", func(t *testing.T) {
		var mu sync.Mutex
		var events []string
		tracer := validation.TracerFunc(func(ctx context.Context, event string, payload any) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
		})

		api := NewApi(
			"Products",
			"v1.0.0",
			Operation(
				http.MethodPost,
				BasePath("/products"),
				HandleJson(echoProduct()),
			),
			ValidatorOptions(validation.WithTracer(tracer)),
		)

		w := post(api, "/products", "application/json", `{"name":"pen","price":1.5}`)
		require.Equal(t, http.StatusOK, w.Code)

		assert.Equal(
			t,
			[]string{
				validation.EventSchemaResolved,
				validation.EventSchemaConverted,
				validation.EventValidationResult,
			},
			events,
		)
	})
}

func TestJsonBodyRef(t *testing.T) {
	t.Run("will require an application/json body", func(t *testing.T) {
		rb := JsonBodyRef("Product")

		require.NotNil(t, rb.Required)
		assert.True(t, *rb.Required)
		require.Contains(t, rb.Content, "application/json")

		schema := rb.Content["application/json"].Schema
		require.NotNil(t, schema)
		require.NotNil(t, schema.SchemaReference)
		assert.Equal(t, "#/components/schemas/Product", schema.SchemaReference.Ref)
	})
}
