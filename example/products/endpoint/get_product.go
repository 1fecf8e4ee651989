// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/rampart/rest"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ProductNotFoundError is returned when no product has the requested id.
type ProductNotFoundError struct {
	rest.ProblemDetail
	ProductID string `json:"product_id"`
}

type getProductHandler struct {
	tracer trace.Tracer
	store  *ProductStore
}

// GetProduct registers GET /products/{id}.
func GetProduct(ctx context.Context, store *ProductStore) rest.ApiOption {
	h := &getProductHandler{
		tracer: otel.Tracer(instrumentationName),
		store:  store,
	}

	return rest.Operation(
		http.MethodGet,
		rest.MustParsePath("/products/{id}"),
		rest.ProduceJson(h),
		rest.OnError(problems()),
	)
}

func (h *getProductHandler) Produce(ctx context.Context) (*Product, error) {
	_, span := h.tracer.Start(ctx, "getProductHandler.Produce")
	defer span.End()

	id := rest.PathParamValue(ctx, "id")
	p, ok := h.store.Get(id)
	if !ok {
		return nil, ProductNotFoundError{
			ProblemDetail: rest.ProblemDetail{
				Type:   "https://products.example.com/problems/product-not-found",
				Title:  "Product Not Found",
				Status: http.StatusNotFound,
				Detail: "no product has id " + id,
			},
			ProductID: id,
		}
	}
	return &p, nil
}
