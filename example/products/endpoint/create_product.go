// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/z5labs/rampart"
	"github.com/z5labs/rampart/rest"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type createProductHandler struct {
	tracer trace.Tracer
	log    *slog.Logger
	store  *ProductStore
}

// CreateProduct registers POST /products. The body is validated against
// the Product component before the handler runs.
func CreateProduct(ctx context.Context, store *ProductStore) rest.ApiOption {
	h := &createProductHandler{
		tracer: otel.Tracer(instrumentationName),
		log:    rampart.Logger(instrumentationName),
		store:  store,
	}

	return rest.Operation(
		http.MethodPost,
		rest.BasePath("/products"),
		rest.HandleJson(h),
		rest.RequestBodySpec(rest.JsonBodyRef("Product")),
		rest.OnError(problems()),
	)
}

func (h *createProductHandler) Handle(ctx context.Context, req *Product) (*Product, error) {
	spanCtx, span := h.tracer.Start(ctx, "createProductHandler.Handle")
	defer span.End()

	p := h.store.Add(*req)
	span.SetAttributes(attribute.String("product.id", p.ID))
	h.log.InfoContext(spanCtx, "created product", slog.String("id", p.ID), slog.String("name", p.Name))

	return &p, nil
}
