// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package endpoint

import (
	"context"
	"net/http"

	"github.com/z5labs/rampart/rest"
)

// ProductList is the response of GET /products.
type ProductList struct {
	Products []Product `json:"products"`
}

type listProductsHandler struct {
	store *ProductStore
}

// ListProducts registers GET /products.
func ListProducts(ctx context.Context, store *ProductStore) rest.ApiOption {
	h := &listProductsHandler{
		store: store,
	}

	return rest.Operation(
		http.MethodGet,
		rest.BasePath("/products"),
		rest.ProduceJson(h),
		rest.OnError(problems()),
	)
}

func (h *listProductsHandler) Produce(ctx context.Context) (*ProductList, error) {
	return &ProductList{Products: h.store.List()}, nil
}
