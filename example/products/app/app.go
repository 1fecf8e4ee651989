// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	_ "embed"
	"time"

	rapp "github.com/z5labs/rampart/app"
	"github.com/z5labs/rampart/config"
	"github.com/z5labs/rampart/example/products/endpoint"
	"github.com/z5labs/rampart/rest"
	"github.com/z5labs/rampart/rest/validation"
)

//go:embed product.json
var productSchema []byte

// BuildApi assembles the products API around an empty store.
func BuildApi(ctx context.Context) (*rest.Api, error) {
	return BuildApiWith(ctx, endpoint.NewProductStore())
}

// BuildApiWith assembles the products API around store. The title and
// version may be overridden with PRODUCTS_API_TITLE and PRODUCTS_API_VERSION.
func BuildApiWith(ctx context.Context, store *endpoint.ProductStore) (*rest.Api, error) {
	title, err := config.Read(ctx, config.Default("Products", config.Env("PRODUCTS_API_TITLE")))
	if err != nil {
		return nil, err
	}
	version, err := config.Read(ctx, config.Default("v1.0.0", config.Env("PRODUCTS_API_VERSION")))
	if err != nil {
		return nil, err
	}

	schema, err := validation.ParseJSON(productSchema)
	if err != nil {
		return nil, err
	}

	api := rest.NewApi(
		title,
		version,
		rest.Component("Product", schema),
		endpoint.CreateProduct(ctx, store),
		endpoint.GetProduct(ctx, store),
		endpoint.ListProducts(ctx, store),
	)
	return api, nil
}

// SaveOnStop registers a hook which saves store to PRODUCTS_SNAPSHOT_FILE
// once the server has stopped. Nothing is registered if it is unset.
func SaveOnStop(ctx context.Context, h *rapp.HookRegistry, store *endpoint.ProductStore) error {
	name, err := config.Read(ctx, config.Default("", config.Env("PRODUCTS_SNAPSHOT_FILE")))
	if err != nil || name == "" {
		return err
	}

	h.Timeout(5 * time.Second)
	h.OnPostRun(func(ctx context.Context) error {
		return store.Save(name)
	})
	return nil
}
