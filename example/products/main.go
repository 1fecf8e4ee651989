// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/z5labs/rampart/app"
	products "github.com/z5labs/rampart/example/products/app"
	"github.com/z5labs/rampart/example/products/endpoint"
	rhttp "github.com/z5labs/rampart/http"
)

func main() {
	srv := rhttp.NewServer(
		rhttp.ListenerFromEnv(),
		rhttp.ReadTimeout(rhttp.ReadTimeoutFromEnv()),
		rhttp.WriteTimeout(rhttp.WriteTimeoutFromEnv()),
		rhttp.ShutdownTimeout(rhttp.ShutdownTimeoutFromEnv()),
	)

	builder := app.WithHooks(func(ctx context.Context, h *app.HookRegistry) (rhttp.App, error) {
		store := endpoint.NewProductStore()
		err := products.SaveOnStop(ctx, h, store)
		if err != nil {
			return rhttp.App{}, err
		}

		api := app.Build(func(ctx context.Context) (http.Handler, error) {
			return products.BuildApiWith(ctx, store)
		})
		return rhttp.Build(srv, api).Build(ctx)
	})

	err := app.Run(context.Background(), builder)
	app.LogError(slog.NewJSONHandler(os.Stderr, nil), err)
	if err != nil {
		os.Exit(1)
	}
}
