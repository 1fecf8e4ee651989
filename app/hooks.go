// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"time"
)

// HookFunc releases a resource once the [Runtime] has stopped, for example
// closing a watched API description or flushing telemetry.
type HookFunc func(context.Context) error

// HookRegistry collects post-run hooks while a [Builder] runs.
type HookRegistry struct {
	hooks   []HookFunc
	timeout time.Duration
}

// OnPostRun registers hook. Hooks run in registration order and every hook
// runs even if the runtime or an earlier hook failed.
func (r *HookRegistry) OnPostRun(hook HookFunc) {
	r.hooks = append(r.hooks, hook)
}

// Timeout bounds the time given to all hooks combined. Zero means no limit.
func (r *HookRegistry) Timeout(d time.Duration) {
	r.timeout = d
}

type hookRuntime struct {
	inner   Runtime
	hooks   []HookFunc
	timeout time.Duration
}

// Run runs the inner runtime followed by every hook, joining their errors.
func (rt hookRuntime) Run(ctx context.Context) error {
	runtimeErr := rt.inner.Run(ctx)

	// ctx is usually cancelled by the shutdown signal by now
	hookCtx := context.WithoutCancel(ctx)
	if rt.timeout > 0 {
		var cancel context.CancelFunc
		hookCtx, cancel = context.WithTimeout(hookCtx, rt.timeout)
		defer cancel()
	}

	var hookErrs error
	for _, hook := range rt.hooks {
		err := hook(hookCtx)
		if err != nil {
			hookErrs = errors.Join(hookErrs, err)
		}
	}

	return errors.Join(runtimeErr, hookErrs)
}

// WithHooks wraps f so it may register cleanup hooks while building its
// [Runtime].
//
// Example:
//
//	builder := app.WithHooks(func(ctx context.Context, h *app.HookRegistry) (http.App, error) {
//	    store := endpoint.NewProductStore()
//	    h.OnPostRun(func(ctx context.Context) error {
//	        return store.Save("products.json")
//	    })
//	    return http.Build(srv, buildApi(store)).Build(ctx)
//	})
func WithHooks[T Runtime](f func(context.Context, *HookRegistry) (T, error)) Builder[Runtime] {
	return BuilderFunc[Runtime](func(ctx context.Context) (Runtime, error) {
		registry := &HookRegistry{}

		inner, err := f(ctx, registry)
		if err != nil {
			return nil, err
		}

		return hookRuntime{
			inner:   inner,
			hooks:   registry.hooks,
			timeout: registry.timeout,
		}, nil
	})
}
