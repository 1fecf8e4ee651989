// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app composes the pieces of a rampart service into a single
// runnable unit.
//
// A service is described by a [Builder] which reads its configuration and
// wires the validating [github.com/z5labs/rampart/rest.Api] into a [Runtime].
// [Run] builds and runs it until the process receives a termination signal.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/z5labs/rampart"

	"github.com/z5labs/sdk-go/try"
)

// Builder constructs a value, typically a [Runtime], from the ambient
// configuration.
type Builder[T any] interface {
	Build(context.Context) (T, error)
}

// BuilderFunc is an adapter to allow the use of ordinary functions
// as [Builder]s.
type BuilderFunc[T any] func(context.Context) (T, error)

// Build implements the [Builder] interface.
func (f BuilderFunc[T]) Build(ctx context.Context) (T, error) {
	return f(ctx)
}

// Build creates a [Builder] from a function.
func Build[T any](f func(context.Context) (T, error)) Builder[T] {
	return BuilderFunc[T](f)
}

// Bind chains two [Builder]s together, feeding the value built by the first
// into binder to obtain the second.
func Bind[A, B any](builder Builder[A], binder func(A) Builder[B]) Builder[B] {
	return BuilderFunc[B](func(ctx context.Context) (B, error) {
		a, err := builder.Build(ctx)
		if err != nil {
			var zero B
			return zero, err
		}
		return binder(a).Build(ctx)
	})
}

// Runtime is a long running component such as an HTTP server.
type Runtime interface {
	Run(context.Context) error
}

// RuntimeFunc is an adapter to allow the use of ordinary functions
// as [Runtime]s.
type RuntimeFunc func(context.Context) error

// Run implements the [Runtime] interface.
func (f RuntimeFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// BuildError is returned by [Run] when the [Builder] fails, including when
// it panics while reading a required configuration value.
type BuildError struct {
	Cause error
}

func (e BuildError) Error() string {
	return fmt.Sprintf("failed to build application: %v", e.Cause)
}

// Unwrap returns the underlying build failure.
func (e BuildError) Unwrap() error {
	return e.Cause
}

// Run builds the [Runtime] and runs it until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run[T Runtime](ctx context.Context, builder Builder[T]) error {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := build(sigCtx, builder)
	if err != nil {
		return BuildError{Cause: err}
	}

	log := rampart.Logger("github.com/z5labs/rampart/app")
	log.InfoContext(sigCtx, "running application")

	err = rt.Run(sigCtx)
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "application stopped")
	return nil
}

func build[T any](ctx context.Context, builder Builder[T]) (t T, err error) {
	defer try.Recover(&err)

	return builder.Build(ctx)
}

// LogError logs err using h. It does nothing if err is nil.
func LogError(h slog.Handler, err error) {
	if err == nil {
		return
	}

	log := slog.New(h)
	log.Error("application error", slog.Any("error", err))
}
