// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package validation

import (
	"context"
	"log/slog"
)

// Tracer receives intermediate state of a validation, such as the resolved
// and converted schemas. It exists for debugging and has no effect on results.
type Tracer interface {
	Trace(ctx context.Context, event string, payload any)
}

// TracerFunc is an adapter to allow the use of ordinary functions as [Tracer]s.
type TracerFunc func(ctx context.Context, event string, payload any)

// Trace implements the [Tracer] interface.
func (f TracerFunc) Trace(ctx context.Context, event string, payload any) {
	f(ctx, event, payload)
}

// NopTracer discards every event.
var NopTracer Tracer = TracerFunc(func(context.Context, string, any) {})

// LogTracer writes events as debug records.
type LogTracer struct {
	log *slog.Logger
}

// NewLogTracer initializes a [LogTracer].
func NewLogTracer(h slog.Handler) *LogTracer {
	return &LogTracer{
		log: slog.New(h),
	}
}

// Trace implements the [Tracer] interface.
func (t *LogTracer) Trace(ctx context.Context, event string, payload any) {
	t.log.DebugContext(ctx, event, slog.Any("payload", payload))
}

// Trace events emitted by [Validator].
const (
	EventSchemaResolved   = "schema.resolved"
	EventSchemaConverted  = "schema.converted"
	EventValidationResult = "validation.result"
)
