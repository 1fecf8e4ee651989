// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rampart provides the logging shared by every rampart package.
package rampart

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which emits records through the
// OpenTelemetry log bridge under the given instrumentation name.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the [slog.Handler] behind [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}
