// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health reports whether a service is able to handle requests.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/z5labs/rampart"
)

// Monitor represents anything which can report its current state of health.
type Monitor interface {
	Healthy(context.Context) (bool, error)
}

// MonitorFunc is an adapter to allow the use of ordinary functions as [Monitor]s.
type MonitorFunc func(context.Context) (bool, error)

// Healthy implements the [Monitor] interface.
func (f MonitorFunc) Healthy(ctx context.Context) (bool, error) {
	return f(ctx)
}

// AlwaysHealthy reports healthy without checking anything.
func AlwaysHealthy(context.Context) (bool, error) {
	return true, nil
}

// Binary is a [Monitor] with two states. It is safe for concurrent use and
// the zero value is unhealthy.
type Binary struct {
	healthy atomic.Bool
}

// MarkUnhealthy changes the state to unhealthy.
func (b *Binary) MarkUnhealthy() {
	b.healthy.Store(false)
}

// MarkHealthy changes the state to healthy.
func (b *Binary) MarkHealthy() {
	b.healthy.Store(true)
}

// Healthy implements the [Monitor] interface.
func (b *Binary) Healthy(ctx context.Context) (bool, error) {
	return b.healthy.Load(), nil
}

// Once checks m the first time it is asked and reports that result
// forever after. Use it for conditions which can not change while the
// process runs, such as a malformed API description.
func Once(m Monitor) Monitor {
	var once sync.Once
	var healthy bool
	var err error

	return MonitorFunc(func(ctx context.Context) (bool, error) {
		once.Do(func() {
			healthy, err = m.Healthy(ctx)
		})
		return healthy, err
	})
}

// AndMonitor is healthy only when all of its [Monitor]s are.
// It stops at the first unhealthy monitor or error.
type AndMonitor []Monitor

// And initializes an [AndMonitor].
func And(ms ...Monitor) AndMonitor {
	return AndMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (am AndMonitor) Healthy(ctx context.Context) (bool, error) {
	for _, m := range am {
		healthy, err := m.Healthy(ctx)
		if !healthy || err != nil {
			return healthy, err
		}
	}
	return true, nil
}

// OrMonitor is healthy when any of its [Monitor]s is. Errors are joined
// with [errors.Join] when no monitor is healthy.
type OrMonitor []Monitor

// Or initializes an [OrMonitor].
func Or(ms ...Monitor) OrMonitor {
	return OrMonitor(ms)
}

// Healthy implements the [Monitor] interface.
func (om OrMonitor) Healthy(ctx context.Context) (bool, error) {
	errs := make([]error, 0, len(om))
	for _, m := range om {
		healthy, err := m.Healthy(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if healthy {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}

// Handler responds 200 OK while m is healthy and 503 Service Unavailable
// otherwise. Errors from m are logged and treated as unhealthy.
func Handler(m Monitor) http.Handler {
	log := rampart.Logger("github.com/z5labs/rampart/health")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		healthy, err := m.Healthy(ctx)
		if err != nil {
			log.ErrorContext(ctx, "failed to check health", slog.Any("error", err))
		}
		if !healthy || err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}
