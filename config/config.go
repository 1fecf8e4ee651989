// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config provides composable readers for configuration values.
//
// A [Reader] produces a [Value] which may or may not be set. Readers are
// combined with [Or], [Default] and [Map] so a setting can come from an
// environment variable, a file, or a hard coded fallback without the
// consumer knowing which.
package config

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrValueNotSet is returned by [Must] when a required value is missing.
var ErrValueNotSet = errors.New("config: value not set")

// Value is an optional configuration value.
type Value[T any] struct {
	v   T
	set bool
}

// ValueOf returns a set [Value] holding v.
func ValueOf[T any](v T) Value[T] {
	return Value[T]{v: v, set: true}
}

// Value returns the held value and whether it was set.
func (v Value[T]) Value() (T, bool) {
	return v.v, v.set
}

// Reader reads a configuration value.
type Reader[T any] interface {
	Read(context.Context) (Value[T], error)
}

// ReaderFunc is a function which implements [Reader].
type ReaderFunc[T any] func(context.Context) (Value[T], error)

// Read implements the [Reader] interface.
func (f ReaderFunc[T]) Read(ctx context.Context) (Value[T], error) {
	return f(ctx)
}

// ReaderOf returns a [Reader] which always returns v.
func ReaderOf[T any](v T) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		return ValueOf(v), nil
	})
}

// EmptyReader returns a [Reader] which never has a value.
func EmptyReader[T any]() Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		return Value[T]{}, nil
	})
}

// Env reads the environment variable name. The value is unset when the
// variable is not present.
func Env(name string) Reader[string] {
	return ReaderFunc[string](func(ctx context.Context) (Value[string], error) {
		s, ok := os.LookupEnv(name)
		if !ok {
			return Value[string]{}, nil
		}
		return ValueOf(s), nil
	})
}

// Or returns the first set value from readers.
func Or[T any](readers ...Reader[T]) Reader[T] {
	return ReaderFunc[T](func(ctx context.Context) (Value[T], error) {
		for _, r := range readers {
			val, err := r.Read(ctx)
			if err != nil {
				return Value[T]{}, err
			}
			if _, ok := val.Value(); ok {
				return val, nil
			}
		}
		return Value[T]{}, nil
	})
}

// Default returns def whenever r has no value.
func Default[T any](def T, r Reader[T]) Reader[T] {
	return Or(r, ReaderOf(def))
}

// Map transforms the value of r with f. Unset values are not passed to f.
func Map[A, B any](r Reader[A], f func(context.Context, A) (B, error)) Reader[B] {
	return ReaderFunc[B](func(ctx context.Context) (Value[B], error) {
		val, err := r.Read(ctx)
		if err != nil {
			return Value[B]{}, err
		}

		a, ok := val.Value()
		if !ok {
			return Value[B]{}, nil
		}

		b, err := f(ctx, a)
		if err != nil {
			return Value[B]{}, err
		}
		return ValueOf(b), nil
	})
}

// Read returns the value of r. An unset value is returned as the zero value.
func Read[T any](ctx context.Context, r Reader[T]) (T, error) {
	val, err := r.Read(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	v, _ := val.Value()
	return v, nil
}

// Must returns the value of r and panics if it cannot be read or is unset.
func Must[T any](ctx context.Context, r Reader[T]) T {
	val, err := r.Read(ctx)
	if err != nil {
		panic(err)
	}

	v, ok := val.Value()
	if !ok {
		panic(ErrValueNotSet)
	}
	return v
}

// MustOr returns the value of r, or def if it is unset. It panics if r fails.
func MustOr[T any](ctx context.Context, def T, r Reader[T]) T {
	return Must(ctx, Default(def, r))
}

// IntFromString parses the value of r as a base 10 int.
func IntFromString(r Reader[string]) Reader[int] {
	return Map(r, func(ctx context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	})
}

// Int64FromString parses the value of r as a base 10 int64.
func Int64FromString(r Reader[string]) Reader[int64] {
	return Map(r, func(ctx context.Context, s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	})
}

// Float64FromString parses the value of r as a float64.
func Float64FromString(r Reader[string]) Reader[float64] {
	return Map(r, func(ctx context.Context, s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// BoolFromString parses the value of r with [strconv.ParseBool].
func BoolFromString(r Reader[string]) Reader[bool] {
	return Map(r, func(ctx context.Context, s string) (bool, error) {
		return strconv.ParseBool(s)
	})
}

// DurationFromString parses the value of r with [time.ParseDuration].
func DurationFromString(r Reader[string]) Reader[time.Duration] {
	return Map(r, func(ctx context.Context, s string) (time.Duration, error) {
		return time.ParseDuration(s)
	})
}

// Int64FromBytes decodes 8 bytes from the value of r using order.
func Int64FromBytes[R io.Reader](order binary.ByteOrder, r Reader[R]) Reader[int64] {
	return Map(r, func(ctx context.Context, rd R) (int64, error) {
		var n int64
		err := binary.Read(rd, order, &n)
		return n, err
	})
}

// UnmarshalJSON decodes the value of r as JSON into a T.
func UnmarshalJSON[T any, R io.Reader](r Reader[R]) Reader[T] {
	return Map(r, func(ctx context.Context, rd R) (T, error) {
		var v T
		err := json.NewDecoder(rd).Decode(&v)
		if err != nil {
			return v, fmt.Errorf("config: decoding json: %w", err)
		}
		return v, nil
	})
}

// UnmarshalYAML decodes the value of r as YAML into a T.
func UnmarshalYAML[T any, R io.Reader](r Reader[R]) Reader[T] {
	return Map(r, func(ctx context.Context, rd R) (T, error) {
		var v T
		err := yaml.NewDecoder(rd).Decode(&v)
		if err != nil {
			return v, fmt.Errorf("config: decoding yaml: %w", err)
		}
		return v, nil
	})
}

// File opens the file named by the value of name. The caller owns closing it.
func File(name Reader[string]) Reader[*os.File] {
	return Map(name, func(ctx context.Context, path string) (*os.File, error) {
		return os.Open(path)
	})
}
