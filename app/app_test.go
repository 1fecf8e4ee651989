// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/z5labs/rampart/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind(t *testing.T) {
	t.Run("will build the second value from the first", func(t *testing.T) {
		builder := Bind(
			Build(func(ctx context.Context) (string, error) {
				return "products.yaml", nil
			}),
			func(path string) Builder[int] {
				return Build(func(ctx context.Context) (int, error) {
					return len(path), nil
				})
			},
		)

		n, err := builder.Build(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 13, n)
	})

	t.Run("will not call the binder if the first build fails", func(t *testing.T) {
		buildErr := errors.New("missing spec")
		called := false
		builder := Bind(
			Build(func(ctx context.Context) (string, error) {
				return "", buildErr
			}),
			func(path string) Builder[int] {
				called = true
				return nil
			},
		)

		_, err := builder.Build(context.Background())
		assert.ErrorIs(t, err, buildErr)
		assert.False(t, called)
	})
}

func TestRun(t *testing.T) {
	t.Run("will run the built runtime", func(t *testing.T) {
		ran := false
		err := Run(context.Background(), Build(func(ctx context.Context) (RuntimeFunc, error) {
			return func(ctx context.Context) error {
				ran = true
				return nil
			}, nil
		}))

		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("will return a BuildError if the builder fails", func(t *testing.T) {
		buildErr := errors.New("missing spec")
		err := Run(context.Background(), Build(func(ctx context.Context) (RuntimeFunc, error) {
			return nil, buildErr
		}))

		var berr BuildError
		require.True(t, errors.As(err, &berr))
		assert.ErrorIs(t, err, buildErr)
	})

	t.Run("will recover a builder reading an unset required value", func(t *testing.T) {
		err := Run(context.Background(), Build(func(ctx context.Context) (RuntimeFunc, error) {
			path := config.Must(ctx, config.Env("RAMPART_TEST_UNSET_SPEC_PATH"))
			return func(ctx context.Context) error {
				t.Log(path)
				return nil
			}, nil
		}))

		var berr BuildError
		require.True(t, errors.As(err, &berr))
		assert.Error(t, berr.Cause)
	})

	t.Run("will return the runtime error", func(t *testing.T) {
		runErr := errors.New("address in use")
		err := Run(context.Background(), Build(func(ctx context.Context) (RuntimeFunc, error) {
			return func(ctx context.Context) error {
				return runErr
			}, nil
		}))

		assert.Equal(t, runErr, err)
	})
}
