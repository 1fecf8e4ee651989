// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/z5labs/rampart/rest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBody(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCmd(t *testing.T) {
	t.Run("will report every body in the order given", func(t *testing.T) {
		dir := t.TempDir()
		valid := writeBody(t, dir, "valid.json", `{"name":"pen","price":2}`)
		invalid := writeBody(t, dir, "invalid.json", `{"price":"free"}`)

		out, err := execute(
			t,
			"validate",
			"--spec", "testdata/products.yaml",
			"--path", "/products",
			"--workers", "2",
			valid, invalid,
		)

		assert.ErrorIs(t, err, errBodiesInvalid)
		assert.Equal(
			t,
			"ok   "+valid+"\n"+
				"FAIL "+invalid+": [object Object] should have required property 'name', [object Object].price should be number\n",
			out,
		)
	})

	t.Run("will succeed if every body is valid", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "valid.json", `{"name":"pen","price":2,"tags":["blue"]}`)

		out, err := execute(t, "validate", "-s", "testdata/products.yaml", "-m", "put", "-p", "/products/{id}", body)

		require.NoError(t, err)
		assert.Equal(t, "ok   "+body+"\n", out)
	})

	t.Run("will treat an empty file as a missing body", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "empty.json", "\n")

		out, err := execute(t, "validate", "--spec", "testdata/products.yaml", "--path", "/products", body)

		assert.ErrorIs(t, err, errBodiesInvalid)
		assert.Equal(t, "FAIL "+body+": Request body is required\n", out)
	})

	t.Run("will report malformed json", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "broken.json", `{"name":`)

		out, err := execute(t, "validate", "--spec", "testdata/products.yaml", "--path", "/products", body)

		assert.ErrorIs(t, err, errBodiesInvalid)
		assert.Contains(t, out, "body is not valid json")
	})

	t.Run("will accept any body if the operation has none", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "any.json", `[1, 2, 3]`)

		out, err := execute(t, "validate", "--spec", "testdata/products.yaml", "--method", "GET", "--path", "/products", body)

		require.NoError(t, err)
		assert.Equal(t, "ok   "+body+"\n", out)
	})

	t.Run("will fail for unknown operations", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "valid.json", `{}`)

		_, err := execute(t, "validate", "--spec", "testdata/products.yaml", "--path", "/orders", body)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, errBodiesInvalid)
	})

	t.Run("will normalize the path template", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "valid.json", `{"name":"pen","price":2}`)

		out, err := execute(t, "validate", "--spec", "testdata/products.yaml", "--path", "/products/", body)

		require.NoError(t, err)
		assert.Equal(t, "ok   "+body+"\n", out)
	})

	t.Run("will reject invalid path templates", func(t *testing.T) {
		_, err := execute(t, "validate", "--spec", "testdata/products.yaml", "--path", "/files/{name}.json", "body.json")
		assert.ErrorIs(t, err, rest.ErrInvalidPathTemplate)
	})

	t.Run("will require the spec flag", func(t *testing.T) {
		_, err := execute(t, "validate", "--path", "/products", "body.json")
		assert.Error(t, err)
	})

	t.Run("will require at least one body", func(t *testing.T) {
		_, err := execute(t, "validate", "--spec", "testdata/products.yaml", "--path", "/products")
		assert.Error(t, err)
	})
}

func TestWatch(t *testing.T) {
	t.Run("will run again after a watched file changes", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "body.json", `{}`)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		runs := make(chan struct{}, 10)
		done := make(chan error, 1)
		go func() {
			done <- watch(ctx, slog.New(slog.DiscardHandler), []string{body}, 10*time.Millisecond, func(context.Context) {
				runs <- struct{}{}
			})
		}()

		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatal("initial run did not happen")
		}

		writeBody(t, dir, "body.json", `{"name":"pen"}`)

		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatal("change did not trigger a run")
		}

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("watch did not stop after cancel")
		}
	})

	t.Run("will ignore other files in the same directory", func(t *testing.T) {
		dir := t.TempDir()
		body := writeBody(t, dir, "body.json", `{}`)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		runs := make(chan struct{}, 10)
		done := make(chan error, 1)
		go func() {
			done <- watch(ctx, slog.New(slog.DiscardHandler), []string{body}, 10*time.Millisecond, func(context.Context) {
				runs <- struct{}{}
			})
		}()
		<-runs

		writeBody(t, dir, "other.json", `{}`)

		select {
		case <-runs:
			t.Fatal("unrelated file triggered a run")
		case <-time.After(200 * time.Millisecond):
		}

		cancel()
		assert.NoError(t, <-done)
	})

	t.Run("will return an error if a directory can not be watched", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing", "body.json")

		err := watch(context.Background(), slog.New(slog.DiscardHandler), []string{missing}, time.Millisecond, func(context.Context) {})
		assert.Error(t, err)
	})
}
