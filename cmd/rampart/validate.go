// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/z5labs/rampart/config"
	"github.com/z5labs/rampart/openapi"
	"github.com/z5labs/rampart/rest"
	"github.com/z5labs/rampart/rest/validation"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
)

// errBodiesInvalid is returned when at least one body failed validation.
var errBodiesInvalid = errors.New("one or more request bodies are invalid")

type validateFlags struct {
	spec    string
	method  string
	path    string
	watch   bool
	workers int
}

func newValidateCmd() *cobra.Command {
	var flags validateFlags

	cmd := &cobra.Command{
		Use:   "validate [flags] <body.json>...",
		Short: "Validate request bodies for one operation",
		Long: `Validate every given JSON file against the request body of one operation.

An empty file is treated as a request without a body. The command exits
with status 1 if any body is invalid. With --watch the bodies are checked
again whenever the document or a body file changes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			tmpl, err := rest.ParsePath(flags.path)
			if err != nil {
				return err
			}
			flags.path = tmpl.String()

			if flags.workers <= 0 {
				flags.workers, err = config.Read(
					cmd.Context(),
					config.Default(runtime.GOMAXPROCS(0), config.IntFromString(config.Env("RAMPART_WORKERS"))),
				)
				if err != nil {
					return err
				}
			}

			c := &checker{
				flags: flags,
				out:   cmd.OutOrStdout(),
				log:   log,
			}
			if !flags.watch {
				return c.run(cmd.Context(), args)
			}

			files := append([]string{flags.spec}, args...)
			return watch(cmd.Context(), log, files, defaultDebounce, func(ctx context.Context) {
				err := c.run(ctx, args)
				if err != nil {
					log.ErrorContext(ctx, "validation failed", slog.Any("error", err))
				}
			})
		},
	}

	cmd.Flags().StringVarP(&flags.spec, "spec", "s", "", "OpenAPI document in JSON or YAML")
	cmd.Flags().StringVarP(&flags.method, "method", "m", "POST", "HTTP method of the operation")
	cmd.Flags().StringVarP(&flags.path, "path", "p", "", "path template of the operation, e.g. /products/{id}")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "validate again when any file changes")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "bodies validated concurrently (default $RAMPART_WORKERS or GOMAXPROCS)")
	cmd.MarkFlagRequired("spec")
	cmd.MarkFlagRequired("path")

	return cmd
}

type checker struct {
	flags validateFlags
	out   io.Writer
	log   *slog.Logger
}

type result struct {
	name string
	err  error
}

func (c *checker) run(ctx context.Context, names []string) error {
	doc, err := openapi.LoadFile(c.flags.spec)
	if err != nil {
		return err
	}

	rb, err := doc.RequestBody(c.flags.method, c.flags.path)
	if err != nil {
		return err
	}
	if rb == nil {
		c.log.WarnContext(
			ctx,
			"operation declares no request body",
			slog.String("method", strings.ToUpper(c.flags.method)),
			slog.String("path", c.flags.path),
		)
	}

	v := validation.NewValidator(
		doc.Components(),
		validation.WithTracer(validation.NewLogTracer(c.log.Handler())),
	)

	results := make([]result, len(names))
	p := pool.New().WithMaxGoroutines(c.flags.workers)
	for i, name := range names {
		p.Go(func() {
			results[i] = result{
				name: name,
				err:  validateFile(ctx, v, rb, name),
			}
		})
	}
	p.Wait()

	failed := 0
	for _, res := range results {
		if res.err == nil {
			fmt.Fprintf(c.out, "ok   %s\n", res.name)
			continue
		}
		failed++
		fmt.Fprintf(c.out, "FAIL %s: %s\n", res.name, describe(res.err))
	}
	if failed > 0 {
		return errBodiesInvalid
	}
	return nil
}

func validateFile(ctx context.Context, v *validation.Validator, rb *validation.RequestBody, name string) error {
	b, err := os.ReadFile(name)
	if err != nil {
		return err
	}

	var body validation.Value
	if len(bytes.TrimSpace(b)) > 0 {
		body, err = validation.ParseJSON(b)
		if err != nil {
			return fmt.Errorf("body is not valid json: %w", err)
		}
	}
	return v.ValidateRequestBody(ctx, body, rb)
}

func describe(err error) string {
	var ierr *validation.InvalidRequestBodyError
	if errors.As(err, &ierr) {
		return ierr.Message
	}
	return err.Error()
}
