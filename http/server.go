// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http runs a validating [net/http.Handler], usually a
// [github.com/z5labs/rampart/rest.Api], as an [app.Runtime].
//
// Every setting is a [config.Reader] so it may come from the environment,
// a file or a literal value. The *FromEnv helpers read the conventional
// HTTP_* environment variables.
package http

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/rampart"
	"github.com/z5labs/rampart/app"
	"github.com/z5labs/rampart/config"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TCPListener reads a TCP [net.Listener] bound to Addr.
type TCPListener struct {
	Addr config.Reader[string]
}

// TCPListenerOption configures a [TCPListener].
type TCPListenerOption func(*TCPListener)

// Addr sets the "host:port" the listener binds to.
func Addr(addr config.Reader[string]) TCPListenerOption {
	return func(tcpLn *TCPListener) {
		tcpLn.Addr = addr
	}
}

// AddrFromEnv reads the HTTP_ADDR environment variable.
func AddrFromEnv() config.Reader[string] {
	return config.Env("HTTP_ADDR")
}

// NewTCPListener creates a [TCPListener]. The address defaults to ":8080".
func NewTCPListener(options ...TCPListenerOption) TCPListener {
	tcpLn := TCPListener{
		Addr: config.EmptyReader[string](),
	}

	for _, option := range options {
		option(&tcpLn)
	}

	return tcpLn
}

// Read implements the [config.Reader] interface.
func (tcpLn TCPListener) Read(ctx context.Context) (config.Value[net.Listener], error) {
	addr := config.MustOr(ctx, ":8080", tcpLn.Addr)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return config.Value[net.Listener]{}, err
	}

	return config.ValueOf(ln), nil
}

type tlsListener struct {
	net.Listener
}

// TLSListener wraps the listener read from ln with TLS. If tlsConfig is
// unset the listener is returned unchanged.
func TLSListener(ln config.Reader[net.Listener], tlsConfig config.Reader[*tls.Config]) config.Reader[net.Listener] {
	return config.ReaderFunc[net.Listener](func(ctx context.Context) (config.Value[net.Listener], error) {
		baseLn := config.Must(ctx, ln)

		cfg, err := config.Read(ctx, tlsConfig)
		if err != nil {
			baseLn.Close()
			return config.Value[net.Listener]{}, err
		}
		if cfg == nil {
			return config.ValueOf(baseLn), nil
		}

		return config.ValueOf[net.Listener](tlsListener{
			Listener: tls.NewListener(baseLn, cfg),
		}), nil
	})
}

// TLSConfigFromFiles loads a PEM encoded certificate and key pair. The
// value is unset unless both file names are set.
func TLSConfigFromFiles(certFile, keyFile config.Reader[string]) config.Reader[*tls.Config] {
	return config.ReaderFunc[*tls.Config](func(ctx context.Context) (config.Value[*tls.Config], error) {
		cert, err := config.Read(ctx, certFile)
		if err != nil {
			return config.Value[*tls.Config]{}, err
		}
		key, err := config.Read(ctx, keyFile)
		if err != nil {
			return config.Value[*tls.Config]{}, err
		}
		if cert == "" || key == "" {
			return config.Value[*tls.Config]{}, nil
		}

		pair, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return config.Value[*tls.Config]{}, fmt.Errorf("http: loading tls key pair: %w", err)
		}

		return config.ValueOf(&tls.Config{
			Certificates: []tls.Certificate{pair},
			MinVersion:   tls.VersionTLS12,
		}), nil
	})
}

// TLSConfigFromEnv reads the HTTP_TLS_CERT_FILE and HTTP_TLS_KEY_FILE
// environment variables. See [TLSConfigFromFiles].
func TLSConfigFromEnv() config.Reader[*tls.Config] {
	return TLSConfigFromFiles(config.Env("HTTP_TLS_CERT_FILE"), config.Env("HTTP_TLS_KEY_FILE"))
}

// ListenerFromEnv reads a listener bound to HTTP_ADDR which serves TLS when
// HTTP_TLS_CERT_FILE and HTTP_TLS_KEY_FILE are set.
func ListenerFromEnv() config.Reader[net.Listener] {
	return TLSListener(NewTCPListener(Addr(AddrFromEnv())), TLSConfigFromEnv())
}

// Server holds the settings of the underlying [http.Server].
type Server struct {
	Listener                     config.Reader[net.Listener]
	DisableGeneralOptionsHandler config.Reader[bool]
	ReadTimeout                  config.Reader[time.Duration]
	ReadHeaderTimeout            config.Reader[time.Duration]
	WriteTimeout                 config.Reader[time.Duration]
	IdleTimeout                  config.Reader[time.Duration]
	MaxHeaderBytes               config.Reader[int]
	ShutdownTimeout              config.Reader[time.Duration]
}

// ServerOption configures a [Server].
type ServerOption func(*Server)

// DisableGeneralOptionsHandler stops the server from replying to
// "OPTIONS *" requests itself.
func DisableGeneralOptionsHandler(disable config.Reader[bool]) ServerOption {
	return func(srv *Server) {
		srv.DisableGeneralOptionsHandler = disable
	}
}

// DisableGeneralOptionsHandlerFromEnv reads HTTP_DISABLE_GENERAL_OPTIONS_HANDLER.
func DisableGeneralOptionsHandlerFromEnv() config.Reader[bool] {
	return config.BoolFromString(config.Env("HTTP_DISABLE_GENERAL_OPTIONS_HANDLER"))
}

// ReadTimeout bounds reading an entire request, body included.
// The default is 5 seconds.
func ReadTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(srv *Server) {
		srv.ReadTimeout = d
	}
}

// ReadTimeoutFromEnv reads HTTP_READ_TIMEOUT.
func ReadTimeoutFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("HTTP_READ_TIMEOUT"))
}

// ReadHeaderTimeout bounds reading request headers. The default is 2 seconds.
func ReadHeaderTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(srv *Server) {
		srv.ReadHeaderTimeout = d
	}
}

// ReadHeaderTimeoutFromEnv reads HTTP_READ_HEADER_TIMEOUT.
func ReadHeaderTimeoutFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("HTTP_READ_HEADER_TIMEOUT"))
}

// WriteTimeout bounds writing a response. The default is 10 seconds.
func WriteTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(srv *Server) {
		srv.WriteTimeout = d
	}
}

// WriteTimeoutFromEnv reads HTTP_WRITE_TIMEOUT.
func WriteTimeoutFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("HTTP_WRITE_TIMEOUT"))
}

// IdleTimeout bounds waiting for the next request on a keep-alive
// connection. The default is 120 seconds.
func IdleTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(srv *Server) {
		srv.IdleTimeout = d
	}
}

// IdleTimeoutFromEnv reads HTTP_IDLE_TIMEOUT.
func IdleTimeoutFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("HTTP_IDLE_TIMEOUT"))
}

// MaxHeaderBytes limits the size of request headers. The default is 1 MiB.
func MaxHeaderBytes(n config.Reader[int]) ServerOption {
	return func(srv *Server) {
		srv.MaxHeaderBytes = n
	}
}

// MaxHeaderBytesFromEnv reads HTTP_MAX_HEADER_BYTES.
func MaxHeaderBytesFromEnv() config.Reader[int] {
	return config.IntFromString(config.Env("HTTP_MAX_HEADER_BYTES"))
}

// ShutdownTimeout bounds the graceful shutdown of in flight requests.
// The default is 10 seconds.
func ShutdownTimeout(d config.Reader[time.Duration]) ServerOption {
	return func(srv *Server) {
		srv.ShutdownTimeout = d
	}
}

// ShutdownTimeoutFromEnv reads HTTP_SHUTDOWN_TIMEOUT.
func ShutdownTimeoutFromEnv() config.Reader[time.Duration] {
	return config.DurationFromString(config.Env("HTTP_SHUTDOWN_TIMEOUT"))
}

// NewServer creates a [Server] serving on listener.
func NewServer(listener config.Reader[net.Listener], options ...ServerOption) Server {
	srv := Server{
		Listener:                     listener,
		DisableGeneralOptionsHandler: config.EmptyReader[bool](),
		ReadTimeout:                  config.EmptyReader[time.Duration](),
		ReadHeaderTimeout:            config.EmptyReader[time.Duration](),
		WriteTimeout:                 config.EmptyReader[time.Duration](),
		IdleTimeout:                  config.EmptyReader[time.Duration](),
		MaxHeaderBytes:               config.EmptyReader[int](),
		ShutdownTimeout:              config.EmptyReader[time.Duration](),
	}

	for _, option := range options {
		option(&srv)
	}

	return srv
}

// App is a built [Server] ready to run.
type App struct {
	ls              net.Listener
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// Addr returns the address the server listens on.
func (a App) Addr() net.Addr {
	return a.ls.Addr()
}

// URL returns the base URL clients can reach the server at. Unspecified
// addresses are reported as localhost.
func (a App) URL() string {
	scheme := "http"
	if _, ok := a.ls.(tlsListener); ok {
		scheme = "https"
	}

	host, port, err := net.SplitHostPort(a.ls.Addr().String())
	if err != nil {
		return scheme + "://" + a.ls.Addr().String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}

// Run serves requests until ctx is cancelled and then shuts the server
// down gracefully.
func (a App) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		a.log.InfoContext(ctx, "serving http", slog.String("url", a.URL()))
		return a.srv.Serve(a.ls)
	})

	p.Go(func(ctx context.Context) error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()

		a.log.InfoContext(shutdownCtx, "shutting down http server")
		return a.srv.Shutdown(shutdownCtx)
	})

	err := p.Wait()
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Build returns an [app.Builder] which serves the handler built by b with
// the settings of srv. Unset settings take the defaults documented on
// their options.
func Build(srv Server, b app.Builder[http.Handler]) app.Builder[App] {
	return app.Bind(b, func(h http.Handler) app.Builder[App] {
		return app.BuilderFunc[App](func(ctx context.Context) (App, error) {
			ln := config.Must(ctx, srv.Listener)

			httpServer := &http.Server{
				Handler:                      otelhttp.NewHandler(h, "rampart"),
				DisableGeneralOptionsHandler: config.MustOr(ctx, false, srv.DisableGeneralOptionsHandler),
				ReadTimeout:                  config.MustOr(ctx, 5*time.Second, srv.ReadTimeout),
				ReadHeaderTimeout:            config.MustOr(ctx, 2*time.Second, srv.ReadHeaderTimeout),
				WriteTimeout:                 config.MustOr(ctx, 10*time.Second, srv.WriteTimeout),
				IdleTimeout:                  config.MustOr(ctx, 120*time.Second, srv.IdleTimeout),
				MaxHeaderBytes:               config.MustOr(ctx, 1<<20, srv.MaxHeaderBytes),
			}

			return App{
				ls:              ln,
				srv:             httpServer,
				shutdownTimeout: config.MustOr(ctx, 10*time.Second, srv.ShutdownTimeout),
				log:             rampart.Logger("github.com/z5labs/rampart/http"),
			}, nil
		})
	})
}
