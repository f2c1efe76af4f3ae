package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/richardpark-msft/rawdump/internal/utils"
)

type Options struct {
	// Slogger is the base logger for requests. Defaults to slog.Default().
	Slogger *slog.Logger

	// AddressFile, if set, is a file the listening address is written to once the server
	// is ready. Useful when listening on port 0.
	AddressFile string

	// ShutdownTimeout is how long in-flight requests get to finish once the server
	// is stopped. Defaults to 5 seconds.
	ShutdownTimeout time.Duration
}

// Server is a read-only HTTP API over a directory of captures.
type Server struct {
	dir     string
	options Options
	router  *mux.Router
}

func New(dir string, options *Options) *Server {
	if dir == "" {
		panic("dir is not set")
	}

	if options == nil {
		options = &Options{}
	}

	s := &Server{
		dir:     dir,
		options: *options,
		router:  mux.NewRouter(),
	}

	if s.options.Slogger == nil {
		s.options.Slogger = slog.Default()
	}

	if s.options.ShutdownTimeout == 0 {
		s.options.ShutdownTimeout = 5 * time.Second
	}

	s.router.Use(s.prepareLogger, logRequests)

	s.router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	s.router.HandleFunc("/captures", s.listCaptures).Methods(http.MethodGet)
	s.router.HandleFunc("/captures/{name}/records", s.captureRecords).Methods(http.MethodGet)
	s.router.HandleFunc("/captures/{name}/stats", s.captureStats).Methods(http.MethodGet)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe listens on addr and serves until ctx is cancelled. If tlsConfig is
// non-nil the listener uses TLS.
func (s *Server) ListenAndServe(ctx context.Context, addr string, tlsConfig *tls.Config) error {
	listener, err := net.Listen("tcp", addr)

	if err != nil {
		return err
	}

	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}

	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	address := listener.Addr().String()

	if s.options.AddressFile != "" {
		if err := os.WriteFile(s.options.AddressFile, []byte(address), 0600); err != nil {
			utils.CloseWithLogging("listener", listener)
			return fmt.Errorf("failed to write address file: %w", err)
		}
	}

	s.options.Slogger.Info("Serving captures", "dir", s.dir, "address", address)

	done := utils.RunGoroutine(ctx, func(ctx context.Context) error {
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	s.options.Slogger.Info("Cancellation received, shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-done
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
