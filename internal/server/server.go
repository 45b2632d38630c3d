package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"github.com/liquid-forge/forge-architecture/internal/app"
)

const (
	DefaultListen   = "127.0.0.1:8080"
	shutdownTimeout = 10 * time.Second
)

type Options struct {
	Listen string
	Source app.SourceOptions
	// ContractTypes extends the contract taxonomy used to validate each
	// snapshot.
	ContractTypes []string
	// Watch reloads the snapshot whenever documents under the local root
	// change.
	Watch bool
}

// Server serves a read-only registry API over HTTP.
type Server struct {
	opts    Options
	holder  *Holder
	metrics *Metrics
	router  http.Handler
}

func New(backend Backend, opts Options) *Server {
	if strings.TrimSpace(opts.Listen) == "" {
		opts.Listen = DefaultListen
	}
	metrics := NewMetrics()
	holder := NewHolder(backend, app.SnapshotRequest{Source: opts.Source, ContractTypes: opts.ContractTypes}, metrics)
	return &Server{
		opts:    opts,
		holder:  holder,
		metrics: metrics,
		router:  NewRouter(holder, backend, metrics),
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Holder() *Holder {
	return s.holder
}

// Run loads the first snapshot, then serves until ctx is done. A failing
// first load aborts startup; later reload failures only get logged.
func (s *Server) Run(ctx context.Context) error {
	if s.opts.Watch && strings.TrimSpace(s.opts.Source.RegistryURL) != "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("watch mode needs a local registry root")
	}
	if err := s.holder.Reload(ctx); err != nil {
		return err
	}
	listener, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to listen on " + s.opts.Listen).
			WithCause(err)
	}
	return s.Serve(ctx, listener)
}

// Serve runs on an existing listener. The snapshot must already be
// loaded.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 2)
	go func() {
		log.Ctx(ctx).Info().Str("addr", listener.Addr().String()).Msg("starting registry server")
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	if s.opts.Watch {
		go func() {
			if err := s.holder.Watch(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Ctx(ctx).Info().Msg("shutting down registry server")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("registry server shutdown error")
	}
	if runErr != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("registry server failed").
			WithCause(runErr)
	}
	return nil
}
