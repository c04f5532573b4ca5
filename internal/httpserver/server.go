// Package httpserver wires the engine into the service's HTTP surface:
// the password-reset API, the unauthorized page, health, and an
// identity-aware reverse proxy that puts the session guard in front of
// the portal frontend.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	portalguard "github.com/eduportal/portalguard"
	"github.com/eduportal/portalguard/middleware"
)

// Config configures the HTTP front.
type Config struct {
	// Addr is the listen address, e.g. :8443.
	Addr string
	// UpstreamURL is the portal frontend origin to proxy behind the
	// session guard. Empty disables proxying; only the API routes are
	// served then.
	UpstreamURL string
	// ShutdownTimeout bounds graceful shutdown. Zero means 10s.
	ShutdownTimeout time.Duration
}

// Server owns the router and the http.Server lifecycle.
type Server struct {
	engine  *portalguard.Engine
	logger  zerolog.Logger
	httpSrv *http.Server

	shutdownTimeout time.Duration
}

func New(cfg Config, engine *portalguard.Engine, logger zerolog.Logger) (*Server, error) {
	if engine == nil {
		return nil, errors.New("httpserver: engine required")
	}
	if cfg.Addr == "" {
		return nil, errors.New("httpserver: listen address required")
	}

	s := &Server{
		engine:          engine,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 10 * time.Second
	}

	handler, err := s.buildRouter(cfg.UpstreamURL)
	if err != nil {
		return nil, err
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) buildRouter(upstreamURL string) (http.Handler, error) {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(s.logger))

	// The reset API is reachable without a session; a locked-out user is
	// exactly who calls it.
	api := r.PathPrefix("/api/password-reset").Subrouter()
	api.HandleFunc("/request", s.handleResetRequest).Methods(http.MethodPost)
	api.HandleFunc("/validate", s.handleResetValidate).Methods(http.MethodPost)
	api.HandleFunc("/confirm", s.handleResetConfirm).Methods(http.MethodPost)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc(s.engine.UnauthorizedPath(), s.handleUnauthorized).Methods(http.MethodGet)

	if upstreamURL != "" {
		target, err := url.Parse(upstreamURL)
		if err != nil {
			return nil, fmt.Errorf("httpserver: invalid upstream URL: %w", err)
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			s.logger.Error().Err(err).Msg("upstream proxy error")
			w.WriteHeader(http.StatusBadGateway)
		}
		r.PathPrefix("/").Handler(middleware.SessionGuard(s.engine)(proxy))
	}

	return r, nil
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpSrv.Addr).Msg("listening")
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpserver: shutdown: %w", err)
	}
	return <-errCh
}
