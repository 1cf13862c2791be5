package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	txhandler "3tcapital/taxcore/internal/adapters/http/transaction"
	"3tcapital/taxcore/internal/infrastructure/config"
	"3tcapital/taxcore/internal/infrastructure/http/middleware"
)

// Server is the taxcore HTTP gateway.
type Server struct {
	log        *slog.Logger
	httpServer *http.Server
	auth       *middleware.JWTAuthenticator
	cfg        config.HTTPSettings
}

// Options wires the server. TransactionHandler may be nil, in which case only
// /health is served.
type Options struct {
	Config             config.AppConfig
	Logger             *slog.Logger
	HealthHandler      http.Handler
	TransactionHandler *txhandler.Handler
}

// New builds the router and the underlying http.Server.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	auth, err := middleware.NewJWTAuthenticator(opts.Config.Auth, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("configure authentication: %w", err)
	}

	httpCfg := opts.Config.HTTP

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(chimw.Recoverer)
	r.Use(auth.Middleware)

	r.Method(http.MethodGet, "/health", opts.HealthHandler)

	if h := opts.TransactionHandler; h != nil {
		r.Route("/api/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(httpCfg.RequestTimeout))
				r.Post("/transactions", h.Create)
				r.Post("/transactions/preview", h.Preview)
				r.Post("/transactions/adjustment-request", h.AdjustmentRequest)
				r.Post("/companies/{companyCode}/transactions/{transactionCode}/adjust", h.Adjust)
			})
			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(httpCfg.BatchTimeout))
				r.Post("/transactions/batch", h.CreateBatch)
			})
		})
	}

	srv := &http.Server{
		Addr:         httpCfg.Address(),
		Handler:      r,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}

	return &Server{log: opts.Logger, httpServer: srv, auth: auth, cfg: httpCfg}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP server", "timeout", s.cfg.ShutdownTimeout)
		shutdownCtx := context.Background()
		if s.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, s.cfg.ShutdownTimeout)
			defer cancel()
		}
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops background JWKS refreshes.
func (s *Server) Close() {
	s.auth.Close()
}
