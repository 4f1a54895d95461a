package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/canopy-network/course-indexer/internal/api/handler"
	"github.com/canopy-network/course-indexer/internal/query"
	"github.com/canopy-network/course-indexer/pkg/db"
	"go.uber.org/zap"
)

// Config configures the read API.
type Config struct {
	Addr       string
	AdminToken string
	MaxFirst   int
}

// Server wraps the HTTP server for the read API
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer creates a new API server instance. queue may be nil.
func NewServer(store db.Store, queue handler.QueueInspector, logger *zap.Logger, cfg Config) *Server {
	engine := query.New(store, cfg.MaxFirst)
	h := handler.NewHandler(store, engine, queue, logger, cfg.AdminToken)
	router := h.NewRouter()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: server,
		logger:     logger,
	}
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting HTTP API server", zap.String("addr", s.httpServer.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
