// Package server provides the HTTP API for kubun.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kubun/internal/app"
	"github.com/hyperjump/kubun/internal/watcher"
	"github.com/hyperjump/kubun/pkg/utils"
)

// WatchService lets the API list, add and remove inbox directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
	Stats() watcher.Stats
}

// Server is the HTTP server for the kubun API.
type Server struct {
	c          *app.Components
	watch      WatchService
	configPath string
	configMu   sync.Mutex
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server over the shared components. watch may be nil when no
// inbox is running; configPath may be empty when watch changes should not persist.
func NewServer(c *app.Components, watch WatchService, configPath string, logger *zap.Logger) *Server {
	return &Server{
		c:          c,
		watch:      watch,
		configPath: configPath,
		logger:     utils.OrNop(logger),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if secs := s.c.Config.Server.RequestTimeoutSeconds; secs > 0 {
		r.Use(middleware.Timeout(time.Duration(secs) * time.Second))
	}
	r.Use(middleware.Compress(5, "application/json", "text/plain"))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Post("/extract", s.handleExtract)
		r.Post("/extract/methods", s.handleExtractMethods)
		r.Post("/extract/sections", s.handleExtractSections)

		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/text", s.handleGetDocumentText)
		r.Delete("/documents/{id}", s.handleDeleteDocument)

		r.Get("/search", s.handleSearchGet)
		r.Post("/search", s.handleSearch)

		r.Get("/export.xlsx", s.handleExport)

		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
		r.Get("/watch/stats", s.handleWatchStats)
	})
	return r
}

// requestLogger logs each request through zap instead of the chi stdlib logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	cfg := s.c.Config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
