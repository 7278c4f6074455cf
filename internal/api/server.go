package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the HTTP submission and polling surface. It is a thin producer
// and consumer of the pipeline: it inserts pending records, enqueues job ids
// and reads whatever the driver persisted.
type Server struct {
	handlers   *Handlers
	logger     *zap.Logger
	listenAddr string
	httpServer *http.Server
}

// NewServer creates a new API server
func NewServer(handlers *Handlers, logger *zap.Logger, listenAddr string) *Server {
	return &Server{
		handlers:   handlers,
		logger:     logger,
		listenAddr: listenAddr,
	}
}

// Routes assembles the router
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(s.requestLogger)

	mux.Get("/health", s.handlers.Health)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", s.handlers.CreateReport)
		r.Get("/reports", s.handlers.ListReports)
		r.Get("/reports/{id}", s.handlers.GetReport)
		r.Get("/reports/{id}/events", s.handlers.StreamReportEvents)

		r.Post("/campaigns", s.handlers.CreateCampaign)
		r.Get("/campaigns", s.handlers.ListCampaigns)
		r.Get("/campaigns/{id}", s.handlers.GetCampaign)
		r.Delete("/campaigns/{id}", s.handlers.DeleteCampaign)

		r.Post("/seed", s.handlers.Seed)
	})

	return mux
}

// Start begins serving requests
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.listenAddr,
		Handler:     s.Routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	s.logger.Info("API server starting", zap.String("address", s.listenAddr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs each request with its status and duration
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.Debug("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
