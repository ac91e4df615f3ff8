// Package ops serves health, worker status and Prometheus metrics for
// operators. It exposes no ordering operations.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contactless-ordering/internal/logger"
	"contactless-ordering/internal/metrics"
	"contactless-ordering/internal/models"
)

const shutdownTimeout = 5 * time.Second

// Handler handles the ops HTTP endpoints
type Handler struct {
	service string
	board   *models.WorkerBoard
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewHandler creates a new ops handler
func NewHandler(service string, board *models.WorkerBoard, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		board:   board,
		metrics: m,
		logger:  log,
	}
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.withLogging)

	r.Get("/healthz", h.HealthCheck)
	r.Get("/workers/status", h.GetWorkerStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
	return r
}

// HealthCheck handles GET /healthz. It reports unhealthy until every
// supervised worker is online.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthy := h.board.AllOnline()

	response := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   h.service,
		"healthy":   healthy,
	}
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		response["status"] = "unhealthy"
	}
	h.writeJSON(w, status, response)
}

// GetWorkerStatus handles GET /workers/status
func (h *Handler) GetWorkerStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.board.List())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "", "Failed to encode response", err)
	}
}

// withLogging logs every request with its status and duration
func (h *Handler) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debug("request_completed", requestID, "Ops request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status_code", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))
	})
}

// Serve runs an HTTP server on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("ops_server_started", "", "Ops server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("ops_server_stopped", "", "Ops server stopped")
	return nil
}
