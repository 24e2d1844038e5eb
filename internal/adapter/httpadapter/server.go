package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is the profile and history persistence the API reads and writes.
type Store interface {
	Profile(ctx context.Context, userID string) (domain.Profile, error)
	SaveProfile(ctx context.Context, p domain.Profile) error
	RecordAdvisories(ctx context.Context, advisories []domain.Advisory) error
	History(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error)
}

// ReadinessChecks is ready only when every checker is ready. The first
// failure is reported.
type ReadinessChecks []sharedobs.ReadinessChecker

func (rc ReadinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range rc {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Server exposes health, readiness, metrics and the advisory API.
type Server struct {
	httpServer *http.Server
	store      Store
	provider   domain.AirQualityProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 API routes. A nil provider disables the live conditions and forecast
// routes, which then answer 503.
func NewServer(addr string, ready sharedobs.ReadinessChecker, store Store, provider domain.AirQualityProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:    store,
		provider: provider,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/classify", s.handleClassify)
	mux.HandleFunc("GET /v1/users/{id}/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /v1/users/{id}/profile", s.handlePutProfile)
	mux.HandleFunc("GET /v1/users/{id}/aqi/current", s.handleCurrent)
	mux.HandleFunc("GET /v1/users/{id}/aqi/history", s.handleHistory)
	mux.HandleFunc("GET /v1/users/{id}/aqi/trend", s.handleTrend)
	mux.HandleFunc("GET /v1/users/{id}/aqi/forecast", s.handleForecast)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
