package http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strconv"
	"time"

	"trustbond-dashboard-ui/internal/config"
	"trustbond-dashboard-ui/internal/connectors/trustbond"
	"trustbond-dashboard-ui/internal/session"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	api        *trustbond.Client
	sessions   *session.Store
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config) (*Server, error) {
	api := trustbond.NewClient(cfg.APIBaseURL, cfg.APITimeout)

	sessions, err := session.NewSQLiteStore(cfg.SessionDBPath, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardPageHandler(sessions))
	mux.HandleFunc("/login", loginPageHandler)
	mux.HandleFunc("/officer", officerPageHandler(sessions))
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/api/v1/metrics/app", appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/api/v1/session/login", sessionLoginHandler(api, sessions))
	mux.HandleFunc("/api/v1/session/logout", sessionLogoutHandler(sessions))
	mux.HandleFunc("/api/v1/session", sessionInfoHandler(sessions))
	mux.HandleFunc("/api/v1/bootstrap/exists", bootstrapExistsHandler(api))
	mux.HandleFunc("/api/v1/bootstrap", bootstrapHandler(api, sessions))
	mux.HandleFunc("/api/v1/dashboard/summary", dashboardSummaryHandler(cfg.DefaultPageSize, api, sessions))
	mux.HandleFunc("/api/v1/reports", reportListHandler(cfg.DefaultPageSize, api, sessions))
	mux.HandleFunc("/api/v1/reports/", reportDetailHandler(api, sessions))
	mux.HandleFunc("/api/v1/officer/assignments", officerAssignmentsHandler(api, sessions))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(api, sessions))

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      loggingMiddleware(observabilityMiddleware(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{httpServer: httpServer, api: api, sessions: sessions}, nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.sessions != nil {
		_ = s.sessions.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ready",
	})
}

func loggingMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)
		fmt.Printf("%s %s %s %s\n", r.Method, r.URL.Path, strconv.Itoa(rec.status), time.Since(start))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
