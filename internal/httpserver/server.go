package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"estate-hub/internal/auth"
	"estate-hub/internal/cache"
	"estate-hub/internal/kvstore"
	"estate-hub/internal/leads"
	"estate-hub/internal/metrics"
	"estate-hub/internal/notify"
	"estate-hub/internal/store"
	"estate-hub/internal/wa"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookie = "estate_session"

// Dependencies exposes core services to the handlers.
type Dependencies struct {
	Store    *store.Store
	Auth     *auth.Service
	Leads    *leads.Service
	Notify   *notify.Client
	WhatsApp *wa.Client   // optional
	Cache    *cache.Redis // optional
	KV       kvstore.Store
	CacheTTL time.Duration
}

// Server wraps an http.Server with the public browse API and the
// session-gated admin API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
	basePath   string
}

// New creates a new HTTP server listening on addr.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies, basePath string) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		deps:     deps,
		basePath: normaliseBasePath(basePath),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/listings/{collection}", server.handleListListings)
	mux.HandleFunc("GET /api/listings/{collection}/{id}", server.handleGetListing)
	mux.HandleFunc("POST /api/appointments", server.handleCreateAppointment)
	mux.HandleFunc("GET /api/language", server.handleGetLanguage)
	mux.HandleFunc("PUT /api/language", server.handleSetLanguage)

	mux.HandleFunc("POST /admin/login", server.handleLogin)
	mux.HandleFunc("POST /admin/credentials/reset", server.handleResetPassword)
	mux.HandleFunc("GET /admin/session", server.handleSession)
	mux.HandleFunc("POST /admin/logout", server.requireAuth(server.handleLogout))
	mux.HandleFunc("POST /admin/listings/{collection}", server.requireAuth(server.handleAddListing))
	mux.HandleFunc("PUT /admin/listings/{collection}/{id}", server.requireAuth(server.handleUpdateListing))
	mux.HandleFunc("DELETE /admin/listings/{collection}/{id}", server.requireAuth(server.handleDeleteListing))
	mux.HandleFunc("GET /admin/appointments", server.requireAuth(server.handleListAppointments))
	mux.HandleFunc("PUT /admin/appointments/{id}/status", server.requireAuth(server.handleUpdateAppointmentStatus))
	mux.HandleFunc("DELETE /admin/appointments/{id}", server.requireAuth(server.handleDeleteAppointment))
	mux.HandleFunc("PUT /admin/credentials/password", server.requireAuth(server.handleChangePassword))
	mux.HandleFunc("PUT /admin/credentials/profile", server.requireAuth(server.handleUpdateProfile))

	handler := mountWithBasePath(server.basePath, mux)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if server.basePath != "" {
		server.logger.Info("http server configured with base path", "base_path", server.basePath)
	}

	return server
}

// Handler exposes the configured root handler (used in tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

// requireAuth gates a handler on a valid session cookie.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || !s.deps.Auth.Verify(r.Context(), cookie.Value) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func mountWithBasePath(basePath string, handler http.Handler) http.Handler {
	if basePath == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, basePath) {
			http.NotFound(w, r)
			return
		}
		if len(r.URL.Path) > len(basePath) && r.URL.Path[len(basePath)] != '/' {
			http.NotFound(w, r)
			return
		}
		trimmed := strings.TrimPrefix(r.URL.Path, basePath)
		if trimmed == "" {
			trimmed = "/"
		}
		r.URL.Path = trimmed
		if r.URL.RawPath != "" {
			rawTrimmed := strings.TrimPrefix(r.URL.RawPath, basePath)
			if rawTrimmed == "" {
				rawTrimmed = "/"
			}
			r.URL.RawPath = rawTrimmed
		}
		handler.ServeHTTP(w, r)
	})
}

func normaliseBasePath(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return strings.TrimSuffix(base, "/")
}
