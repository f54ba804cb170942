// Package api provides the HTTP API server and handlers for the blog.
package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Sarcastic-Soul/blog-app/internal/ratelimit"
	"github.com/Sarcastic-Soul/blog-app/internal/realtime"
)

// Options holds HTTP-layer settings.
type Options struct {
	// AdminTeamID names the team whose members may author and moderate.
	AdminTeamID string
	// CORSOrigins lists browser origins allowed to call the API with
	// credentials. Also used to check websocket origins.
	CORSOrigins []string
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
	// SessionTTL bounds the session cookie lifetime.
	SessionTTL        time.Duration
	CountersPerMinute int
	LoginsPerMinute   int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services       *Services
	infra          Infrastructure
	opts           Options
	router         *chi.Mux
	api            huma.API
	counterLimiter *ratelimit.KeyedRateLimiter
	loginLimiter   *ratelimit.KeyedRateLimiter
	logger         *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, infra Infrastructure, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		services:       services,
		infra:          infra,
		opts:           opts,
		router:         router,
		counterLimiter: newLimiter(opts.CountersPerMinute, defaultCountersPerMinute),
		loginLimiter:   newLimiter(opts.LoginsPerMinute, defaultLoginsPerMinute),
		logger:         logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Quack Blog API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
		"cookie": {
			Type: "apiKey",
			In:   "cookie",
			Name: SessionCookie,
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Shutdown stops the rate limiter sweepers.
func (s *Server) Shutdown() {
	s.counterLimiter.Stop()
	s.loginLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(s.authMiddleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerPostRoutes()
	s.registerCounterRoutes()
	s.registerCommentRoutes()
	s.registerAccountRoutes()
	s.registerMediaRoutes()

	if s.infra.Hub != nil {
		ws := realtime.NewHandler(s.infra.Hub, s.viewer, s.checkOrigin, s.logger)
		s.router.Get("/api/v1/realtime", ws.ServeHTTP)
	}
}

// viewer identifies a realtime connection for event filtering.
func (s *Server) viewer(r *http.Request) (userID string, isAdmin bool) {
	id := optionalIdentity(r.Context())
	if id == nil {
		return "", false
	}
	return id.User.ID, s.isAdmin(r.Context())
}

// checkOrigin accepts websocket upgrades from non-browser clients, the
// server's own host and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	return slices.Contains(s.opts.CORSOrigins, "*") || slices.Contains(s.opts.CORSOrigins, origin)
}
