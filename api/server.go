package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/blog-cms-backend/config"
	"github.com/rpupo63/blog-cms-backend/database"
	"github.com/rpupo63/blog-cms-backend/errs"
	"github.com/rpupo63/blog-cms-backend/services"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

// NewServer builds the HTTP server from configuration. JWT_SECRET must be
// set.
func NewServer(db database.Database, c map[string]string) (Server, error) {
	if config.GetString(c, "JWT_SECRET", "") == "" {
		return Server{}, errs.NewEnvironmentVariableError("JWT_SECRET")
	}

	// Ensure correct port is set
	port := config.GetString(c, "PORT", "8080")
	address := fmt.Sprintf("0.0.0.0:%s", port) // Bind to 0.0.0.0 for external access

	// Capture startup time
	startupTime := time.Now()

	router := newRouter(db, withConfig(c), withStartupTime(startupTime), withMailer(services.NewMailer(c)))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(c, "READ_TIMEOUT_SECONDS", 180*time.Second),
		WriteTimeout: config.GetDuration(c, "WRITE_TIMEOUT_SECONDS", 180*time.Second),
		IdleTimeout:  config.GetDuration(c, "IDLE_TIMEOUT_SECONDS", 180*time.Second),
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      map[string]string
	startupTime time.Time
	mailer      services.Mailer
	clock       clock.Clock
}

func withConfig(c map[string]string) func(*router) {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func withMailer(m services.Mailer) func(*router) {
	return func(r *router) {
		r.mailer = m
	}
}

func withClock(clk clock.Clock) func(*router) {
	return func(r *router) {
		r.clock = clk
	}
}

func newRouter(db database.Database, opts ...func(*router)) *chi.Mux {
	router := router{clock: clock.New()}
	for _, opt := range opts {
		opt(&router)
	}
	if router.config == nil {
		router.config = map[string]string{}
	}
	if router.mailer == nil {
		router.mailer = services.NewMailer(router.config)
	}
	if router.startupTime.IsZero() {
		router.startupTime = router.clock.Now()
	}

	sessions := newSessionManager(
		config.GetString(router.config, "JWT_SECRET", ""),
		time.Duration(config.GetInt(router.config, "JWT_TTL_MINUTES", 60*24*7))*time.Minute,
		router.clock,
	)
	guard := newPermissionGuard(db.RoleRepo(), db.UserRepo())
	authMiddleware := newAuthMiddleware(sessions)
	metrics := newHTTPMetrics()

	// Initialize all handlers
	handlers := initializeHandlers(db, handlerDeps{
		guard:        guard,
		sessions:     sessions,
		mailer:       router.mailer,
		clock:        router.clock,
		baseURL:      config.GetString(router.config, "BASE_URL", "http://localhost:8080"),
		secureCookie: config.GetBool(router.config, "SECURE_COOKIES", false),
	})

	perMinute := config.GetInt(router.config, "SUBSCRIBE_RATE_PER_MINUTE", 5)
	limits := rateLimits{
		auth:      newIPRateLimiter(config.GetInt(router.config, "AUTH_RATE_PER_MINUTE", 10), router.clock.Now),
		subscribe: newIPRateLimiter(perMinute, router.clock.Now),
		comment:   newIPRateLimiter(perMinute, router.clock.Now),
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(metrics.middleware)
	chiRouter.Use(HTTPLoggingMiddleware(log.With().Str("component", "http").Logger()))

	// Apply CORS middleware
	acceptedOrigins := config.GetStrings(router.config, "ACCEPTED_ORIGINS", []string{"http://localhost:3000"})
	chiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   acceptedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	chiRouter.Use(authMiddleware.loadSession)

	chiRouter.Get("/healthz", healthHandler(router.startupTime, router.clock))
	chiRouter.Handle("/metrics", metrics.handler())

	// Setup all route types
	setupAPIRoutes(chiRouter, handlers, guard, limits)

	return chiRouter
}

func healthHandler(startupTime time.Time, clk clock.Clock) http.HandlerFunc {
	responder := NewResponder(log.Logger)
	return func(w http.ResponseWriter, r *http.Request) {
		responder.WriteData(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"startedAt": startupTime.UTC(),
			"uptime":    clk.Now().Sub(startupTime).Round(time.Second).String(),
		}, "Service is healthy")
	}
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
