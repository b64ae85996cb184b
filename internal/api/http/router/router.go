// Package router wires the HTTP API routes and middleware.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/breathesense-server/internal/api/http/handler"
	"github.com/dtroode/breathesense-server/internal/api/http/middleware"
	"github.com/dtroode/breathesense-server/internal/api/http/response"
	"github.com/dtroode/breathesense-server/internal/logger"
	"github.com/dtroode/breathesense-server/internal/model"
)

// Deps holds what the router needs to build the API.
type Deps struct {
	AccountService handler.AccountService
	AdminService   handler.AdminService
	Store          handler.Pinger
	TokenManager   model.TokenManager
	ContextManager model.ContextManager
	RateLimiter    *middleware.RateLimiter
	Metrics        middleware.RequestRecorder
	MetricsHandler http.Handler
	Logger         *logger.Logger
}

// Router represents the HTTP router of the account API.
type Router struct {
	deps Deps
}

// New creates new HTTP Router instance.
func New(deps Deps) *Router {
	return &Router{deps: deps}
}

// Register builds the handler tree.
//
// Middleware order: Logging, Recovery, Metrics, SecurityHeaders.
// Signup and login are additionally rate limited per client address.
func (rt *Router) Register() http.Handler {
	d := rt.deps

	authenticate := middleware.NewAuthenticate(d.TokenManager, d.ContextManager, d.Logger)
	authHandler := handler.NewAuth(d.AccountService, d.ContextManager, d.Logger)
	adminHandler := handler.NewAdmin(d.AdminService, d.Logger)
	healthHandler := handler.NewHealth(d.Store, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.NewLogging(d.Logger).Handle)
	r.Use(middleware.NewRecovery(d.Logger))
	r.Use(middleware.NewMetrics(d.Metrics))
	r.Use(middleware.NewSecurityHeaders())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusNotFound, response.ErrorBody{Error: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, response.ErrorBody{Error: "method not allowed"})
	})

	r.Get("/health", healthHandler.Check)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.RateLimiter.Handle)
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
		})
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authenticate.Guard(model.RolePatient, model.RoleAdmin))
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile", authHandler.UpdateProfile)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticate.Guard(model.RoleAdmin))
		r.Get("/users", adminHandler.ListUsers)
		r.Put("/users", adminHandler.UpdateUser)
	})

	return r
}
