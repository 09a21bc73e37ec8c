package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Prefix         string
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   fiber.Handler
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group(cfg.Prefix)
	authenticated := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireActive()}

	authGroup := api.Group("/auth")
	loginHandlers := []fiber.Handler{cfg.Auth.Login}
	if cfg.LoginLimiter != nil {
		loginHandlers = append([]fiber.Handler{cfg.LoginLimiter}, loginHandlers...)
	}
	authGroup.Post("/login", loginHandlers...)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Get("/me", append(authenticated, cfg.Auth.Me)...)

	users := api.Group("/users", authenticated...)
	users.Get("/", cfg.Users.List)
	users.Get("/me", cfg.Auth.Me)
	users.Get("/:id", cfg.Users.Get)
	users.Post("/", auth.RequireSuperuser(), cfg.Users.Create)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", auth.RequireSuperuser(), cfg.Users.Delete)
}
