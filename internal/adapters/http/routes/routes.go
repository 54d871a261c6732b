package routes

import (
	"time"

	"setoran-pa/internal/adapters/http/handlers"
	"setoran-pa/internal/adapters/http/middleware"
	"setoran-pa/internal/adapters/persistence/repositories"
	"setoran-pa/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Dependencies are the wired services the gateway serves
type Dependencies struct {
	AppMode  string
	Store    repositories.TokenStore
	Session  *services.SessionService
	Deposits *services.DepositService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.AppMode)
	authHandler := handlers.NewAuthHandler(deps.Session, deps.Deposits)
	depositHandler := handlers.NewDepositHandler(deps.Deposits)
	selectionHandler := handlers.NewSelectionHandler(deps.Deposits)
	stateHandler := handlers.NewStateHandler(deps.Deposits)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")
	apiV1.Get("/", healthHandler.APIInfo)

	setupAuthRoutes(apiV1, authHandler)
	setupDepositRoutes(apiV1, middleware.RequireSession(deps.Session), depositHandler, selectionHandler)
	setupStateRoutes(apiV1, stateHandler)
}

func setupAuthRoutes(router fiber.Router, h *handlers.AuthHandler) {
	auth := router.Group("/auth", middleware.NoCacheHeaders())
	auth.Post("/login", middleware.AuthRateLimiter(), h.Login)
	auth.Post("/logout", h.Logout)
	auth.Post("/refresh", middleware.AuthRateLimiter(), h.Refresh)
	auth.Get("/me", h.Me)
	auth.Get("/state", h.State)
	auth.Post("/state/reset", h.ResetState)
}

func setupDepositRoutes(router fiber.Router, requireSession fiber.Handler, deposits *handlers.DepositHandler, selection *handlers.SelectionHandler) {
	// Backend routes run without a session guard so a missing login lands on
	// the stream as an error state.
	router.Get("/roster", middleware.PrivateCacheHeaders(30*time.Second), deposits.Roster)

	students := router.Group("/students/:nim")
	students.Get("/", middleware.PrivateCacheHeaders(30*time.Second), deposits.Student)
	students.Post("/deposits", middleware.StrictRateLimiter(), deposits.Submit)
	students.Delete("/deposits/:depositId", middleware.StrictRateLimiter(), deposits.Cancel)

	students.Get("/selection", requireSession, selection.List)
	students.Post("/selection", requireSession, selection.Add)
	students.Delete("/selection", requireSession, selection.Clear)
	students.Delete("/selection/:componentId", requireSession, selection.Remove)
	students.Post("/selection/submit", requireSession, middleware.StrictRateLimiter(), selection.Submit)
}

func setupStateRoutes(router fiber.Router, h *handlers.StateHandler) {
	state := router.Group("/state", middleware.NoCacheHeaders())
	state.Get("/:stream", h.Get)
	state.Post("/:stream/reset", h.Reset)
	state.Get("/:stream/watch", h.Watch)
}
