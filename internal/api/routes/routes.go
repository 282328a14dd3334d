package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"lead-hunter/internal/api/handlers"
	"lead-hunter/internal/api/middleware"
	"lead-hunter/internal/background"
	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/store"
)

// Dependencies are the components the HTTP surface is wired to
type Dependencies struct {
	Config  *config.Config
	Store   store.LeadStore
	Hunter  background.Operations
	Tasks   background.TaskManager
	LLM     LLMStatus
	Fetcher handlers.HealthChecker
	Locker  store.RunLocker
	Logger  logging.Logger
}

// LLMStatus is the slice of the model manager the routes report on
type LLMStatus interface {
	IsHealthy() bool
	ModelName() string
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	cfg := deps.Config
	logger := deps.Logger

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.CORSConfig(cfg.Server.AllowedOrigins))
	// Hunter endpoints fetch pages and call the model inline, so they get the long budget
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, cfg.Server.HunterTimeout))

	readiness := handlers.ReadinessDeps{
		Store:   deps.Store,
		Tasks:   deps.Tasks,
		LLM:     deps.LLM,
		Fetcher: deps.Fetcher,
	}
	// only networked lockers can be probed
	if pinger, ok := deps.Locker.(handlers.Pinger); ok {
		readiness.Locker = pinger
	}

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(readiness, logger))
		health.GET("/live", handlers.LivenessHandler)
	}

	// Status route
	e.GET("/status", handlers.StatusHandler(cfg, deps.LLM.ModelName))

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		hunter := v1.Group("/hunter")
		{
			hunter.POST("/discover", handlers.DiscoverHandler(deps.Hunter, deps.Tasks, logger))
			hunter.POST("/analyze", handlers.AnalyzeHandler(deps.Hunter, deps.Tasks, logger))
			hunter.POST("/backfill", handlers.BackfillHandler(deps.Hunter, deps.Tasks, logger))
		}

		v1.GET("/tasks/:id", handlers.TaskStatusHandler(deps.Tasks, logger))

		leads := v1.Group("/leads")
		{
			leads.GET("", handlers.ListLeadsHandler(deps.Store, logger))
			leads.POST("", handlers.AddLeadHandler(deps.Store, logger))
			leads.GET("/:id", handlers.GetLeadHandler(deps.Store, logger))
			leads.PATCH("/:id", handlers.UpdateLeadHandler(deps.Store, logger))
			leads.DELETE("/:id", handlers.DeleteLeadHandler(deps.Store, logger))
			leads.GET("/:id/comments", handlers.ListCommentsHandler(deps.Store, logger))
			leads.POST("/:id/comments", handlers.AddCommentHandler(deps.Store, logger))
		}

		comments := v1.Group("/comments")
		{
			comments.PATCH("/:id", handlers.UpdateCommentHandler(deps.Store, logger))
			comments.DELETE("/:id", handlers.DeleteCommentHandler(deps.Store, logger))
		}
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "Lead Hunter",
			"version": handlers.Version,
			"status":  "running",
		})
	})
}
