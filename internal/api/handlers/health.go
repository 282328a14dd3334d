package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"lead-hunter/internal/config"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/models"
)

// Version is reported by the health endpoints
var Version = "1.0.0"

var startTime = time.Now()

// Pinger is a dependency that can be probed over the network
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker is a dependency that knows whether it is usable
type HealthChecker interface {
	IsHealthy() bool
}

// ReadinessDeps are the components inspected by the readiness probe.
// Store and Tasks gate readiness; the rest only degrade it.
type ReadinessDeps struct {
	Store   Pinger
	Tasks   HealthChecker
	LLM     HealthChecker
	Fetcher HealthChecker
	Locker  Pinger
}

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	}

	return c.JSON(http.StatusOK, response)
}

// ReadinessHandler reports whether the service can take hunter requests
func ReadinessHandler(deps ReadinessDeps, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{"api": "ok"}
		ready, degraded := true, false

		if deps.Store != nil {
			if err := deps.Store.Ping(ctx); err != nil {
				checks["store"] = "error: " + err.Error()
				ready = false
			} else {
				checks["store"] = "ok"
			}
		}

		if deps.Tasks != nil {
			if deps.Tasks.IsHealthy() {
				checks["tasks"] = "ok"
			} else {
				checks["tasks"] = "stopped"
				ready = false
			}
		}

		if deps.LLM != nil {
			if deps.LLM.IsHealthy() {
				checks["llm"] = "ok"
			} else {
				checks["llm"] = "unconfigured"
				degraded = true
			}
		}

		if deps.Fetcher != nil {
			if deps.Fetcher.IsHealthy() {
				checks["fetcher"] = "ok"
			} else {
				checks["fetcher"] = "unavailable"
				degraded = true
			}
		}

		if deps.Locker != nil {
			if err := deps.Locker.Ping(ctx); err != nil {
				checks["run_lock"] = "error: " + err.Error()
				degraded = true
			} else {
				checks["run_lock"] = "ok"
			}
		}

		response := models.HealthResponse{
			Status:    "ready",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    checks,
		}

		status := http.StatusOK
		switch {
		case !ready:
			response.Status = "not_ready"
			status = http.StatusServiceUnavailable
			logger.Warn("Readiness check failed", map[string]interface{}{
				"request_id": requestIDFrom(c),
				"checks":     checks,
			})
		case degraded:
			response.Status = "degraded"
		}

		return c.JSON(status, response)
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	response := models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
	}

	return c.JSON(http.StatusOK, response)
}

// StatusHandler reports the selected backends without probing them
func StatusHandler(cfg *config.Config, llmModel func() string) echo.HandlerFunc {
	return func(c echo.Context) error {
		response := models.HealthResponse{
			Status:    "operational",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks: map[string]string{
				"scraper_engine": cfg.Scraper.Engine,
				"store_driver":   cfg.Store.Driver,
				"llm_provider":   cfg.LLM.Provider,
				"llm_model":      llmModel(),
				"request_delay":  cfg.Hunter.RequestDelay.String(),
			},
		}

		return c.JSON(http.StatusOK, response)
	}
}
