package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"lead-hunter/internal/logging"
)

// RequestLogger writes one structured line per request through logger
func RequestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := map[string]interface{}{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if v.Error != nil {
				fields["error"] = v.Error.Error()
				logger.Error("Request failed", fields)
				return nil
			}
			logger.Info("Request completed", fields)
			return nil
		},
	})
}
