package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// hunterPathPrefix marks the endpoints that run scraping or model calls inline
const hunterPathPrefix = "/api/v1/hunter/"

// TimeoutConfig puts a deadline on the request context. Handlers pass that
// context down, so a run stops at its next fetch, model call or store call.
func TimeoutConfig(timeout time.Duration, skipper middleware.Skipper) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if skipper == nil {
		skipper = middleware.DefaultSkipper
	}
	return middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
		Skipper: skipper,
		Timeout: timeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "request timed out")
			}
			return err
		},
	})
}

// SelectiveTimeoutConfig applies hunterTimeout to the hunter endpoints and defaultTimeout elsewhere
func SelectiveTimeoutConfig(defaultTimeout, hunterTimeout time.Duration) echo.MiddlewareFunc {
	isHunter := func(c echo.Context) bool {
		return strings.HasPrefix(c.Request().URL.Path, hunterPathPrefix)
	}

	short := TimeoutConfig(defaultTimeout, isHunter)
	long := TimeoutConfig(hunterTimeout, func(c echo.Context) bool { return !isHunter(c) })

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return short(long(next))
	}
}
