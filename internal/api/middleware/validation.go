package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

// MaxBodyBytes is the largest request body accepted on write endpoints
const MaxBodyBytes = 1024 * 1024

// RequestIDKey is the echo context key holding the request ID
const RequestIDKey = "request_id"

// RequestValidation assigns a request ID and rejects oversized bodies
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = utils.GenerateRequestID()
			}
			c.Set(RequestIDKey, requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			switch c.Request().Method {
			case http.MethodPost, http.MethodPatch, http.MethodPut:
				if c.Request().ContentLength > MaxBodyBytes {
					return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
						Error:     "request_too_large",
						Message:   "Request body too large",
						RequestID: requestID,
						Timestamp: time.Now(),
					})
				}
			}

			return next(c)
		}
	}
}
