package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"lead-hunter/internal/api/middleware"
	"lead-hunter/internal/api/validation"
	"lead-hunter/internal/background"
	"lead-hunter/internal/logging"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

var validate = validation.New()

// requestIDFrom returns the ID set by the request middleware, or a fresh one
func requestIDFrom(c echo.Context) string {
	if id, ok := c.Get(middleware.RequestIDKey).(string); ok && id != "" {
		return id
	}
	id := utils.GenerateRequestID()
	c.Set(middleware.RequestIDKey, id)
	return id
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestIDFrom(c),
		Timestamp: time.Now(),
	})
}

// bindAndValidate decodes the body into req and runs the struct validators.
// It writes the 400 response itself and returns false when the request is rejected.
func bindAndValidate(c echo.Context, logger logging.Logger, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, respondError(c, logger, utils.NewBadRequestError("Invalid request body"))
	}

	if err := validate.Struct(req); err != nil {
		return false, respondError(c, logger, utils.NewValidationError(err.Error()))
	}

	return true, nil
}

// asCustomError maps domain and infrastructure errors onto the HTTP error model
func asCustomError(err error) *utils.CustomError {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, background.ErrTaskNotFound):
		return utils.NewNotFoundError(err.Error())
	case errors.Is(err, background.ErrQueueFull), errors.Is(err, background.ErrNotRunning):
		return &utils.CustomError{Code: http.StatusServiceUnavailable, Message: "Task submission failed", Detail: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return &utils.CustomError{Code: http.StatusGatewayTimeout, Message: "Operation timed out", Detail: err.Error()}
	}
	if ce, ok := utils.AsCustomError(err); ok {
		return ce
	}
	return utils.NewInternalServerError(err.Error())
}

// respondError writes err as an ErrorResponse with the matching status
func respondError(c echo.Context, logger logging.Logger, err error) error {
	ce := asCustomError(err)

	fields := map[string]interface{}{
		"request_id": requestIDFrom(c),
		"status":     ce.Code,
		"error":      utils.TruncateForLog(err.Error(), 500),
	}
	if ce.Code >= http.StatusInternalServerError {
		logger.Error("Request failed", fields)
	} else {
		logger.Warn("Request rejected", fields)
	}

	return errorJSON(c, ce.Code, errorCode(ce), ce.Error())
}

func errorCode(ce *utils.CustomError) string {
	switch ce.Code {
	case http.StatusBadRequest:
		if ce.Message == "Validation failed" {
			return "validation_failed"
		}
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "scraping_failed"
	case http.StatusBadGateway:
		return "llm_failed"
	case http.StatusServiceUnavailable:
		return "task_submission_failed"
	case http.StatusGatewayTimeout:
		return "timeout"
	}
	if ce.Message == "Configuration error" {
		return "configuration_error"
	}
	return "internal_error"
}
