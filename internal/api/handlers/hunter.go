package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lead-hunter/internal/background"
	"lead-hunter/internal/logging"
	"lead-hunter/pkg/models"
	"lead-hunter/pkg/utils"
)

// DiscoverHandler handles POST /api/v1/hunter/discover.
// With async set the run is queued and a process ID returned; otherwise the
// run summary is the response body.
func DiscoverHandler(ops background.Operations, taskManager background.TaskManager, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := requestIDFrom(c)

		var req models.DiscoverRequest
		if ok, err := bindAndValidate(c, logger, &req); !ok {
			return err
		}

		logger.Info("Processing discovery request", map[string]interface{}{
			"request_id": requestID,
			"url":        req.URL,
			"url_count":  len(req.URLs),
			"async":      req.Async,
		})

		if req.Async {
			processID := utils.GenerateID()
			if err := taskManager.SubmitDiscoverTask(c.Request().Context(), processID, req); err != nil {
				return respondError(c, logger, err)
			}
			return c.JSON(http.StatusAccepted, models.NewAsyncAcceptedResponse(processID, "discover"))
		}

		result, err := ops.Discover(c.Request().Context(), req)
		if err != nil {
			return respondError(c, logger, err)
		}

		logger.Info("Discovery request completed", map[string]interface{}{
			"request_id":  requestID,
			"success":     result.Success,
			"leads_found": result.LeadsFound,
			"leads_saved": result.LeadsSaved,
		})

		return c.JSON(http.StatusOK, result)
	}
}

// AnalyzeHandler handles POST /api/v1/hunter/analyze
func AnalyzeHandler(ops background.Operations, taskManager background.TaskManager, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AnalyzeRequest
		if ok, err := bindAndValidate(c, logger, &req); !ok {
			return err
		}

		limit := 0
		if req.Limit != nil {
			limit = *req.Limit
		}

		if req.Async {
			processID := utils.GenerateID()
			if err := taskManager.SubmitAnalyzeTask(c.Request().Context(), processID, limit); err != nil {
				return respondError(c, logger, err)
			}
			return c.JSON(http.StatusAccepted, models.NewAsyncAcceptedResponse(processID, "analyze"))
		}

		result, err := ops.AnalyzeScrapedLeads(c.Request().Context(), limit)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

// BackfillHandler handles POST /api/v1/hunter/backfill
func BackfillHandler(ops background.Operations, taskManager background.TaskManager, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.BackfillRequest
		if ok, err := bindAndValidate(c, logger, &req); !ok {
			return err
		}

		limit := 0
		if req.Limit != nil {
			limit = *req.Limit
		}

		if req.Async {
			processID := utils.GenerateID()
			if err := taskManager.SubmitBackfillTask(c.Request().Context(), processID, limit); err != nil {
				return respondError(c, logger, err)
			}
			return c.JSON(http.StatusAccepted, models.NewAsyncAcceptedResponse(processID, "backfill"))
		}

		result, err := ops.Backfill(c.Request().Context(), limit)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, result)
	}
}

// TaskStatusHandler handles GET /api/v1/tasks/:id
func TaskStatusHandler(taskManager background.TaskManager, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := taskManager.GetTaskResult(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logger, err)
		}

		return c.JSON(http.StatusOK, models.AsyncTaskStatusResponse{
			ProcessID:      result.ProcessID,
			Type:           string(result.Type),
			Status:         models.AsyncStatus(result.Status),
			Data:           result.Data,
			Error:          result.Error,
			CreatedAt:      result.CreatedAt,
			CompletedAt:    result.CompletedAt,
			ProcessingTime: result.ProcessingTime,
			Metadata:       result.Metadata,
		})
	}
}
