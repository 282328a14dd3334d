package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"lead-hunter/internal/logging"
	"lead-hunter/internal/store"
	"lead-hunter/pkg/models"
)

// ListLeadsHandler handles GET /api/v1/leads, newest first
func ListLeadsHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		leads, err := st.ListLeads(c.Request().Context())
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, leads)
	}
}

// GetLeadHandler handles GET /api/v1/leads/:id
func GetLeadHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		lead, err := st.GetLead(c.Request().Context(), c.Param("id"))
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, lead)
	}
}

// AddLeadHandler handles POST /api/v1/leads for inbound contact requests
func AddLeadHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AddLeadRequest
		if ok, err := bindAndValidate(c, logger, &req); !ok {
			return err
		}

		inbound := models.LeadSourceInbound
		id, err := st.InsertLead(c.Request().Context(), &models.Lead{
			Name:    strings.TrimSpace(req.Name),
			Email:   strings.TrimSpace(req.Email),
			Company: models.StringPtr(strings.TrimSpace(req.Company)),
			Phone:   models.StringPtr(strings.TrimSpace(req.Phone)),
			Message: req.Message,
			Notes:   models.StringPtr(req.Notes),
			Source:  &inbound,
		})
		if err != nil {
			return respondError(c, logger, err)
		}

		logger.Info("Lead created", map[string]interface{}{
			"request_id": requestIDFrom(c),
			"lead_id":    id,
		})
		return c.JSON(http.StatusCreated, models.IDResponse{ID: id})
	}
}

// UpdateLeadHandler handles PATCH /api/v1/leads/:id and returns the updated lead
func UpdateLeadHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.UpdateLeadRequest
		if ok, err := bindAndValidate(c, logger, &req); !ok {
			return err
		}

		patch := models.LeadPatch{
			Name:    req.Name,
			Email:   req.Email,
			Company: req.Company,
			Phone:   req.Phone,
			Message: req.Message,
			Notes:   req.Notes,
		}
		if req.Status != nil {
			status := models.LeadStatus(*req.Status)
			patch.Status = &status
		}

		ctx := c.Request().Context()
		id := c.Param("id")
		if err := st.PatchLead(ctx, id, patch); err != nil {
			return respondError(c, logger, err)
		}

		lead, err := st.GetLead(ctx, id)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, lead)
	}
}

// DeleteLeadHandler handles DELETE /api/v1/leads/:id; the lead's comments go with it
func DeleteLeadHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := st.DeleteLead(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, logger, err)
		}

		logger.Info("Lead deleted", map[string]interface{}{
			"request_id": requestIDFrom(c),
			"lead_id":    c.Param("id"),
		})
		return c.NoContent(http.StatusNoContent)
	}
}

// ListCommentsHandler handles GET /api/v1/leads/:id/comments, newest first
func ListCommentsHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		leadID := c.Param("id")

		if _, err := st.GetLead(ctx, leadID); err != nil {
			return respondError(c, logger, err)
		}

		comments, err := st.ListComments(ctx, leadID)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusOK, comments)
	}
}

// AddCommentHandler handles POST /api/v1/leads/:id/comments
func AddCommentHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.AddCommentRequest
		if ok, err := bindAndValidate(c, logger, &req); !ok {
			return err
		}

		author := strings.TrimSpace(req.Author)
		if author == "" {
			author = models.AdminAuthor
		}

		id, err := st.AddComment(c.Request().Context(), c.Param("id"), req.Content, author)
		if err != nil {
			return respondError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, models.IDResponse{ID: id})
	}
}

// UpdateCommentHandler handles PATCH /api/v1/comments/:id
func UpdateCommentHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.UpdateCommentRequest
		if ok, err := bindAndValidate(c, logger, &req); !ok {
			return err
		}

		if err := st.UpdateComment(c.Request().Context(), c.Param("id"), req.Content); err != nil {
			return respondError(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// DeleteCommentHandler handles DELETE /api/v1/comments/:id
func DeleteCommentHandler(st store.LeadStore, logger logging.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := st.DeleteComment(c.Request().Context(), c.Param("id")); err != nil {
			return respondError(c, logger, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
