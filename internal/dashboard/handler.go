// Package dashboard serves the per-organization task summary.
package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/taskpro/backend/internal/middleware"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/internal/tasks"
	"github.com/taskpro/backend/pkg/response"
)

// StatsSource aggregates an organization's tasks.
type StatsSource interface {
	Stats(ctx context.Context, actor models.Principal) (*tasks.Stats, error)
}

// Handler handles GET /dashboard/stats.
type Handler struct {
	source StatsSource
}

// NewHandler creates a dashboard handler.
func NewHandler(source StatsSource) *Handler {
	return &Handler{source: source}
}

// Stats handles GET /dashboard/stats.
//
//	@Summary	Task counts for the caller's organization
//	@Tags		Dashboard
//	@Produce	json
//	@Success	200	{object}	tasks.Stats
//	@Failure	401	{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/dashboard/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.source.Stats(c.Request.Context(), middleware.MustPrincipal(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, st)
}
