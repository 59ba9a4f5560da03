package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/middleware"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/response"
)

// Lister lists an organization's email logs.
type Lister interface {
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo Lister
}

// NewHandler creates an email logs handler.
func NewHandler(repo Lister) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /emails. Returns the caller's organization email logs.
//
//	@Summary	Invite email delivery log
//	@Tags		Emails
//	@Produce	json
//	@Success	200	{array}		models.EmailLog
//	@Failure	403	{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/emails [get]
func (h *Handler) List(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	logs, err := h.repo.ListByOrganization(c.Request.Context(), p.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, logs)
}
