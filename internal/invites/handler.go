package invites

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/middleware"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/response"
)

// Issuer issues and lists invites.
type Issuer interface {
	Issue(ctx context.Context, p IssueParams) (string, *models.Invite, error)
	ListPending(ctx context.Context, orgID uuid.UUID) ([]*models.Invite, error)
}

// OrganizationLookup resolves the inviting organization for the email body.
type OrganizationLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// Notifier delivers invite emails out of band.
type Notifier interface {
	NotifyInvite(ctx context.Context, inv *models.Invite, org *models.Organization, token string) error
}

// Handler handles invite HTTP endpoints.
type Handler struct {
	ledger   Issuer
	orgs     OrganizationLookup
	notifier Notifier
	logger   *zap.Logger
}

// NewHandler creates an invites handler.
func NewHandler(ledger Issuer, orgs OrganizationLookup, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{ledger: ledger, orgs: orgs, notifier: notifier, logger: logger}
}

// CreateInviteRequest is the body for POST /invite.
type CreateInviteRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role"`
}

// CreateInviteResponse carries the redemption link of a new invite.
type CreateInviteResponse struct {
	InviteLink string    `json:"inviteLink"`
	ExpiresAt  string    `json:"expiresAt"`
	InviteID   uuid.UUID `json:"inviteId"`
}

// Create handles POST /invite. The email is queued after the invite is stored;
// a queueing failure is logged and does not fail the request.
//
//	@Summary	Invite a user into the caller's organization
//	@Tags		Invites
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateInviteRequest	true	"Invite"
//	@Success	201		{object}	CreateInviteResponse
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	403		{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/invite [post]
func (h *Handler) Create(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	var body CreateInviteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if body.Role == "" {
		body.Role = models.RoleMember
	}
	if !body.Role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	if body.Role == models.RoleAdmin && p.Role != models.RoleAdmin {
		response.Forbidden(c, "only admins can invite admins")
		return
	}

	ctx := c.Request.Context()
	inviter := p.UserID
	token, inv, err := h.ledger.Issue(ctx, IssueParams{
		Email:          strings.ToLower(strings.TrimSpace(body.Email)),
		OrganizationID: p.OrganizationID,
		Role:           body.Role,
		InvitedBy:      &inviter,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.notify(ctx, inv, token)

	response.Created(c, CreateInviteResponse{
		InviteLink: Link(inv.Role, token),
		ExpiresAt:  inv.ExpiresAt.UTC().Format(time.RFC3339),
		InviteID:   inv.ID,
	})
}

func (h *Handler) notify(ctx context.Context, inv *models.Invite, token string) {
	org, err := h.orgs.GetByID(ctx, inv.OrganizationID)
	if err == nil {
		err = h.notifier.NotifyInvite(ctx, inv, org, token)
	}
	if err != nil {
		h.logger.Warn("invite email not queued",
			zap.String("invite_id", inv.ID.String()),
			zap.String("organization_id", inv.OrganizationID.String()),
			zap.Error(err),
		)
	}
}

// ListPending handles GET /invites. Returns the organization's open invites.
func (h *Handler) ListPending(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	list, err := h.ledger.ListPending(c.Request.Context(), p.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
