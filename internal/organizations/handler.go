package organizations

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/middleware"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
	"github.com/taskpro/backend/pkg/response"
)

// Store is the organization persistence the handler needs.
type Store interface {
	Create(ctx context.Context, name, theme string) (*models.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*models.Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemberMover re-homes a user into another organization.
type MemberMover interface {
	MoveToOrganization(ctx context.Context, userID, orgID uuid.UUID) (*models.User, error)
}

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SessionCloser drops live realtime connections that lost access to an organization.
type SessionCloser interface {
	DisconnectUser(userID uuid.UUID)
	DisconnectOrganization(orgID uuid.UUID)
}

type nopSessions struct{}

func (nopSessions) DisconnectUser(uuid.UUID)         {}
func (nopSessions) DisconnectOrganization(uuid.UUID) {}

// Handler handles organization HTTP endpoints.
type Handler struct {
	orgs     Store
	users    MemberMover
	tx       TxRunner
	sessions SessionCloser
	logger   *zap.Logger
}

// NewHandler creates an organizations handler. sessions may be nil.
func NewHandler(orgs Store, users MemberMover, tx TxRunner, sessions SessionCloser, logger *zap.Logger) *Handler {
	if sessions == nil {
		sessions = nopSessions{}
	}
	return &Handler{orgs: orgs, users: users, tx: tx, sessions: sessions, logger: logger}
}

// CreateOrganizationRequest is the body for POST /org.
type CreateOrganizationRequest struct {
	Name  string `json:"name" binding:"required"`
	Theme string `json:"theme"`
}

// UpdateOrganizationRequest is the body for PUT /org.
type UpdateOrganizationRequest struct {
	Name  *string `json:"name"`
	Theme *string `json:"theme"`
}

func validName(name string) error {
	if len(name) < 1 || len(name) > 255 {
		return apperr.New(apperr.Validation, "name must be 1-255 characters")
	}
	return nil
}

// Get handles GET /org. Returns the caller's organization.
//
//	@Summary	Get the caller's organization
//	@Tags		Organization
//	@Produce	json
//	@Success	200	{object}	models.Organization
//	@Failure	401	{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/org [get]
func (h *Handler) Get(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	org, err := h.orgs.GetByID(c.Request.Context(), p.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// Create handles POST /org. Creates an organization and moves the calling Admin into it.
func (h *Handler) Create(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if err := validName(body.Name); err != nil {
		response.Error(c, err)
		return
	}

	var org *models.Organization
	err := h.tx.InTx(c.Request.Context(), func(ctx context.Context) error {
		var err error
		org, err = h.orgs.Create(ctx, body.Name, strings.TrimSpace(body.Theme))
		if err != nil {
			return err
		}
		_, err = h.users.MoveToOrganization(ctx, p.UserID, org.ID)
		return err
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.sessions.DisconnectUser(p.UserID)
	h.logger.Info("organization created", zap.String("organization_id", org.ID.String()), zap.String("admin_id", p.UserID.String()))
	response.Created(c, org)
}

// Update handles PUT /org.
func (h *Handler) Update(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	var body UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if err := validName(name); err != nil {
			response.Error(c, err)
			return
		}
		body.Name = &name
	}
	org, err := h.orgs.Update(c.Request.Context(), p.OrganizationID, Patch{Name: body.Name, Theme: body.Theme})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, org)
}

// Delete handles DELETE /org. Removes the organization with all of its users and tasks.
func (h *Handler) Delete(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	if err := h.orgs.Delete(c.Request.Context(), p.OrganizationID); err != nil {
		response.Error(c, err)
		return
	}
	h.sessions.DisconnectOrganization(p.OrganizationID)
	h.logger.Info("organization deleted", zap.String("organization_id", p.OrganizationID.String()), zap.String("admin_id", p.UserID.String()))
	response.Message(c, "organization deleted")
}
