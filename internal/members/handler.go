// Package members serves the organization membership endpoints.
package members

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/middleware"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/internal/users"
	"github.com/taskpro/backend/pkg/response"
)

// MemberStore is the user persistence used by the members endpoints.
type MemberStore interface {
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)
	UpdateRole(ctx context.Context, orgID, id uuid.UUID, role models.Role) (*models.User, error)
	UpdateProfile(ctx context.Context, orgID, id uuid.UUID, patch users.ProfilePatch) (*models.User, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// Hasher hashes a replacement password.
type Hasher interface {
	Hash(password string) (string, error)
}

// SessionCloser drops the live realtime connections of a removed member.
type SessionCloser interface {
	DisconnectUser(userID uuid.UUID)
}

// Handler handles the /members endpoints.
type Handler struct {
	store    MemberStore
	hasher   Hasher
	sessions SessionCloser
	logger   *zap.Logger
}

// NewHandler creates a members handler. sessions may be nil.
func NewHandler(store MemberStore, hasher Hasher, sessions SessionCloser, logger *zap.Logger) *Handler {
	return &Handler{store: store, hasher: hasher, sessions: sessions, logger: logger}
}

// RoleRequest is the body for PATCH /members/:id/role.
type RoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// ProfileRequest is the body for PUT /members/:id.
type ProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
}

func memberID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid member id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /members.
//
//	@Summary	List the caller's organization members
//	@Tags		Members
//	@Produce	json
//	@Success	200	{array}		models.UserPublic
//	@Failure	403	{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/members [get]
func (h *Handler) List(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	list, err := h.store.ListByOrganization(c.Request.Context(), p.OrganizationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]models.UserPublic, 0, len(list))
	for _, u := range list {
		out = append(out, u.ToPublic())
	}
	response.OK(c, out)
}

// Remove handles DELETE /members/:id. Admins cannot remove themselves.
func (h *Handler) Remove(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	p := middleware.MustPrincipal(c)
	if id == p.UserID {
		response.BadRequest(c, "cannot remove yourself")
		return
	}
	if err := h.store.Delete(c.Request.Context(), p.OrganizationID, id); err != nil {
		response.Error(c, err)
		return
	}
	if h.sessions != nil {
		h.sessions.DisconnectUser(id)
	}
	h.logger.Info("member removed", zap.String("user_id", id.String()), zap.String("organization_id", p.OrganizationID.String()))
	response.Message(c, "member removed")
}

// UpdateRole handles PATCH /members/:id/role. Admins cannot change their own role.
func (h *Handler) UpdateRole(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	var body RoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p := middleware.MustPrincipal(c)
	if id == p.UserID {
		response.BadRequest(c, "cannot change your own role")
		return
	}
	u, err := h.store.UpdateRole(c.Request.Context(), p.OrganizationID, id, body.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// UpdateProfile handles PUT /members/:id. A new password is hashed before storage.
func (h *Handler) UpdateProfile(c *gin.Context) {
	id, ok := memberID(c)
	if !ok {
		return
	}
	var body ProfileRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var patch users.ProfilePatch
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			response.BadRequest(c, "name must not be empty")
			return
		}
		patch.Name = &name
	}
	if body.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*body.Email))
		patch.Email = &email
	}
	if body.Password != nil {
		hash, err := h.hasher.Hash(*body.Password)
		if err != nil {
			response.Error(c, err)
			return
		}
		patch.PasswordHash = &hash
	}
	p := middleware.MustPrincipal(c)
	u, err := h.store.UpdateProfile(c.Request.Context(), p.OrganizationID, id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}
