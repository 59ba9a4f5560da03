package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/response"
)

// RegisterRequest is the body for POST /register and its role variants.
type RegisterRequest struct {
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=6"`
	OrganizationName string `json:"organizationName"`
	InviteToken      string `json:"inviteToken"`
}

func (r RegisterRequest) registration() Registration {
	return Registration{
		Name:             r.Name,
		Email:            r.Email,
		Password:         r.Password,
		OrganizationName: r.OrganizationName,
		InviteToken:      r.InviteToken,
	}
}

// LoginRequest is the body for POST /login and its role variants.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) register(c *gin.Context, fn func(context.Context, Registration) (*Session, error)) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	session, err := fn(c.Request.Context(), req.registration())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("user registered",
		zap.String("user_id", session.User.ID.String()),
		zap.String("organization_id", session.User.OrganizationID.String()),
		zap.String("role", string(session.User.Role)),
	)
	response.OK(c, session)
}

// Register handles POST /register.
//
//	@Summary	Register by creating an organization or redeeming an invite
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		RegisterRequest	true	"Registration"
//	@Success	200		{object}	Session
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Router		/register [post]
func (h *Handler) Register(c *gin.Context) {
	h.register(c, h.svc.Register)
}

// RegisterAdmin handles POST /register/admin.
func (h *Handler) RegisterAdmin(c *gin.Context) {
	h.register(c, h.svc.RegisterAdmin)
}

// RegisterManager handles POST /register/manager.
func (h *Handler) RegisterManager(c *gin.Context) {
	h.register(c, h.svc.RegisterManager)
}

// RegisterMember handles POST /register/member.
func (h *Handler) RegisterMember(c *gin.Context) {
	h.register(c, h.svc.RegisterMember)
}

// Login returns a handler for POST /login; role "" accepts any role.
//
//	@Summary	Log in with email and password
//	@Tags		Auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		LoginRequest	true	"Credentials"
//	@Success	200		{object}	Session
//	@Failure	401		{object}	response.ErrorBody
//	@Router		/login [post]
func (h *Handler) Login(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
		session, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, role)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, session)
	}
}
