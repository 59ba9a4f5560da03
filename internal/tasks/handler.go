package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskpro/backend/internal/middleware"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/response"
)

// TaskService is the task API consumed by Handler.
type TaskService interface {
	Create(ctx context.Context, actor models.Principal, in CreateInput) (*models.Task, error)
	List(ctx context.Context, actor models.Principal, f Filter) ([]*models.Task, error)
	Get(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, actor models.Principal, id uuid.UUID, p Patch) (*models.Task, error)
	SetStatus(ctx context.Context, actor models.Principal, id uuid.UUID, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, actor models.Principal, id uuid.UUID) error
}

// Handler handles task HTTP endpoints.
type Handler struct {
	svc    TaskService
	logger *zap.Logger
}

// NewHandler creates a tasks handler.
func NewHandler(svc TaskService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateTaskRequest is the body for POST /tasks.
type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required"`
	Description string              `json:"description"`
	AssignedTo  *uuid.UUID          `json:"assignedTo"`
	Category    models.TaskCategory `json:"category"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
}

// Nullable records whether a JSON field was present and whether it was null.
type Nullable[T any] struct {
	Present bool
	Value   *T
}

func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// UpdateTaskRequest is the body for PUT /tasks/:id. Absent fields are unchanged;
// an explicit null clears assignedTo or dueDate.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	AssignedTo  Nullable[uuid.UUID]  `json:"assignedTo"`
	Category    *models.TaskCategory `json:"category"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     Nullable[time.Time]  `json:"dueDate"`
	Status      *string              `json:"status"`
}

func (r UpdateTaskRequest) patch() (Patch, bool) {
	p := Patch{
		Title:         r.Title,
		Description:   r.Description,
		AssignedTo:    r.AssignedTo.Value,
		ClearAssignee: r.AssignedTo.Present && r.AssignedTo.Value == nil,
		Category:      r.Category,
		Priority:      r.Priority,
		DueDate:       r.DueDate.Value,
		ClearDueDate:  r.DueDate.Present && r.DueDate.Value == nil,
	}
	if r.Status != nil {
		st, ok := models.ParseTaskStatus(*r.Status)
		if !ok {
			return p, false
		}
		p.Status = &st
	}
	return p, true
}

// StatusRequest is the body for PATCH /tasks/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /tasks.
//
//	@Summary	Create a task in the caller's organization
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateTaskRequest	true	"Task"
//	@Success	201		{object}	models.Task
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	403		{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/tasks [post]
func (h *Handler) Create(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	var body CreateTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t, err := h.svc.Create(c.Request.Context(), p, CreateInput{
		Title:       body.Title,
		Description: body.Description,
		AssignedTo:  body.AssignedTo,
		Category:    body.Category,
		Priority:    body.Priority,
		DueDate:     body.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("task created",
		zap.String("task_id", t.ID.String()),
		zap.String("organization_id", t.OrganizationID.String()),
	)
	response.Created(c, t)
}

// List handles GET /tasks with optional status, category, priority and assignedTo filters.
//
//	@Summary	List the caller's organization tasks
//	@Tags		Tasks
//	@Produce	json
//	@Param		status		query	string	false	"Todo, In Progress, Completed or Expired"
//	@Param		category	query	string	false	"Bug, Feature or Improvement"
//	@Param		priority	query	string	false	"Low, Medium or High"
//	@Param		assignedTo	query	string	false	"assignee id"
//	@Success	200	{array}	models.Task
//	@Security	BearerAuth
//	@Router		/tasks [get]
func (h *Handler) List(c *gin.Context) {
	p := middleware.MustPrincipal(c)
	var f Filter
	if s := c.Query("status"); s != "" {
		st, ok := models.ParseTaskStatus(s)
		if !ok {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = st
	}
	if s := c.Query("category"); s != "" {
		f.Category = models.TaskCategory(s)
		if !f.Category.Valid() {
			response.BadRequest(c, "invalid category")
			return
		}
	}
	if s := c.Query("priority"); s != "" {
		f.Priority = models.TaskPriority(s)
		if !f.Priority.Valid() {
			response.BadRequest(c, "invalid priority")
			return
		}
	}
	if s := c.Query("assignedTo"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.BadRequest(c, "invalid assignedTo")
			return
		}
		f.AssignedTo = &id
	}
	list, err := h.svc.List(c.Request.Context(), p, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /tasks/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), middleware.MustPrincipal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Update handles PUT /tasks/:id.
//
//	@Summary	Partially update a task
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Task ID"
//	@Param		body	body		UpdateTaskRequest	true	"Changed fields"
//	@Success	200		{object}	models.Task
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/tasks/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var body UpdateTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	patch, ok := body.patch()
	if !ok {
		response.BadRequest(c, "invalid status")
		return
	}
	t, err := h.svc.Update(c.Request.Context(), middleware.MustPrincipal(c), id, patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// UpdateStatus handles PATCH /tasks/:id/status.
//
//	@Summary	Move a task through its lifecycle
//	@Tags		Tasks
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"Task ID"
//	@Param		body	body		StatusRequest	true	"New status"
//	@Success	200		{object}	models.Task
//	@Failure	400		{object}	response.ErrorBody
//	@Failure	403		{object}	response.ErrorBody
//	@Failure	404		{object}	response.ErrorBody
//	@Failure	409		{object}	response.ErrorBody
//	@Security	BearerAuth
//	@Router		/tasks/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var body StatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status, ok := models.ParseTaskStatus(body.Status)
	if !ok {
		response.BadRequest(c, "invalid status")
		return
	}
	t, err := h.svc.SetStatus(c.Request.Context(), middleware.MustPrincipal(c), id, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /tasks/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	p := middleware.MustPrincipal(c)
	if err := h.svc.Delete(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("task deleted", zap.String("task_id", id.String()), zap.String("organization_id", p.OrganizationID.String()))
	response.Message(c, "task deleted")
}
