package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
)

// Realtime event names published for task mutations.
const (
	EventCreated       = "task.created"
	EventUpdated       = "task.updated"
	EventDeleted       = "task.deleted"
	EventStatusChanged = "task.status_changed"
	EventExpired       = "tasks.expired"
)

var (
	ErrTitleRequired     = apperr.New(apperr.Validation, "title is required")
	ErrInvalidCategory   = apperr.New(apperr.Validation, "invalid category")
	ErrInvalidPriority   = apperr.New(apperr.Validation, "invalid priority")
	ErrAssigneeNotMember = apperr.New(apperr.Validation, "assignee is not a member of this organization")
	ErrNotAssignee       = apperr.New(apperr.Forbidden, "members can only update the status of tasks assigned to them")
)

// Store is the task persistence used by Service.
type Store interface {
	Create(ctx context.Context, t *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, orgID uuid.UUID, f Filter) ([]*models.Task, error)
	Save(ctx context.Context, t *models.Task, from models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// MemberLookup resolves a user inside an organization.
type MemberLookup interface {
	GetInOrganization(ctx context.Context, orgID, id uuid.UUID) (*models.User, error)
}

// Publisher fans task events out to an organization's realtime subscribers.
type Publisher interface {
	PublishOrgEvent(orgID uuid.UUID, event string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) PublishOrgEvent(uuid.UUID, string, any) {}

// CreateInput holds the fields of a new task.
type CreateInput struct {
	Title       string
	Description string
	AssignedTo  *uuid.UUID
	Category    models.TaskCategory
	Priority    models.TaskPriority
	DueDate     *time.Time
}

// Patch holds a partial task update. Nil fields are left unchanged.
type Patch struct {
	Title         *string
	Description   *string
	AssignedTo    *uuid.UUID
	ClearAssignee bool
	Category      *models.TaskCategory
	Priority      *models.TaskPriority
	DueDate       *time.Time
	ClearDueDate  bool
	Status        *models.TaskStatus
}

// Service applies the task rules on top of Store.
type Service struct {
	store   Store
	members MemberLookup
	events  Publisher
}

// NewService creates a task service. A nil publisher disables realtime events.
func NewService(store Store, members MemberLookup, events Publisher) *Service {
	if events == nil {
		events = nopPublisher{}
	}
	return &Service{store: store, members: members, events: events}
}

// Create stores a new Todo task in the actor's organization.
func (s *Service) Create(ctx context.Context, actor models.Principal, in CreateInput) (*models.Task, error) {
	t := &models.Task{
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		OrganizationID: actor.OrganizationID,
		AssignedTo:     in.AssignedTo,
		Category:       in.Category,
		Priority:       in.Priority,
		DueDate:        in.DueDate,
		Status:         models.StatusTodo,
		CreatedBy:      &actor.UserID,
	}
	if t.Category == "" {
		t.Category = models.CategoryFeature
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if err := s.validate(ctx, t); err != nil {
		return nil, err
	}
	created, err := s.store.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.events.PublishOrgEvent(created.OrganizationID, EventCreated, created)
	return created, nil
}

// List returns the actor's organization tasks matching f.
func (s *Service) List(ctx context.Context, actor models.Principal, f Filter) ([]*models.Task, error) {
	return s.store.List(ctx, actor.OrganizationID, f)
}

// Get returns one task of the actor's organization.
func (s *Service) Get(ctx context.Context, actor models.Principal, id uuid.UUID) (*models.Task, error) {
	return s.store.GetByID(ctx, actor.OrganizationID, id)
}

// Update applies p to a task of the actor's organization. A status change in p
// must be a legal transition.
func (s *Service) Update(ctx context.Context, actor models.Principal, id uuid.UUID, p Patch) (*models.Task, error) {
	t, err := s.store.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	switch {
	case p.ClearAssignee:
		t.AssignedTo = nil
	case p.AssignedTo != nil:
		t.AssignedTo = p.AssignedTo
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDueDate:
		t.DueDate = nil
	case p.DueDate != nil:
		t.DueDate = p.DueDate
	}
	if p.Status != nil {
		if err := checkTransition(t.Status, *p.Status); err != nil {
			return nil, err
		}
		t.Status = *p.Status
	}
	if err := s.validate(ctx, t); err != nil {
		return nil, err
	}
	saved, err := s.store.Save(ctx, t, from)
	if err != nil {
		return nil, err
	}
	s.events.PublishOrgEvent(saved.OrganizationID, EventUpdated, saved)
	return saved, nil
}

// SetStatus moves a task to status. Members may only move tasks assigned to them.
func (s *Service) SetStatus(ctx context.Context, actor models.Principal, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	t, err := s.store.GetByID(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleMember && !t.AssignedToUser(actor.UserID) {
		return nil, ErrNotAssignee
	}
	if err := checkTransition(t.Status, status); err != nil {
		return nil, err
	}
	from := t.Status
	t.Status = status
	saved, err := s.store.Save(ctx, t, from)
	if err != nil {
		return nil, err
	}
	s.events.PublishOrgEvent(saved.OrganizationID, EventStatusChanged, saved)
	return saved, nil
}

// Delete removes a task of the actor's organization.
func (s *Service) Delete(ctx context.Context, actor models.Principal, id uuid.UUID) error {
	if err := s.store.Delete(ctx, actor.OrganizationID, id); err != nil {
		return err
	}
	s.events.PublishOrgEvent(actor.OrganizationID, EventDeleted, map[string]string{"id": id.String()})
	return nil
}

// Stats aggregates the actor's organization tasks.
func (s *Service) Stats(ctx context.Context, actor models.Principal) (*Stats, error) {
	list, err := s.store.List(ctx, actor.OrganizationID, Filter{})
	if err != nil {
		return nil, err
	}
	return ComputeStats(list), nil
}

func checkTransition(from, to models.TaskStatus) error {
	if !from.CanTransitionTo(to) {
		return apperr.Newf(apperr.Validation, "cannot change status from %s to %s", from, to)
	}
	return nil
}

func (s *Service) validate(ctx context.Context, t *models.Task) error {
	if t.Title == "" {
		return ErrTitleRequired
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if !t.Priority.Valid() {
		return ErrInvalidPriority
	}
	if t.AssignedTo != nil {
		if _, err := s.members.GetInOrganization(ctx, t.OrganizationID, *t.AssignedTo); err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return ErrAssigneeNotMember
			}
			return err
		}
	}
	return nil
}
