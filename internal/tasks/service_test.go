package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
)

type memStore struct {
	tasks map[uuid.UUID]*models.Task
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[uuid.UUID]*models.Task)}
}

func (m *memStore) Create(_ context.Context, t *models.Task) (*models.Task, error) {
	cp := *t
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	m.tasks[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetByID(_ context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) List(_ context.Context, orgID uuid.UUID, f Filter) ([]*models.Task, error) {
	var out []*models.Task
	for _, t := range m.tasks {
		if t.OrganizationID != orgID || (f.Status != "" && t.Status != f.Status) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) Save(_ context.Context, t *models.Task, from models.TaskStatus) (*models.Task, error) {
	cur, ok := m.tasks[t.ID]
	if !ok || cur.OrganizationID != t.OrganizationID {
		return nil, ErrNotFound
	}
	cp := *t
	if t.Status == from {
		cp.Status = cur.Status
	} else if cur.Status != from {
		return nil, ErrStatusChanged
	}
	cp.UpdatedAt = time.Now()
	m.tasks[t.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) Delete(_ context.Context, orgID, id uuid.UUID) error {
	t, ok := m.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

type memMembers map[uuid.UUID]uuid.UUID // user -> org

func (m memMembers) GetInOrganization(_ context.Context, orgID, id uuid.UUID) (*models.User, error) {
	if m[id] != orgID {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return &models.User{ID: id, OrganizationID: orgID}, nil
}

type capture struct {
	events []string
}

func (c *capture) PublishOrgEvent(_ uuid.UUID, event string, _ any) {
	c.events = append(c.events, event)
}

type fixture struct {
	svc     *Service
	store   *memStore
	events  *capture
	orgA    uuid.UUID
	orgB    uuid.UUID
	manager models.Principal
	member  models.Principal
	other   models.Principal
	outside models.Principal
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), events: &capture{}, orgA: uuid.New(), orgB: uuid.New()}
	f.manager = models.Principal{UserID: uuid.New(), OrganizationID: f.orgA, Role: models.RoleManager}
	f.member = models.Principal{UserID: uuid.New(), OrganizationID: f.orgA, Role: models.RoleMember}
	f.other = models.Principal{UserID: uuid.New(), OrganizationID: f.orgA, Role: models.RoleMember}
	f.outside = models.Principal{UserID: uuid.New(), OrganizationID: f.orgB, Role: models.RoleAdmin}
	members := memMembers{
		f.manager.UserID: f.orgA,
		f.member.UserID:  f.orgA,
		f.other.UserID:   f.orgA,
		f.outside.UserID: f.orgB,
	}
	f.svc = NewService(f.store, members, f.events)
	return f
}

func (f *fixture) createAssigned(t *testing.T, assignee uuid.UUID) *models.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), f.manager, CreateInput{Title: "Fix login", AssignedTo: &assignee})
	require.NoError(t, err)
	return task
}

func TestCreateAppliesDefaults(t *testing.T) {
	f := newFixture()
	task, err := f.svc.Create(context.Background(), f.manager, CreateInput{Title: "  Write docs  "})
	require.NoError(t, err)
	assert.Equal(t, "Write docs", task.Title)
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.CategoryFeature, task.Category)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, f.orgA, task.OrganizationID)
	require.NotNil(t, task.CreatedBy)
	assert.Equal(t, f.manager.UserID, *task.CreatedBy)
	assert.Equal(t, []string{EventCreated}, f.events.events)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.manager, CreateInput{Title: "   "})
	assert.ErrorIs(t, err, ErrTitleRequired)

	_, err = f.svc.Create(ctx, f.manager, CreateInput{Title: "x", Category: "Chore"})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = f.svc.Create(ctx, f.manager, CreateInput{Title: "x", Priority: "Urgent"})
	assert.ErrorIs(t, err, ErrInvalidPriority)

	foreign := f.outside.UserID
	_, err = f.svc.Create(ctx, f.manager, CreateInput{Title: "x", AssignedTo: &foreign})
	assert.ErrorIs(t, err, ErrAssigneeNotMember)
}

func TestSetStatusMemberMustBeAssignee(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createAssigned(t, f.member.UserID)

	_, err := f.svc.SetStatus(ctx, f.other, task.ID, models.StatusInProgress)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))

	updated, err := f.svc.SetStatus(ctx, f.member, task.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, models.StatusInProgress, f.store.tasks[task.ID].Status)
	assert.Contains(t, f.events.events, EventStatusChanged)
}

func TestSetStatusManagerAnyTaskInOrg(t *testing.T) {
	f := newFixture()
	task := f.createAssigned(t, f.member.UserID)
	updated, err := f.svc.SetStatus(context.Background(), f.manager, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
}

func TestSetStatusRejectsIllegalTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createAssigned(t, f.member.UserID)

	_, err := f.svc.SetStatus(ctx, f.manager, task.ID, models.StatusExpired)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = f.svc.SetStatus(ctx, f.manager, task.ID, models.StatusCompleted)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, f.manager, task.ID, models.StatusTodo)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	assert.Equal(t, models.StatusCompleted, f.store.tasks[task.ID].Status)
}

func TestCrossTenantAccessIsNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createAssigned(t, f.member.UserID)

	_, err := f.svc.Get(ctx, f.outside, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	title := "hijack"
	_, err = f.svc.Update(ctx, f.outside, task.ID, Patch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.SetStatus(ctx, f.outside, task.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.outside, task.ID), ErrNotFound)

	list, err := f.svc.List(ctx, f.outside, Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Equal(t, "Fix login", f.store.tasks[task.ID].Title)
}

func TestUpdatePatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.createAssigned(t, f.member.UserID)
	due := time.Now().Add(48 * time.Hour).UTC()
	high := models.PriorityHigh
	inProgress := models.StatusInProgress

	updated, err := f.svc.Update(ctx, f.manager, task.ID, Patch{
		Priority:      &high,
		DueDate:       &due,
		ClearAssignee: true,
		Status:        &inProgress,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	assert.Nil(t, updated.AssignedTo)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))
	assert.Equal(t, models.StatusInProgress, updated.Status)
	assert.Equal(t, "Fix login", updated.Title)

	expired := models.StatusExpired
	_, err = f.svc.Update(ctx, f.manager, task.ID, Patch{Status: &expired})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

// sweepAfterRead expires the stored task right after handing out a copy, the
// way the overdue sweep can land between a handler's read and its write.
type sweepAfterRead struct {
	*memStore
}

func (s sweepAfterRead) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	t, err := s.memStore.GetByID(ctx, orgID, id)
	if err == nil {
		s.tasks[id].Status = models.StatusExpired
	}
	return t, err
}

func TestUpdateDoesNotRevertConcurrentExpiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task, err := f.svc.Create(ctx, f.manager, CreateInput{Title: "Fix login"})
	require.NoError(t, err)

	svc := NewService(sweepAfterRead{f.store}, memMembers{}, f.events)
	title := "Fix login page"
	updated, err := svc.Update(ctx, f.manager, task.ID, Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Fix login page", updated.Title)
	assert.Equal(t, models.StatusExpired, updated.Status)
	assert.Equal(t, models.StatusExpired, f.store.tasks[task.ID].Status)
}

func TestSetStatusConflictsWithConcurrentExpiry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task, err := f.svc.Create(ctx, f.manager, CreateInput{Title: "Fix login"})
	require.NoError(t, err)

	svc := NewService(sweepAfterRead{f.store}, memMembers{}, f.events)
	_, err = svc.SetStatus(ctx, f.manager, task.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrStatusChanged)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, models.StatusExpired, f.store.tasks[task.ID].Status)
}

func TestDeletePublishes(t *testing.T) {
	f := newFixture()
	task := f.createAssigned(t, f.member.UserID)
	require.NoError(t, f.svc.Delete(context.Background(), f.manager, task.ID))
	assert.Empty(t, f.store.tasks)
	assert.Equal(t, EventDeleted, f.events.events[len(f.events.events)-1])
}

func TestStatsCountsOnlyOwnOrganization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.createAssigned(t, f.member.UserID)
	f.createAssigned(t, f.member.UserID)
	_, err := f.svc.SetStatus(ctx, f.manager, a.ID, models.StatusCompleted)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.outside, CreateInput{Title: "elsewhere", Category: models.CategoryBug})
	require.NoError(t, err)

	st, err := f.svc.Stats(ctx, f.manager)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 0, st.Overdue)
	assert.Equal(t, 0, st.ByCategory[models.CategoryBug])
	assert.Equal(t, 2, st.ByCategory[models.CategoryFeature])
}
