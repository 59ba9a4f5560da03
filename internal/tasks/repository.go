// Package tasks stores organization-scoped tasks and enforces their status lifecycle.
package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
	"github.com/taskpro/backend/pkg/database"
)

var (
	// ErrNotFound is returned for tasks that do not exist or belong to another organization.
	ErrNotFound = apperr.New(apperr.NotFound, "task not found")
	// ErrStatusChanged is returned when a status change races another status write.
	ErrStatusChanged = apperr.New(apperr.Conflict, "task status changed, reload and retry")
)

const taskColumns = `id, title, description, organization_id, assigned_to, category, priority, due_date, status, created_by, created_at, updated_at`

// Filter narrows a task listing. Zero values match everything.
type Filter struct {
	Status     models.TaskStatus
	Category   models.TaskCategory
	Priority   models.TaskPriority
	AssignedTo *uuid.UUID
}

// ExpiredTask identifies a task moved to Expired by a sweep.
type ExpiredTask struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
}

// Repository handles task persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a tasks repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanTask(row interface{ Scan(dest ...any) error }) (*models.Task, error) {
	var t models.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.OrganizationID, &t.AssignedTo, &t.Category, &t.Priority,
		&t.DueDate, &t.Status, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts t and returns the stored row.
func (r *Repository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	const q = `INSERT INTO tasks (title, description, organization_id, assigned_to, category, priority, due_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + taskColumns
	return scanTask(database.Conn(ctx, r.db).QueryRow(ctx, q,
		t.Title, t.Description, t.OrganizationID, t.AssignedTo, string(t.Category), string(t.Priority), t.DueDate, string(t.Status), t.CreatedBy))
}

// GetByID returns a task only if it belongs to orgID.
func (r *Repository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND organization_id = $2`
	t, err := scanTask(database.Conn(ctx, r.db).QueryRow(ctx, q, id, orgID))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns the organization's tasks matching f, newest first.
func (r *Repository) List(ctx context.Context, orgID uuid.UUID, f Filter) ([]*models.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks
		WHERE organization_id = $1
		AND ($2 = '' OR status = $2)
		AND ($3 = '' OR category = $3)
		AND ($4 = '' OR priority = $4)
		AND ($5::uuid IS NULL OR assigned_to = $5)
		ORDER BY created_at DESC`
	rows, err := database.Conn(ctx, r.db).Query(ctx, q, orgID, string(f.Status), string(f.Category), string(f.Priority), f.AssignedTo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*models.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Save overwrites the mutable fields of t; the last write wins for everything but status.
// from is the status t was read with. When t.Status equals from the stored status is left
// untouched, so a field edit never undoes a concurrent sweep. Otherwise the row must still
// hold from, or ErrStatusChanged is returned.
func (r *Repository) Save(ctx context.Context, t *models.Task, from models.TaskStatus) (*models.Task, error) {
	const q = `UPDATE tasks SET
		title = $3, description = $4, assigned_to = $5, category = $6, priority = $7, due_date = $8,
		status = CASE WHEN $9::text = $10::text THEN status ELSE $9::text END,
		updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND ($9::text = $10::text OR status = $10::text)
		RETURNING ` + taskColumns
	conn := database.Conn(ctx, r.db)
	saved, err := scanTask(conn.QueryRow(ctx, q,
		t.ID, t.OrganizationID, t.Title, t.Description, t.AssignedTo, string(t.Category), string(t.Priority), t.DueDate,
		string(t.Status), string(from)))
	if err == nil {
		return saved, nil
	}
	if !database.IsNoRows(err) {
		return nil, err
	}
	if _, err := r.GetByID(ctx, t.OrganizationID, t.ID); err != nil {
		return nil, err
	}
	return nil, ErrStatusChanged
}

// Delete removes a task within orgID.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpireOverdue moves every Todo or In Progress task due before now to Expired in one statement.
func (r *Repository) ExpireOverdue(ctx context.Context, now time.Time) ([]ExpiredTask, error) {
	const q = `UPDATE tasks SET status = 'Expired', updated_at = $1
		WHERE due_date < $1 AND status IN ('Todo', 'In Progress')
		RETURNING id, organization_id`
	rows, err := database.Conn(ctx, r.db).Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var expired []ExpiredTask
	for rows.Next() {
		var e ExpiredTask
		if err := rows.Scan(&e.ID, &e.OrganizationID); err != nil {
			return nil, err
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}
