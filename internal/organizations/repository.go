package organizations

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
	"github.com/taskpro/backend/pkg/database"
)

var (
	ErrNotFound  = apperr.New(apperr.NotFound, "organization not found")
	ErrNameTaken = apperr.New(apperr.Conflict, "an organization with this name already exists")
)

const orgColumns = `id, name, theme, created_at, updated_at`

// Repository handles organization persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an organizations repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanOrg(row interface{ Scan(dest ...any) error }) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.Theme, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func mapErr(err error) error {
	switch {
	case database.IsNoRows(err):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return ErrNameTaken
	}
	return err
}

// Create inserts an organization. An empty theme falls back to models.DefaultTheme.
func (r *Repository) Create(ctx context.Context, name, theme string) (*models.Organization, error) {
	if theme == "" {
		theme = models.DefaultTheme
	}
	const q = `INSERT INTO organizations (name, theme) VALUES ($1, $2) RETURNING ` + orgColumns
	o, err := scanOrg(database.Conn(ctx, r.db).QueryRow(ctx, q, name, theme))
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

// GetOrCreateByName returns the organization with name, creating it first if needed.
func (r *Repository) GetOrCreateByName(ctx context.Context, name string) (*models.Organization, error) {
	const q = `INSERT INTO organizations (name, theme) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING ` + orgColumns
	o, err := scanOrg(database.Conn(ctx, r.db).QueryRow(ctx, q, name, models.DefaultTheme))
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

// GetByID returns an organization by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	o, err := scanOrg(database.Conn(ctx, r.db).QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

// GetByName returns an organization by its unique name.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.Organization, error) {
	const q = `SELECT ` + orgColumns + ` FROM organizations WHERE name = $1`
	o, err := scanOrg(database.Conn(ctx, r.db).QueryRow(ctx, q, name))
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

// Patch holds optional organization changes. Nil fields are left unchanged.
type Patch struct {
	Name  *string
	Theme *string
}

// Update applies patch to an organization.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, p Patch) (*models.Organization, error) {
	const q = `UPDATE organizations SET
		name = COALESCE($2, name),
		theme = COALESCE($3, theme),
		updated_at = now()
		WHERE id = $1
		RETURNING ` + orgColumns
	o, err := scanOrg(database.Conn(ctx, r.db).QueryRow(ctx, q, id, p.Name, p.Theme))
	if err != nil {
		return nil, mapErr(err)
	}
	return o, nil
}

// Delete removes an organization. Its users, tasks, invites and email logs go with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
