// Package users persists identities. One row per identity; the role is a column.
package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
	"github.com/taskpro/backend/pkg/database"
)

var (
	ErrNotFound    = apperr.New(apperr.NotFound, "user not found")
	ErrEmailTaken  = apperr.New(apperr.Conflict, "email already registered")
	ErrInvalidRole = apperr.New(apperr.Validation, "invalid role")
)

const userColumns = `id, name, email, password_hash, organization_id, role, invited_by, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates a users repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

// CreateParams are the fields of a new identity.
type CreateParams struct {
	Name           string
	Email          string
	PasswordHash   string
	OrganizationID uuid.UUID
	Role           models.Role
	InvitedBy      *uuid.UUID
}

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.OrganizationID, &u.Role, &u.InvitedBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func notFound(err error) error {
	if database.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

// Create inserts a new user. A duplicate email fails with ErrEmailTaken.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.User, error) {
	if !p.Role.Valid() {
		return nil, ErrInvalidRole
	}
	const q = `INSERT INTO users (name, email, password_hash, organization_id, role, invited_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	u, err := scanUser(database.Conn(ctx, r.db).QueryRow(ctx, q, p.Name, p.Email, p.PasswordHash, p.OrganizationID, string(p.Role), p.InvitedBy))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

// GetByID returns a user by ID regardless of organization.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(database.Conn(ctx, r.db).QueryRow(ctx, q, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// GetInOrganization returns a user only if it belongs to orgID.
func (r *Repository) GetInOrganization(ctx context.Context, orgID, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND organization_id = $2`
	u, err := scanUser(database.Conn(ctx, r.db).QueryRow(ctx, q, id, orgID))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// FindByEmail looks up an identity by email. A non-empty role restricts the lookup to that role.
func (r *Repository) FindByEmail(ctx context.Context, email string, role models.Role) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND ($2 = '' OR role = $2)`
	u, err := scanUser(database.Conn(ctx, r.db).QueryRow(ctx, q, email, string(role)))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ListByOrganization returns the organization's users ordered by name.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY name, email`
	rows, err := database.Conn(ctx, r.db).Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// UpdateRole changes a user's role within orgID.
func (r *Repository) UpdateRole(ctx context.Context, orgID, id uuid.UUID, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	q := `UPDATE users SET role = $3, updated_at = now() WHERE id = $1 AND organization_id = $2 RETURNING ` + userColumns
	u, err := scanUser(database.Conn(ctx, r.db).QueryRow(ctx, q, id, orgID, string(role)))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// ProfilePatch holds optional profile changes. Nil fields are left unchanged.
type ProfilePatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// UpdateProfile applies patch to a user within orgID.
func (r *Repository) UpdateProfile(ctx context.Context, orgID, id uuid.UUID, patch ProfilePatch) (*models.User, error) {
	q := `UPDATE users SET
		name = COALESCE($3, name),
		email = COALESCE($4, email),
		password_hash = COALESCE($5, password_hash),
		updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING ` + userColumns
	u, err := scanUser(database.Conn(ctx, r.db).QueryRow(ctx, q, id, orgID, patch.Name, patch.Email, patch.PasswordHash))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, notFound(err)
	}
	return u, nil
}

// MoveToOrganization re-homes a user into another organization.
func (r *Repository) MoveToOrganization(ctx context.Context, id, orgID uuid.UUID) (*models.User, error) {
	q := `UPDATE users SET organization_id = $2, updated_at = now() WHERE id = $1 RETURNING ` + userColumns
	u, err := scanUser(database.Conn(ctx, r.db).QueryRow(ctx, q, id, orgID))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// Delete removes a user within orgID.
func (r *Repository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	tag, err := database.Conn(ctx, r.db).Exec(ctx, `DELETE FROM users WHERE id = $1 AND organization_id = $2`, id, orgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
