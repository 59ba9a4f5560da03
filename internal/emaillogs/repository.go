// Package emaillogs records outbound email attempts.
package emaillogs

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/database"
)

const logColumns = `id, organization_id, invite_id, email_type, recipient_email, subject, status, sent_at, error_message, created_at`

// Repository handles email_logs persistence.
type Repository struct {
	db database.DB
}

// NewRepository creates an email logs repository.
func NewRepository(db database.DB) *Repository {
	return &Repository{db: db}
}

func scanLog(row interface{ Scan(dest ...any) error }) (*models.EmailLog, error) {
	var el models.EmailLog
	var subject, errMsg *string
	if err := row.Scan(&el.ID, &el.OrganizationID, &el.InviteID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
		return nil, err
	}
	if subject != nil {
		el.Subject = *subject
	}
	if errMsg != nil {
		el.ErrorMessage = *errMsg
	}
	return &el, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create records one delivery attempt.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) (*models.EmailLog, error) {
	const q = `INSERT INTO email_logs (organization_id, invite_id, email_type, recipient_email, subject, status, sent_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + logColumns
	return scanLog(database.Conn(ctx, r.db).QueryRow(ctx, q,
		el.OrganizationID, el.InviteID, el.EmailType, el.RecipientEmail, nullable(el.Subject), el.Status, el.SentAt, nullable(el.ErrorMessage)))
}

// ListByOrganization returns email logs for an organization, newest first.
func (r *Repository) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.EmailLog, error) {
	const q = `SELECT ` + logColumns + ` FROM email_logs WHERE organization_id = $1 ORDER BY created_at DESC`
	rows, err := database.Conn(ctx, r.db).Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*models.EmailLog, 0)
	for rows.Next() {
		el, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, el)
	}
	return list, rows.Err()
}
