// Package invites issues and redeems single-use, time-limited organization invites.
package invites

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
	"github.com/taskpro/backend/pkg/cryptox"
	"github.com/taskpro/backend/pkg/database"
)

// ErrInvalidInvite covers unknown, expired and already accepted invites alike.
var ErrInvalidInvite = apperr.New(apperr.Validation, "invalid or expired invite")

const inviteColumns = `id, email, organization_id, role, token_hash, invited_by, created_at, expires_at, accepted`

// Ledger is the Postgres-backed invite store.
type Ledger struct {
	db  database.DB
	now func() time.Time
}

// NewLedger creates an invite ledger.
func NewLedger(db database.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// IssueParams describe a new invite.
type IssueParams struct {
	Email          string
	OrganizationID uuid.UUID
	Role           models.Role
	InvitedBy      *uuid.UUID
}

func scanInvite(row interface{ Scan(dest ...any) error }) (*models.Invite, error) {
	var inv models.Invite
	if err := row.Scan(&inv.ID, &inv.Email, &inv.OrganizationID, &inv.Role, &inv.TokenHash, &inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.Accepted); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Issue stores a new invite valid for models.InviteTTL and returns the raw token.
// The raw token is never persisted.
func (l *Ledger) Issue(ctx context.Context, p IssueParams) (string, *models.Invite, error) {
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	if !p.Role.Valid() {
		return "", nil, apperr.New(apperr.Validation, "invalid role")
	}
	token, err := cryptox.GenerateToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate invite token: %w", err)
	}
	now := l.now().UTC()
	const q = `INSERT INTO invites (email, organization_id, role, token_hash, invited_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + inviteColumns
	inv, err := scanInvite(database.Conn(ctx, l.db).QueryRow(ctx, q,
		p.Email, p.OrganizationID, string(p.Role), cryptox.Fingerprint(token), p.InvitedBy, now, now.Add(models.InviteTTL)))
	if err != nil {
		return "", nil, fmt.Errorf("insert invite: %w", err)
	}
	return token, inv, nil
}

// Validate returns the invite for token if it is unaccepted and its expiry is strictly in the future.
func (l *Ledger) Validate(ctx context.Context, token string) (*models.Invite, error) {
	if token == "" {
		return nil, ErrInvalidInvite
	}
	const q = `SELECT ` + inviteColumns + ` FROM invites WHERE token_hash = $1`
	inv, err := scanInvite(database.Conn(ctx, l.db).QueryRow(ctx, q, cryptox.Fingerprint(token)))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, ErrInvalidInvite
		}
		return nil, err
	}
	if !inv.Usable(l.now()) {
		return nil, ErrInvalidInvite
	}
	return inv, nil
}

// Consume marks the invite accepted. Only one caller can consume a given invite;
// later callers, and callers racing past an expiry, get ErrInvalidInvite.
func (l *Ledger) Consume(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE invites SET accepted = true WHERE id = $1 AND accepted = false AND expires_at > $2`
	tag, err := database.Conn(ctx, l.db).Exec(ctx, q, id, l.now().UTC())
	if err != nil {
		return fmt.Errorf("consume invite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidInvite
	}
	return nil
}

// ListPending returns the organization's unaccepted, unexpired invites, newest first.
func (l *Ledger) ListPending(ctx context.Context, orgID uuid.UUID) ([]*models.Invite, error) {
	const q = `SELECT ` + inviteColumns + ` FROM invites
		WHERE organization_id = $1 AND accepted = false AND expires_at > $2
		ORDER BY created_at DESC`
	rows, err := database.Conn(ctx, l.db).Query(ctx, q, orgID, l.now().UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]*models.Invite, 0)
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}
