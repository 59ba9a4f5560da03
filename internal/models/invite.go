package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteTTL is how long an invite can be redeemed after it is issued.
const InviteTTL = 24 * time.Hour

// Invite authorizes one registration into an organization with a given role.
// Only the SHA-256 fingerprint of the token is stored.
type Invite struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Role           Role       `json:"role"`
	TokenHash      string     `json:"-"`
	InvitedBy      *uuid.UUID `json:"invitedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ExpiresAt      time.Time  `json:"expiresAt"`
	Accepted       bool       `json:"accepted"`
}

// Usable reports whether the invite can still be redeemed at now.
func (i *Invite) Usable(now time.Time) bool {
	return !i.Accepted && now.Before(i.ExpiresAt)
}
