package models

import (
	"time"

	"github.com/google/uuid"
)

const EmailTypeInvite = "invite"

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent    = "sent"
	EmailLogStatusFailed  = "failed"
	EmailLogStatusSkipped = "skipped"
)

// EmailLog records an outbound email attempt.
type EmailLog struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	InviteID       *uuid.UUID `json:"inviteId,omitempty"`
	EmailType      string     `json:"emailType"`
	RecipientEmail string     `json:"recipientEmail"`
	Subject        string     `json:"subject,omitempty"`
	Status         string     `json:"status"`
	SentAt         *time.Time `json:"sentAt,omitempty"`
	ErrorMessage   string     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
