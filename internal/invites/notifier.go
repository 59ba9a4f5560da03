package invites

import (
	"context"
	"fmt"
	"net/url"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/queue"
)

// Link returns the path a recipient opens to redeem token.
// Manager invites go to the manager registration page.
func Link(role models.Role, token string) string {
	path := "/register"
	if role == models.RoleManager {
		path = "/register/manager"
	}
	return path + "?inviteToken=" + url.QueryEscape(token)
}

// Subject is the subject line of an invite email.
func Subject(role models.Role) string {
	return fmt.Sprintf("Invitation (%s)", role)
}

// Enqueuer queues invite emails for the mail worker.
type Enqueuer interface {
	EnqueueInviteEmail(ctx context.Context, payload queue.EmailPayload) error
}

// QueueNotifier hands invite emails to the Redis mail queue.
type QueueNotifier struct {
	queue       Enqueuer
	frontendURL string
}

// NewQueueNotifier creates a notifier that links to frontendURL.
func NewQueueNotifier(q Enqueuer, frontendURL string) *QueueNotifier {
	return &QueueNotifier{queue: q, frontendURL: frontendURL}
}

// NotifyInvite enqueues the invite email for inv.
func (n *QueueNotifier) NotifyInvite(ctx context.Context, inv *models.Invite, org *models.Organization, token string) error {
	link := n.frontendURL + Link(inv.Role, token)
	body := fmt.Sprintf("You have been invited to join %s on TaskPro as %s.\n\nAccept the invitation: %s\n\nThis link expires at %s.\n",
		org.Name, inv.Role, link, inv.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	id := inv.ID
	return n.queue.EnqueueInviteEmail(ctx, queue.EmailPayload{
		OrganizationID: inv.OrganizationID,
		InviteID:       &id,
		RecipientEmail: inv.Email,
		Subject:        Subject(inv.Role),
		Body:           body,
	})
}
