package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/invites"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/internal/organizations"
	"github.com/taskpro/backend/internal/tasks"
	"github.com/taskpro/backend/internal/users"
	"github.com/taskpro/backend/pkg/apperr"
	"github.com/taskpro/backend/pkg/cryptox"
)

// Orgs mirrors organizations.Repository.
type Orgs struct{ db *DB }

func (o *Orgs) Create(_ context.Context, name, theme string) (*models.Organization, error) {
	st, now, unlock := o.db.lock()
	defer unlock()
	for _, org := range st.orgs {
		if org.Name == name {
			return nil, organizations.ErrNameTaken
		}
	}
	if theme == "" {
		theme = models.DefaultTheme
	}
	org := models.Organization{ID: uuid.New(), Name: name, Theme: theme, CreatedAt: now, UpdatedAt: now}
	st.orgs[org.ID] = org
	return ptr(org), nil
}

func (o *Orgs) GetOrCreateByName(ctx context.Context, name string) (*models.Organization, error) {
	if org, err := o.GetByName(ctx, name); err == nil {
		return org, nil
	}
	return o.Create(ctx, name, "")
}

func (o *Orgs) GetByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	st, _, unlock := o.db.lock()
	defer unlock()
	org, ok := st.orgs[id]
	if !ok {
		return nil, organizations.ErrNotFound
	}
	return ptr(org), nil
}

func (o *Orgs) GetByName(_ context.Context, name string) (*models.Organization, error) {
	st, _, unlock := o.db.lock()
	defer unlock()
	for _, org := range st.orgs {
		if org.Name == name {
			return ptr(org), nil
		}
	}
	return nil, organizations.ErrNotFound
}

func (o *Orgs) Update(_ context.Context, id uuid.UUID, p organizations.Patch) (*models.Organization, error) {
	st, now, unlock := o.db.lock()
	defer unlock()
	org, ok := st.orgs[id]
	if !ok {
		return nil, organizations.ErrNotFound
	}
	if p.Name != nil {
		for _, other := range st.orgs {
			if other.ID != id && other.Name == *p.Name {
				return nil, organizations.ErrNameTaken
			}
		}
		org.Name = *p.Name
	}
	if p.Theme != nil {
		org.Theme = *p.Theme
	}
	org.UpdatedAt = now
	st.orgs[id] = org
	return ptr(org), nil
}

// Delete cascades to the organization's users, tasks, invites and email logs.
func (o *Orgs) Delete(_ context.Context, id uuid.UUID) error {
	st, _, unlock := o.db.lock()
	defer unlock()
	if _, ok := st.orgs[id]; !ok {
		return organizations.ErrNotFound
	}
	delete(st.orgs, id)
	for uid, u := range st.users {
		if u.OrganizationID == id {
			delete(st.users, uid)
		}
	}
	for tid, t := range st.tasks {
		if t.OrganizationID == id {
			delete(st.tasks, tid)
		}
	}
	for iid, inv := range st.invites {
		if inv.OrganizationID == id {
			delete(st.invites, iid)
		}
	}
	kept := st.emails[:0]
	for _, el := range st.emails {
		if el.OrganizationID != id {
			kept = append(kept, el)
		}
	}
	st.emails = kept
	return nil
}

// Users mirrors users.Repository.
type Users struct{ db *DB }

func (u *Users) Create(_ context.Context, p users.CreateParams) (*models.User, error) {
	if !p.Role.Valid() {
		return nil, users.ErrInvalidRole
	}
	st, now, unlock := u.db.lock()
	defer unlock()
	for _, other := range st.users {
		if strings.EqualFold(other.Email, p.Email) {
			return nil, users.ErrEmailTaken
		}
	}
	if _, ok := st.orgs[p.OrganizationID]; !ok {
		return nil, apperr.New(apperr.Validation, "organization not found")
	}
	user := models.User{
		ID: uuid.New(), Name: p.Name, Email: p.Email, Password: p.PasswordHash,
		OrganizationID: p.OrganizationID, Role: p.Role, InvitedBy: p.InvitedBy,
		CreatedAt: now, UpdatedAt: now,
	}
	st.users[user.ID] = user
	return ptr(user), nil
}

func (u *Users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	st, _, unlock := u.db.lock()
	defer unlock()
	user, ok := st.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return ptr(user), nil
}

func (u *Users) GetInOrganization(_ context.Context, orgID, id uuid.UUID) (*models.User, error) {
	st, _, unlock := u.db.lock()
	defer unlock()
	user, ok := st.users[id]
	if !ok || user.OrganizationID != orgID {
		return nil, users.ErrNotFound
	}
	return ptr(user), nil
}

func (u *Users) FindByEmail(_ context.Context, email string, role models.Role) (*models.User, error) {
	st, _, unlock := u.db.lock()
	defer unlock()
	for _, user := range st.users {
		if strings.EqualFold(user.Email, email) && (role == "" || user.Role == role) {
			return ptr(user), nil
		}
	}
	return nil, users.ErrNotFound
}

func (u *Users) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]*models.User, error) {
	st, _, unlock := u.db.lock()
	defer unlock()
	list := make([]*models.User, 0)
	for _, user := range st.users {
		if user.OrganizationID == orgID {
			list = append(list, ptr(user))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (u *Users) UpdateRole(_ context.Context, orgID, id uuid.UUID, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, users.ErrInvalidRole
	}
	return u.update(orgID, id, func(user *models.User) error {
		user.Role = role
		return nil
	})
}

func (u *Users) UpdateProfile(_ context.Context, orgID, id uuid.UUID, p users.ProfilePatch) (*models.User, error) {
	st, _, unlock := u.db.lock()
	if p.Email != nil {
		for _, other := range st.users {
			if other.ID != id && strings.EqualFold(other.Email, *p.Email) {
				unlock()
				return nil, users.ErrEmailTaken
			}
		}
	}
	unlock()
	return u.update(orgID, id, func(user *models.User) error {
		if p.Name != nil {
			user.Name = *p.Name
		}
		if p.Email != nil {
			user.Email = *p.Email
		}
		if p.PasswordHash != nil {
			user.Password = *p.PasswordHash
		}
		return nil
	})
}

func (u *Users) MoveToOrganization(_ context.Context, id, orgID uuid.UUID) (*models.User, error) {
	st, now, unlock := u.db.lock()
	defer unlock()
	user, ok := st.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	user.OrganizationID = orgID
	user.UpdatedAt = now
	st.users[id] = user
	return ptr(user), nil
}

func (u *Users) Delete(_ context.Context, orgID, id uuid.UUID) error {
	st, _, unlock := u.db.lock()
	defer unlock()
	user, ok := st.users[id]
	if !ok || user.OrganizationID != orgID {
		return users.ErrNotFound
	}
	delete(st.users, id)
	for tid, t := range st.tasks {
		if t.AssignedToUser(id) {
			t.AssignedTo = nil
			st.tasks[tid] = t
		}
	}
	return nil
}

func (u *Users) update(orgID, id uuid.UUID, fn func(*models.User) error) (*models.User, error) {
	st, now, unlock := u.db.lock()
	defer unlock()
	user, ok := st.users[id]
	if !ok || user.OrganizationID != orgID {
		return nil, users.ErrNotFound
	}
	if err := fn(&user); err != nil {
		return nil, err
	}
	user.UpdatedAt = now
	st.users[id] = user
	return ptr(user), nil
}

// Invites mirrors invites.Ledger.
type Invites struct{ db *DB }

func (i *Invites) Issue(_ context.Context, p invites.IssueParams) (string, *models.Invite, error) {
	if p.Role == "" {
		p.Role = models.RoleMember
	}
	if !p.Role.Valid() {
		return "", nil, apperr.New(apperr.Validation, "invalid role")
	}
	token, err := cryptox.GenerateToken()
	if err != nil {
		return "", nil, err
	}
	st, now, unlock := i.db.lock()
	defer unlock()
	inv := models.Invite{
		ID: uuid.New(), Email: p.Email, OrganizationID: p.OrganizationID, Role: p.Role,
		TokenHash: cryptox.Fingerprint(token), InvitedBy: p.InvitedBy,
		CreatedAt: now, ExpiresAt: now.Add(models.InviteTTL),
	}
	st.invites[inv.ID] = inv
	return token, ptr(inv), nil
}

func (i *Invites) Validate(_ context.Context, token string) (*models.Invite, error) {
	if token == "" {
		return nil, invites.ErrInvalidInvite
	}
	st, now, unlock := i.db.lock()
	defer unlock()
	hash := cryptox.Fingerprint(token)
	for _, inv := range st.invites {
		if inv.TokenHash == hash {
			if !inv.Usable(now) {
				return nil, invites.ErrInvalidInvite
			}
			return ptr(inv), nil
		}
	}
	return nil, invites.ErrInvalidInvite
}

func (i *Invites) Consume(_ context.Context, id uuid.UUID) error {
	st, now, unlock := i.db.lock()
	defer unlock()
	inv, ok := st.invites[id]
	if !ok || !inv.Usable(now) {
		return invites.ErrInvalidInvite
	}
	inv.Accepted = true
	st.invites[id] = inv
	return nil
}

func (i *Invites) ListPending(_ context.Context, orgID uuid.UUID) ([]*models.Invite, error) {
	st, now, unlock := i.db.lock()
	defer unlock()
	list := make([]*models.Invite, 0)
	for _, inv := range st.invites {
		if inv.OrganizationID == orgID && inv.Usable(now) {
			list = append(list, ptr(inv))
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].CreatedAt.After(list[b].CreatedAt) })
	return list, nil
}

// Tasks mirrors tasks.Repository.
type Tasks struct{ db *DB }

func (t *Tasks) Create(_ context.Context, task *models.Task) (*models.Task, error) {
	st, now, unlock := t.db.lock()
	defer unlock()
	if _, ok := st.orgs[task.OrganizationID]; !ok {
		return nil, apperr.New(apperr.Validation, "organization not found")
	}
	row := *task
	row.ID = uuid.New()
	row.CreatedAt, row.UpdatedAt = now, now
	st.tasks[row.ID] = row
	return ptr(row), nil
}

func (t *Tasks) GetByID(_ context.Context, orgID, id uuid.UUID) (*models.Task, error) {
	st, _, unlock := t.db.lock()
	defer unlock()
	row, ok := st.tasks[id]
	if !ok || row.OrganizationID != orgID {
		return nil, tasks.ErrNotFound
	}
	return ptr(row), nil
}

func (t *Tasks) List(_ context.Context, orgID uuid.UUID, f tasks.Filter) ([]*models.Task, error) {
	st, _, unlock := t.db.lock()
	defer unlock()
	list := make([]*models.Task, 0)
	for _, row := range st.tasks {
		switch {
		case row.OrganizationID != orgID,
			f.Status != "" && row.Status != f.Status,
			f.Category != "" && row.Category != f.Category,
			f.Priority != "" && row.Priority != f.Priority,
			f.AssignedTo != nil && !row.AssignedToUser(*f.AssignedTo):
			continue
		}
		list = append(list, ptr(row))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (t *Tasks) Save(_ context.Context, task *models.Task, from models.TaskStatus) (*models.Task, error) {
	st, now, unlock := t.db.lock()
	defer unlock()
	row, ok := st.tasks[task.ID]
	if !ok || row.OrganizationID != task.OrganizationID {
		return nil, tasks.ErrNotFound
	}
	saved := *task
	if task.Status == from {
		saved.Status = row.Status
	} else if row.Status != from {
		return nil, tasks.ErrStatusChanged
	}
	saved.CreatedAt, saved.CreatedBy = row.CreatedAt, row.CreatedBy
	saved.UpdatedAt = now
	st.tasks[task.ID] = saved
	return ptr(saved), nil
}

func (t *Tasks) Delete(_ context.Context, orgID, id uuid.UUID) error {
	st, _, unlock := t.db.lock()
	defer unlock()
	row, ok := st.tasks[id]
	if !ok || row.OrganizationID != orgID {
		return tasks.ErrNotFound
	}
	delete(st.tasks, id)
	return nil
}

func (t *Tasks) ExpireOverdue(_ context.Context, now time.Time) ([]tasks.ExpiredTask, error) {
	st, _, unlock := t.db.lock()
	defer unlock()
	var expired []tasks.ExpiredTask
	for id, row := range st.tasks {
		if row.Overdue(now) {
			row.Status = models.StatusExpired
			row.UpdatedAt = now
			st.tasks[id] = row
			expired = append(expired, tasks.ExpiredTask{ID: id, OrganizationID: row.OrganizationID})
		}
	}
	return expired, nil
}

// Emails mirrors emaillogs.Repository.
type Emails struct{ db *DB }

func (e *Emails) Create(_ context.Context, el *models.EmailLog) (*models.EmailLog, error) {
	st, now, unlock := e.db.lock()
	defer unlock()
	row := *el
	row.ID = uuid.New()
	row.CreatedAt = now
	st.emails = append(st.emails, row)
	return ptr(row), nil
}

func (e *Emails) ListByOrganization(_ context.Context, orgID uuid.UUID) ([]*models.EmailLog, error) {
	st, _, unlock := e.db.lock()
	defer unlock()
	list := make([]*models.EmailLog, 0)
	for i := len(st.emails) - 1; i >= 0; i-- {
		if st.emails[i].OrganizationID == orgID {
			list = append(list, ptr(st.emails[i]))
		}
	}
	return list, nil
}
