package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is an identity's permission level inside its organization.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleMember  Role = "Member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// User is an authenticatable identity. Every user belongs to exactly one organization.
type User struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Password       string     `json:"-"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Role           Role       `json:"role"`
	InvitedBy      *uuid.UUID `json:"invitedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	Role           Role       `json:"role"`
	InvitedBy      *uuid.UUID `json:"invitedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
		InvitedBy:      u.InvitedBy,
		CreatedAt:      u.CreatedAt,
	}
}

// Principal is the caller of an authenticated request, as currently persisted.
type Principal struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           Role
}

// PrincipalOf returns the principal for a loaded user.
func PrincipalOf(u *User) Principal {
	return Principal{UserID: u.ID, OrganizationID: u.OrganizationID, Role: u.Role}
}
