package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTheme is applied to organizations created without a theme.
const DefaultTheme = "default"

// Organization is the tenant boundary; all users, tasks and invites belong to one.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
