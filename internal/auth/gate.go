package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/apperr"
)

var (
	ErrMissingToken    = apperr.New(apperr.Unauthenticated, "missing authorization token")
	ErrTokenRejected   = apperr.New(apperr.Unauthenticated, "invalid or expired token")
	ErrIdentityRemoved = apperr.New(apperr.Unauthenticated, "user no longer exists")
)

// IdentityLookup loads the current persisted identity for a token subject.
type IdentityLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Gate authenticates bearer tokens against the identity store.
type Gate struct {
	tokens     *JWTService
	identities IdentityLookup
}

// NewGate creates a Gate. Role and organization always come from identities, not the token.
func NewGate(tokens *JWTService, identities IdentityLookup) *Gate {
	return &Gate{tokens: tokens, identities: identities}
}

// Authenticate verifies token and resolves the caller's current role and organization.
func (g *Gate) Authenticate(ctx context.Context, token string) (models.Principal, error) {
	if token == "" {
		return models.Principal{}, ErrMissingToken
	}
	claims, err := g.tokens.Validate(token)
	if err != nil {
		return models.Principal{}, ErrTokenRejected
	}
	u, err := g.identities.GetByID(ctx, claims.UserID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return models.Principal{}, ErrIdentityRemoved
		}
		return models.Principal{}, fmt.Errorf("resolve identity: %w", err)
	}
	return models.PrincipalOf(u), nil
}

// Authorize reports whether actual is one of the required roles.
func Authorize(required []models.Role, actual models.Role) bool {
	return slices.Contains(required, actual)
}
