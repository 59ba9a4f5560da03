package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpro/backend/internal/models"
)

func newTestUser() *models.User {
	return &models.User{ID: uuid.New(), OrganizationID: uuid.New(), Role: models.RoleManager}
}

func TestJWTService_RoundTrip(t *testing.T) {
	s := NewJWTService("secret")
	u := newTestUser()

	token, err := s.Generate(u)
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.OrganizationID, claims.OrganizationID)
	assert.Equal(t, models.RoleManager, claims.Role)
	assert.Equal(t, TokenLifetime, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestJWTService_Expiry(t *testing.T) {
	issued := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s := NewJWTService("secret")
	s.now = func() time.Time { return issued }

	token, err := s.Generate(newTestUser())
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(TokenLifetime - time.Minute) }
	_, err = s.Validate(token)
	assert.NoError(t, err)

	s.now = func() time.Time { return issued.Add(TokenLifetime + time.Minute) }
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_Rejects(t *testing.T) {
	s := NewJWTService("secret")
	good, err := s.Generate(newTestUser())
	require.NoError(t, err)

	other, err := NewJWTService("other-secret").Generate(newTestUser())
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: uuid.New()}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: uuid.New()}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":          "",
		"garbage":        "not.a.jwt",
		"bad signature":  other,
		"alg none":       none,
		"missing expiry": noExp,
		"truncated":      good[:len(good)-4],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
