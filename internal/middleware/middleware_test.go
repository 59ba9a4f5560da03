package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpro/backend/internal/auth"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator map[string]models.Principal

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (models.Principal, error) {
	p, ok := s[token]
	if !ok {
		return models.Principal{}, auth.ErrTokenRejected
	}
	return p, nil
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func newRouter(authn Authenticator, roles ...models.Role) *gin.Engine {
	r := gin.New()
	r.GET("/protected", JWT(authn), RequireRole(roles...), func(c *gin.Context) {
		p := MustPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"role": p.Role})
	})
	return r
}

func TestJWT(t *testing.T) {
	authn := stubAuthenticator{
		"admin-token":  {UserID: uuid.New(), OrganizationID: uuid.New(), Role: models.RoleAdmin},
		"member-token": {UserID: uuid.New(), OrganizationID: uuid.New(), Role: models.RoleMember},
	}
	router := newRouter(authn, models.RoleAdmin, models.RoleManager)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic admin-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"insufficient role", "Bearer member-token", http.StatusForbidden},
		{"allowed role", "Bearer admin-token", http.StatusOK},
		{"scheme is case-insensitive", "bearer admin-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, decodeMessage(t, w))
			}
		})
	}
}

func TestRequireRole_NoPrincipal(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_Matrix(t *testing.T) {
	for _, tt := range []struct {
		role    models.Role
		allowed []models.Role
		status  int
	}{
		{models.RoleAdmin, []models.Role{models.RoleAdmin}, http.StatusOK},
		{models.RoleManager, []models.Role{models.RoleAdmin}, http.StatusForbidden},
		{models.RoleManager, []models.Role{models.RoleAdmin, models.RoleManager}, http.StatusOK},
		{models.RoleMember, []models.Role{models.RoleAdmin, models.RoleManager}, http.StatusForbidden},
		{models.RoleMember, []models.Role{models.RoleAdmin, models.RoleManager, models.RoleMember}, http.StatusOK},
	} {
		t.Run(string(tt.role), func(t *testing.T) {
			router := newRouter(stubAuthenticator{"t": {UserID: uuid.New(), Role: tt.role}}, tt.allowed...)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer t")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 26)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "client-id")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-id", w.Header().Get(HeaderRequestID))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1").Code)
	limited := do("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2").Code, "limits are per client IP")
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0)
	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
