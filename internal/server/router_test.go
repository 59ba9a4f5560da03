package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskpro/backend/internal/auth"
	"github.com/taskpro/backend/internal/dashboard"
	"github.com/taskpro/backend/internal/emaillogs"
	"github.com/taskpro/backend/internal/invites"
	"github.com/taskpro/backend/internal/members"
	"github.com/taskpro/backend/internal/memstore"
	"github.com/taskpro/backend/internal/models"
	"github.com/taskpro/backend/internal/organizations"
	"github.com/taskpro/backend/internal/realtime"
	"github.com/taskpro/backend/internal/server"
	"github.com/taskpro/backend/internal/tasks"
	"github.com/taskpro/backend/pkg/passwords"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) NotifyInvite(_ context.Context, inv *models.Invite, _ *models.Organization, _ string) error {
	n.sent = append(n.sent, inv.Email)
	return n.err
}

type app struct {
	router   *gin.Engine
	db       *memstore.DB
	hub      *realtime.Hub
	notifier *recordingNotifier
}

func newApp(t *testing.T, health map[string]server.HealthCheck) *app {
	t.Helper()
	logger := zap.NewNop()
	db := memstore.New()
	hasher := passwords.NewBcrypt(bcrypt.MinCost)
	jwtSvc := auth.NewJWTService("router-secret")
	hub := realtime.NewHub(logger, nil, nil)
	notifier := &recordingNotifier{}
	taskSvc := tasks.NewService(db.Tasks, db.Users, hub)

	router := server.NewRouter(server.Deps{
		Logger:        logger,
		Authenticator: auth.NewGate(jwtSvc, db.Users),
		Auth:          auth.NewHandler(auth.NewService(db.Users, db.Orgs, db.Invites, hasher, jwtSvc, db), logger),
		Orgs:          organizations.NewHandler(db.Orgs, db.Users, db, hub, logger),
		Members:       members.NewHandler(db.Users, hasher, hub, logger),
		Invites:       invites.NewHandler(db.Invites, db.Orgs, notifier, logger),
		Tasks:         tasks.NewHandler(taskSvc, logger),
		Dashboard:     dashboard.NewHandler(taskSvc),
		Emails:        emaillogs.NewHandler(db.Emails),
		Hub:           hub,
		Health:        health,
	})
	return &app{router: router, db: db, hub: hub, notifier: notifier}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]any](t, w)["message"].(string)
}

func (a *app) register(t *testing.T, path string, body map[string]string) auth.Session {
	t.Helper()
	w := a.do(t, http.MethodPost, path, "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[auth.Session](t, w)
}

// acme returns an Acme organization with an Admin, a Manager and a Member.
func (a *app) acme(t *testing.T) (admin, manager, member auth.Session) {
	t.Helper()
	admin = a.register(t, "/register", map[string]string{
		"name": "Alice", "email": "alice@acme.io", "password": "secret1", "organizationName": "Acme",
	})
	w := a.do(t, http.MethodPost, "/invite", admin.Token, map[string]string{"email": "bob@x.com", "role": "Manager"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	manager = a.register(t, "/register/manager", map[string]string{
		"name": "Bob", "email": "bob@x.com", "password": "secret1", "organizationName": "Acme",
		"inviteToken": inviteToken(t, decode[invites.CreateInviteResponse](t, w).InviteLink),
	})
	member = a.register(t, "/register/member", map[string]string{
		"name": "Carol", "email": "carol@acme.io", "password": "secret1", "organizationName": "Acme",
	})
	return admin, manager, member
}

func inviteToken(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("inviteToken")
}

func TestInviteRegisterAndDeleteOrganization(t *testing.T) {
	a := newApp(t, nil)
	admin, manager, _ := a.acme(t)

	assert.Equal(t, models.RoleManager, manager.User.Role)
	assert.Equal(t, admin.User.OrganizationID, manager.User.OrganizationID)
	assert.Equal(t, []string{"bob@x.com"}, a.notifier.sent)

	w := a.do(t, http.MethodGet, "/org", manager.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Acme", decode[models.Organization](t, w).Name)

	w = a.do(t, http.MethodDelete, "/org", manager.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodDelete, "/org", admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "organization deleted", message(t, w))

	w = a.do(t, http.MethodGet, "/tasks", manager.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInviteTokenIsSingleUse(t *testing.T) {
	a := newApp(t, nil)
	admin := a.register(t, "/register", map[string]string{
		"name": "Alice", "email": "alice@acme.io", "password": "secret1", "organizationName": "Acme",
	})
	w := a.do(t, http.MethodPost, "/invite", admin.Token, map[string]string{"email": "dan@x.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	link := decode[invites.CreateInviteResponse](t, w).InviteLink
	assert.True(t, strings.HasPrefix(link, "/register?"))
	token := inviteToken(t, link)

	body := map[string]string{"name": "Dan", "email": "dan@x.com", "password": "secret1", "inviteToken": token}
	s := a.register(t, "/register", body)
	assert.Equal(t, models.RoleMember, s.User.Role)

	w = a.do(t, http.MethodPost, "/register", "", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, message(t, w))
}

func TestInviteFailuresDoNotFailRequest(t *testing.T) {
	a := newApp(t, nil)
	a.notifier.err = errors.New("queue down")
	admin := a.register(t, "/register", map[string]string{
		"name": "Alice", "email": "alice@acme.io", "password": "secret1", "organizationName": "Acme",
	})
	w := a.do(t, http.MethodPost, "/invite", admin.Token, map[string]string{"email": "e@x.com", "role": "Member"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRoleMatrix(t *testing.T) {
	a := newApp(t, nil)
	admin, manager, member := a.acme(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"member cannot create tasks", http.MethodPost, "/tasks", member.Token, map[string]string{"title": "x"}, http.StatusForbidden},
		{"member cannot invite", http.MethodPost, "/invite", member.Token, map[string]string{"email": "z@x.com"}, http.StatusForbidden},
		{"manager cannot invite admins", http.MethodPost, "/invite", manager.Token, map[string]string{"email": "z@x.com", "role": "Admin"}, http.StatusForbidden},
		{"manager invites members", http.MethodPost, "/invite", manager.Token, map[string]string{"email": "z@x.com", "role": "Member"}, http.StatusCreated},
		{"manager cannot update org", http.MethodPut, "/org", manager.Token, map[string]string{"name": "New"}, http.StatusForbidden},
		{"manager lists members", http.MethodGet, "/members", manager.Token, nil, http.StatusOK},
		{"member cannot list members", http.MethodGet, "/members", member.Token, nil, http.StatusForbidden},
		{"manager cannot read email logs", http.MethodGet, "/emails", manager.Token, nil, http.StatusForbidden},
		{"admin reads email logs", http.MethodGet, "/emails", admin.Token, nil, http.StatusOK},
		{"member reads dashboard", http.MethodGet, "/dashboard/stats", member.Token, nil, http.StatusOK},
		{"no token", http.MethodGet, "/tasks", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/tasks", "nope", nil, http.StatusUnauthorized},
		{"unknown route", http.MethodGet, "/nope", admin.Token, nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			if w.Code >= 400 {
				assert.NotEmpty(t, message(t, w))
			}
		})
	}
}

func TestPromotionAppliesToExistingToken(t *testing.T) {
	a := newApp(t, nil)
	admin, _, member := a.acme(t)

	w := a.do(t, http.MethodPost, "/tasks", member.Token, map[string]string{"title": "x"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPatch, "/members/"+member.User.ID.String()+"/role", admin.Token, map[string]string{"role": "Manager"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/tasks", member.Token, map[string]string{"title": "x"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestTaskLifecycle(t *testing.T) {
	a := newApp(t, nil)
	_, manager, member := a.acme(t)

	w := a.do(t, http.MethodPost, "/tasks", manager.Token, map[string]any{
		"title": "Fix login", "category": "Bug", "priority": "High", "assignedTo": member.User.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	task := decode[models.Task](t, w)
	assert.Equal(t, models.StatusTodo, task.Status)
	path := "/tasks/" + task.ID.String()

	w = a.do(t, http.MethodPatch, path+"/status", member.Token, map[string]string{"status": "In Progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusInProgress, decode[models.Task](t, w).Status)

	w = a.do(t, http.MethodPatch, path+"/status", member.Token, map[string]string{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPatch, path+"/status", manager.Token, map[string]string{"status": "Todo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, message(t, w), "cannot change status")

	w = a.do(t, http.MethodPatch, path+"/status", manager.Token, map[string]string{"status": "Bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPut, path, manager.Token, map[string]any{"assignedTo": nil, "title": "Fix login flow"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Task](t, w)
	assert.Nil(t, updated.AssignedTo)
	assert.Equal(t, "Fix login flow", updated.Title)

	w = a.do(t, http.MethodGet, "/dashboard/stats", member.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[tasks.Stats](t, w)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.ByCategory[models.CategoryBug])

	w = a.do(t, http.MethodDelete, path, manager.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodGet, path, manager.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMemberStatusRequiresAssignment(t *testing.T) {
	a := newApp(t, nil)
	_, manager, member := a.acme(t)

	w := a.do(t, http.MethodPost, "/tasks", manager.Token, map[string]any{"title": "Unassigned"})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decode[models.Task](t, w)

	w = a.do(t, http.MethodPatch, "/tasks/"+task.ID.String()+"/status", member.Token, map[string]string{"status": "In Progress"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTasksAreTenantScoped(t *testing.T) {
	a := newApp(t, nil)
	_, manager, _ := a.acme(t)
	other := a.register(t, "/register", map[string]string{
		"name": "Olga", "email": "olga@globex.io", "password": "secret1", "organizationName": "Globex",
	})

	w := a.do(t, http.MethodPost, "/tasks", manager.Token, map[string]any{"title": "Secret"})
	require.Equal(t, http.StatusCreated, w.Code)
	path := "/tasks/" + decode[models.Task](t, w).ID.String()

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w = a.do(t, method, path, other.Token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, method)
	}
	w = a.do(t, http.MethodPatch, path+"/status", other.Token, map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(t, http.MethodPut, path, other.Token, map[string]any{"title": "Hijacked", "priority": "High"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, path, manager.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode[models.Task](t, w)
	assert.Equal(t, "Secret", task.Title)
	assert.Equal(t, models.StatusTodo, task.Status)

	w = a.do(t, http.MethodGet, "/tasks", other.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.Task](t, w))
}

func TestMembersAreTenantScoped(t *testing.T) {
	a := newApp(t, nil)
	_, _, member := a.acme(t)
	other := a.register(t, "/register", map[string]string{
		"name": "Olga", "email": "olga@globex.io", "password": "secret1", "organizationName": "Globex",
	})
	path := "/members/" + member.User.ID.String()

	w := a.do(t, http.MethodPut, path, other.Token, map[string]string{"name": "Renamed", "email": "stolen@globex.io"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(t, http.MethodPatch, path+"/role", other.Token, map[string]string{"role": "Admin"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(t, http.MethodDelete, path, other.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	u, err := a.db.Users.GetByID(context.Background(), member.User.ID)
	require.NoError(t, err)
	assert.Equal(t, member.User.Name, u.Name)
	assert.Equal(t, member.User.Email, u.Email)
	assert.Equal(t, models.RoleMember, u.Role)
	assert.Equal(t, member.User.OrganizationID, u.OrganizationID)

	w = a.do(t, http.MethodPost, "/login", "", map[string]string{"email": member.User.Email, "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginRoutes(t *testing.T) {
	a := newApp(t, nil)
	_, _, _ = a.acme(t)

	w := a.do(t, http.MethodPost, "/login/manager", "", map[string]string{"email": "bob@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodPost, "/login/admin", "", map[string]string{"email": "bob@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/login", "", map[string]string{"email": "bob@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/login", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	a := newApp(t, map[string]server.HealthCheck{"postgres": func(context.Context) error { return nil }})
	w := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	a = newApp(t, map[string]server.HealthCheck{"redis": func(context.Context) error { return errors.New("down") }})
	w = a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, message(t, w), "redis")
}

func TestWebSocketReceivesOrganizationEvents(t *testing.T) {
	a := newApp(t, nil)
	_, manager, member := a.acme(t)

	w := a.do(t, http.MethodGet, "/ws", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + url.QueryEscape(member.Token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return a.hub.Connected(member.User.OrganizationID) == 1 }, time.Second, 10*time.Millisecond)

	w = a.do(t, http.MethodPost, "/tasks", manager.Token, map[string]any{"title": "Live"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, tasks.EventCreated, msg.Event)
	assert.Contains(t, string(msg.Data), "Live")
}

func TestMemberAdministration(t *testing.T) {
	a := newApp(t, nil)
	admin, manager, member := a.acme(t)
	self := "/members/" + admin.User.ID.String()

	w := a.do(t, http.MethodDelete, self, admin.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(t, http.MethodPatch, self+"/role", admin.Token, map[string]string{"role": "Member"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPut, "/members/"+manager.User.ID.String(), admin.Token, map[string]string{"password": "newpass1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(t, http.MethodPost, "/login", "", map[string]string{"email": "bob@x.com", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(t, http.MethodDelete, "/members/"+member.User.ID.String(), admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodGet, "/tasks", member.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodGet, "/members", admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.UserPublic](t, w), 2)
}

func dialEvents(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestWebSocketClosedForRemovedMember(t *testing.T) {
	a := newApp(t, nil)
	admin, manager, member := a.acme(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	conn := dialEvents(t, srv, member.Token)
	orgID := member.User.OrganizationID
	require.Eventually(t, func() bool { return a.hub.Connected(orgID) == 1 }, time.Second, 10*time.Millisecond)

	w := a.do(t, http.MethodDelete, "/members/"+member.User.ID.String(), admin.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, a.hub.Connected(orgID))

	w = a.do(t, http.MethodPost, "/tasks", manager.Token, map[string]any{"title": "Confidential roadmap"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.WSMessage
	err := conn.ReadJSON(&msg)
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived), err.Error())
	assert.NotContains(t, string(msg.Data), "Confidential")
}

func TestWebSocketClosedWhenAdminMovesOrganization(t *testing.T) {
	a := newApp(t, nil)
	admin, manager, _ := a.acme(t)
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	conn := dialEvents(t, srv, admin.Token)
	orgID := admin.User.OrganizationID
	require.Eventually(t, func() bool { return a.hub.Connected(orgID) == 1 }, time.Second, 10*time.Millisecond)

	w := a.do(t, http.MethodPost, "/org", admin.Token, map[string]string{"name": "Initech"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Zero(t, a.hub.Connected(orgID))

	w = a.do(t, http.MethodPost, "/tasks", manager.Token, map[string]any{"title": "Acme only"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.WSMessage
	require.Error(t, conn.ReadJSON(&msg))
	assert.Empty(t, msg.Event)
}
