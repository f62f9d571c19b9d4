package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tillpoint.org/internal/auth"
	"tillpoint.org/internal/ids"
	"tillpoint.org/internal/rbac"
)

type memSessions struct {
	mu   sync.Mutex
	byID map[string]*auth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byID: map[string]*auth.Session{}}
}

func (m *memSessions) Create(_ context.Context, sess *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	m.byID[sess.ID] = &cp
	return nil
}

func (m *memSessions) FindActiveByTokenID(_ context.Context, tokenID string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.TokenID == tokenID && !s.Revoked {
			cp := *s
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (m *memSessions) Find(_ context.Context, id string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) TouchLastUsed(_ context.Context, id string, now, staleBefore time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil
	}
	if s.LastUsedAt == nil || s.LastUsedAt.Before(staleBefore) {
		t := now
		s.LastUsedAt = &t
	}
	return nil
}

func (m *memSessions) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		s.Revoked = true
	}
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.UserID == userID {
			s.Revoked = true
		}
	}
	return nil
}

type memDirectory struct {
	mu        sync.Mutex
	users     map[string]*auth.User
	byEmail   map[string]*auth.User
	roles     map[string]*auth.Role
	rolePerms map[string][]string
	userPerms map[string][]string
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users:     map[string]*auth.User{},
		byEmail:   map[string]*auth.User{},
		roles:     map[string]*auth.Role{},
		rolePerms: map[string][]string{},
		userPerms: map[string][]string{},
	}
}

func (m *memDirectory) FindUser(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memDirectory) FindUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memDirectory) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		t := at
		u.LastLoginAt = &t
	}
	return nil
}

func (m *memDirectory) FindRole(_ context.Context, id string) (*auth.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memDirectory) EffectivePermissions(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	add := func(slugs []string) {
		for _, s := range slugs {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	if u, ok := m.users[userID]; ok && u.RoleID != "" {
		add(m.rolePerms[u.RoleID])
	}
	add(m.userPerms[userID])
	return out, nil
}

func (m *memDirectory) RolePermissions(_ context.Context, roleID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.rolePerms[roleID]...), nil
}

func (m *memDirectory) SetRolePermissions(_ context.Context, roleID string, slugs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolePerms[roleID] = append([]string(nil), slugs...)
	return nil
}

type testEnv struct {
	api      *API
	handler  http.Handler
	svc      *auth.Service
	dir      *memDirectory
	sessions *memSessions
}

func newTestEnv(t *testing.T, opts ...auth.Option) *testEnv {
	t.Helper()
	signer, err := auth.NewTokenSigner("test-secret", "HS256", serviceName)
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}
	dir := newMemDirectory()
	sessions := newMemSessions()
	svc, err := auth.NewService(sessions, dir, signer, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(Options{
		Auth:      svc,
		Directory: dir,
		Catalog:   rbac.Builtin(),
		Version:   "test",
	})
	return &testEnv{api: api, handler: api.Handler(), svc: svc, dir: dir, sessions: sessions}
}

// addRole registers a role and its grants, returning the role id.
func (e *testEnv) addRole(t *testing.T, slug string, perms []string) string {
	t.Helper()
	id := ids.New()
	e.dir.mu.Lock()
	e.dir.roles[id] = &auth.Role{ID: id, Slug: slug, Name: slug}
	e.dir.rolePerms[id] = append([]string(nil), perms...)
	e.dir.mu.Unlock()
	return id
}

// addUser registers an active user holding the given role.
func (e *testEnv) addUser(t *testing.T, email, password, roleID string) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := &auth.User{
		ID:           ids.New(),
		TenantID:     "t1",
		Email:        email,
		PasswordHash: hash,
		RoleID:       roleID,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	e.dir.mu.Lock()
	e.dir.users[u.ID] = u
	e.dir.byEmail[u.Email] = u
	e.dir.mu.Unlock()
	return u
}

// login issues a token pair directly through the service.
func (e *testEnv) login(t *testing.T, email, password string) auth.TokenBundle {
	t.Helper()
	bundle, _, err := e.svc.Login(context.Background(), email, password, "test")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	return bundle
}

func (e *testEnv) do(t *testing.T, method, target, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func wantMessage(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d (body %s)", status, rec.Code, rec.Body.String())
	}
	var body struct {
		Message string `json:"message"`
	}
	decodeBody(t, rec, &body)
	if body.Message != message {
		t.Fatalf("expected message %q, got %q", message, body.Message)
	}
}
