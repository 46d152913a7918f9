package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/repository"
)

type fakeUserStore struct {
	users   []model.User
	created []model.User
}

func (s *fakeUserStore) Create(_ context.Context, email, passwordHash, fullName string, role model.Role) (*model.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return nil, repository.ErrEmailTaken
		}
	}
	u := model.User{ID: uuid.New(), Email: email, FullName: fullName, Role: role, CreatedAt: time.Now()}
	s.users = append(s.users, u)
	s.created = append(s.created, u)
	return &u, nil
}

func (s *fakeUserStore) List(_ context.Context) ([]model.User, error) {
	return s.users, nil
}

func newAdminHandler(store *fakeUserStore) *AdminHandler {
	return &AdminHandler{
		Users: store,
		Auth: StaticTokens{
			"admin-token": model.RoleAdmin,
			"mod-token":   model.RoleModerator,
			"user-token":  model.RoleUser,
		},
		Validate: validator.New(),
		Log:      zerolog.Nop(),
	}
}

func adminRequest(method, body, token string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/v1/admin/users", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestListUsersWithoutTokenIs401(t *testing.T) {
	h := newAdminHandler(&fakeUserStore{})
	c, rec := adminRequest(http.MethodGet, "", "")
	if err := h.ListUsers(c); err != nil {
		t.Fatalf("list users: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListUsersWithUnknownTokenIs401(t *testing.T) {
	h := newAdminHandler(&fakeUserStore{})
	c, rec := adminRequest(http.MethodGet, "", "stale-token")
	if err := h.ListUsers(c); err != nil {
		t.Fatalf("list users: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestModeratorTokenIsForbidden(t *testing.T) {
	store := &fakeUserStore{users: []model.User{{Email: "a@b.com"}}}
	h := newAdminHandler(store)

	c, rec := adminRequest(http.MethodGet, "", "mod-token")
	if err := h.ListUsers(c); err != nil {
		t.Fatalf("list users: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("moderator list: expected 403, got %d", rec.Code)
	}

	c, rec = adminRequest(http.MethodPost, `{"email":"new@b.com","password":"longenough"}`, "mod-token")
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("moderator create: expected 403, got %d", rec.Code)
	}
	if len(store.created) != 0 {
		t.Fatal("forbidden create must not reach the store")
	}
}

func TestAdminListsUsers(t *testing.T) {
	store := &fakeUserStore{users: []model.User{{Email: "a@b.com"}, {Email: "b@b.com"}}}
	h := newAdminHandler(store)

	c, rec := adminRequest(http.MethodGet, "", "admin-token")
	if err := h.ListUsers(c); err != nil {
		t.Fatalf("list users: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "a@b.com") || !strings.Contains(rec.Body.String(), "b@b.com") {
		t.Fatalf("user list missing accounts: %s", rec.Body)
	}
}

func TestAdminCreatesUserWithDefaultRole(t *testing.T) {
	store := &fakeUserStore{}
	h := newAdminHandler(store)

	c, rec := adminRequest(http.MethodPost, `{"email":"tech@example.com","password":"longenough","full_name":"Field Tech"}`, "admin-token")
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	if len(store.created) != 1 || store.created[0].Role != model.RoleUser {
		t.Fatalf("expected one user with default role, got %v", store.created)
	}
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	h := newAdminHandler(&fakeUserStore{})
	c, rec := adminRequest(http.MethodPost, `{"email":"tech@example.com","password":"short"}`, "admin-token")
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateUserDuplicateEmailIs409(t *testing.T) {
	store := &fakeUserStore{users: []model.User{{Email: "tech@example.com"}}}
	h := newAdminHandler(store)
	c, rec := adminRequest(http.MethodPost, `{"email":"tech@example.com","password":"longenough"}`, "admin-token")
	if err := h.CreateUser(c); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
