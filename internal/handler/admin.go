package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/repository"
	"github.com/hvackit/fieldsync/internal/response"
)

// UserStore persists and reads backend accounts.
type UserStore interface {
	Create(ctx context.Context, email, passwordHash, fullName string, role model.Role) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

// AdminHandler serves the account admin API. Both endpoints need an
// admin token.
type AdminHandler struct {
	Users    UserStore
	Auth     RoleResolver
	Validate *validator.Validate
	Log      zerolog.Logger
}

// ListUsers returns all accounts (GET /v1/admin/users).
func (h *AdminHandler) ListUsers(c echo.Context) error {
	if ok, err := h.authorize(c, model.RoleAdmin); !ok {
		return err
	}
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("user list failed")
		return response.InternalError(c, "user list failed", err.Error())
	}
	if users == nil {
		users = []model.User{}
	}
	return response.OK(c, users, "")
}

// CreateUser registers a new account (POST /v1/admin/users).
func (h *AdminHandler) CreateUser(c echo.Context) error {
	if ok, err := h.authorize(c, model.RoleAdmin); !ok {
		return err
	}

	var req model.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid user payload", err.Error())
	}
	if err := h.Validate.Struct(req); err != nil {
		return response.BadRequest(c, "invalid user payload", err.Error())
	}
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if !model.ValidRole(req.Role) {
		return response.BadRequest(c, "invalid user payload", "unknown role "+string(req.Role))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return response.InternalError(c, "user creation failed", err.Error())
	}

	user, err := h.Users.Create(c.Request().Context(), req.Email, string(hash), req.FullName, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return response.Conflict(c, "email already registered", req.Email)
		}
		h.Log.Error().Err(err).Str("email", req.Email).Msg("user creation failed")
		return response.InternalError(c, "user creation failed", err.Error())
	}
	return response.Created(c, user, "")
}

// authorize enforces the bearer token and minimum role. On failure it
// writes the 401 or 403 itself and returns ok=false with the write result.
func (h *AdminHandler) authorize(c echo.Context, want model.Role) (bool, error) {
	token := bearerToken(c)
	if token == "" {
		return false, response.Unauthorized(c, "missing or invalid authorization header")
	}
	role, ok := h.Auth.Resolve(token)
	if !ok {
		return false, response.Unauthorized(c, "invalid or expired token")
	}
	if !roleAllows(role, want) {
		return false, response.Forbidden(c, "insufficient role")
	}
	return true, nil
}
