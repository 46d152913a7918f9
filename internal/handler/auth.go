package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hvackit/fieldsync/internal/model"
)

// RoleResolver maps a bearer token to an account role. An unknown token
// resolves to false.
type RoleResolver interface {
	Resolve(token string) (model.Role, bool)
}

// StaticTokens is a RoleResolver backed by a fixed token table, used for
// the operator tokens configured at startup.
type StaticTokens map[string]model.Role

func (t StaticTokens) Resolve(token string) (model.Role, bool) {
	role, ok := t[token]
	return role, ok
}

// bearerToken extracts the bearer token from the Authorization header, or
// returns "" when the header is missing or malformed.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// roleAllows reports whether have grants the privileges of want. Admins
// hold every role; moderators hold moderator and user.
func roleAllows(have, want model.Role) bool {
	switch have {
	case model.RoleAdmin:
		return true
	case model.RoleModerator:
		return want != model.RoleAdmin
	default:
		return have == want
	}
}
