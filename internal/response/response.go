package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the success shape every endpoint returns. Agents rely on the
// data field when unwrapping catalog and admin responses.
type Envelope struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
}

// ErrorBody is the error shape every endpoint returns.
type ErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

func requestPath(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// OK sends 200 with data.
func OK(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, Envelope{
		Data:    data,
		Status:  http.StatusOK,
		Message: message,
		Path:    requestPath(c),
	})
}

// Created sends 201 with data.
func Created(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusCreated, Envelope{
		Data:    data,
		Status:  http.StatusCreated,
		Message: message,
		Path:    requestPath(c),
	})
}

// NoContent sends 204.
func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Error sends a JSON error response with the given status.
func Error(c echo.Context, status int, message, errDetail string) error {
	return c.JSON(status, ErrorBody{
		Message: message,
		Error:   errDetail,
		Path:    requestPath(c),
		Status:  status,
	})
}

// BadRequest sends 400.
func BadRequest(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusBadRequest, message, errDetail)
}

// Unauthorized sends 401.
func Unauthorized(c echo.Context, message string) error {
	return Error(c, http.StatusUnauthorized, message, "unauthorized")
}

// Forbidden sends 403.
func Forbidden(c echo.Context, message string) error {
	return Error(c, http.StatusForbidden, message, "forbidden")
}

// NotFound sends 404.
func NotFound(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusNotFound, message, errDetail)
}

// Conflict sends 409.
func Conflict(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusConflict, message, errDetail)
}

// InternalError sends 500.
func InternalError(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusInternalServerError, message, errDetail)
}

// BadGateway sends 502, used when an upstream relay fails.
func BadGateway(c echo.Context, message, errDetail string) error {
	return Error(c, http.StatusBadGateway, message, errDetail)
}
