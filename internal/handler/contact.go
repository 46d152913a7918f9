package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/response"
)

// ContactRelay forwards a contact submission to the support inbox.
type ContactRelay interface {
	SendContact(ctx context.Context, msg model.ContactMessage) error
}

// ContactArchive stores a copy of a delivered submission.
type ContactArchive interface {
	Create(ctx context.Context, msg model.ContactMessage) error
}

// ContactHandler serves the contact form. Delivery is the mail relay; the
// database copy is best-effort and never fails the request.
type ContactHandler struct {
	Relay    ContactRelay
	Archive  ContactArchive
	Validate *validator.Validate
	Log      zerolog.Logger
}

// Post relays one submission (POST /v1/contact).
func (h *ContactHandler) Post(c echo.Context) error {
	var msg model.ContactMessage
	if err := c.Bind(&msg); err != nil {
		return response.BadRequest(c, "invalid contact payload", err.Error())
	}
	if err := h.Validate.Struct(msg); err != nil {
		return response.BadRequest(c, "invalid contact payload", err.Error())
	}

	if h.Relay == nil {
		return response.BadGateway(c, "contact relay unavailable", "mail relay not configured")
	}
	if err := h.Relay.SendContact(c.Request().Context(), msg); err != nil {
		h.Log.Error().Err(err).Msg("contact relay failed")
		return response.BadGateway(c, "contact relay failed", err.Error())
	}

	if h.Archive != nil {
		if err := h.Archive.Create(c.Request().Context(), msg); err != nil {
			h.Log.Debug().Err(err).Msg("contact archive write failed")
		}
	}
	return response.OK(c, map[string]any{"delivered": true}, "")
}
