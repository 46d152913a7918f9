package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/response"
	"github.com/hvackit/fieldsync/internal/search"
)

// CatalogSource reads the error-code catalog.
type CatalogSource interface {
	List(ctx context.Context) ([]model.ErrorCode, error)
}

// ErrorCodeHandler serves the catalog, optionally filtered by a fuzzy query.
type ErrorCodeHandler struct {
	Catalog CatalogSource
	Log     zerolog.Logger
}

// List returns the catalog (GET /v1/error-codes). With ?q= present it
// returns only fuzzy matches, best first; a present-but-blank query returns
// nothing matched rather than everything, since the caller asked to filter.
func (h *ErrorCodeHandler) List(c echo.Context) error {
	codes, err := h.Catalog.List(c.Request().Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("catalog read failed")
		return response.InternalError(c, "catalog read failed", err.Error())
	}
	if codes == nil {
		codes = []model.ErrorCode{}
	}

	if !c.QueryParams().Has("q") {
		return response.OK(c, codes, "")
	}
	matched := search.NewIndex(codes).Match(c.QueryParam("q"))
	if matched == nil {
		matched = []model.ErrorCode{}
	}
	return response.OK(c, matched, "")
}
