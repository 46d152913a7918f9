package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/response"
)

// EventSink persists analytics event batches.
type EventSink interface {
	InsertEvents(ctx context.Context, rows []model.EventRow) error
}

// LogSink persists application log batches.
type LogSink interface {
	InsertLogs(ctx context.Context, rows []model.LogRow) error
}

// DraftSink persists offline-authored draft batches.
type DraftSink interface {
	UpsertFixSteps(ctx context.Context, drafts []model.FixStepDraft) error
	UpsertErrorMetadata(ctx context.Context, drafts []model.ErrorMetadataDraft) error
}

// IngestHandler accepts queue flushes from field agents. Every endpoint
// takes a JSON array and lands it in one transaction, so an agent can
// retry a whole batch after a failure without splitting it.
type IngestHandler struct {
	Events EventSink
	Logs   LogSink
	Drafts DraftSink
	Log    zerolog.Logger
}

// PostEvents lands an analytics batch (POST /v1/events).
func (h *IngestHandler) PostEvents(c echo.Context) error {
	var rows []model.EventRow
	if err := c.Bind(&rows); err != nil {
		return response.BadRequest(c, "invalid event batch", err.Error())
	}
	for _, row := range rows {
		if row.ID == "" {
			return response.BadRequest(c, "invalid event batch", "every event needs an id")
		}
	}
	if err := h.Events.InsertEvents(c.Request().Context(), rows); err != nil {
		h.Log.Error().Err(err).Int("batch", len(rows)).Msg("event batch insert failed")
		return response.InternalError(c, "event batch insert failed", err.Error())
	}
	return response.OK(c, map[string]any{"received": len(rows)}, "")
}

// PostLogs lands a log batch (POST /v1/logs).
func (h *IngestHandler) PostLogs(c echo.Context) error {
	var rows []model.LogRow
	if err := c.Bind(&rows); err != nil {
		return response.BadRequest(c, "invalid log batch", err.Error())
	}
	for _, row := range rows {
		if row.ID == "" {
			return response.BadRequest(c, "invalid log batch", "every log entry needs an id")
		}
	}
	if err := h.Logs.InsertLogs(c.Request().Context(), rows); err != nil {
		h.Log.Error().Err(err).Int("batch", len(rows)).Msg("log batch insert failed")
		return response.InternalError(c, "log batch insert failed", err.Error())
	}
	return response.OK(c, map[string]any{"received": len(rows)}, "")
}

// PostFixSteps lands a fix-step draft batch (POST /v1/fix-steps).
func (h *IngestHandler) PostFixSteps(c echo.Context) error {
	var drafts []model.FixStepDraft
	if err := c.Bind(&drafts); err != nil {
		return response.BadRequest(c, "invalid draft batch", err.Error())
	}
	for _, d := range drafts {
		if d.ID == "" {
			return response.BadRequest(c, "invalid draft batch", "every draft needs an id")
		}
	}
	if err := h.Drafts.UpsertFixSteps(c.Request().Context(), drafts); err != nil {
		h.Log.Error().Err(err).Int("batch", len(drafts)).Msg("fix-step batch upsert failed")
		return response.InternalError(c, "fix-step batch upsert failed", err.Error())
	}
	return response.OK(c, map[string]any{"received": len(drafts)}, "")
}

// PostErrorMetadata lands an error-description draft batch
// (POST /v1/error-metadata).
func (h *IngestHandler) PostErrorMetadata(c echo.Context) error {
	var drafts []model.ErrorMetadataDraft
	if err := c.Bind(&drafts); err != nil {
		return response.BadRequest(c, "invalid draft batch", err.Error())
	}
	for _, d := range drafts {
		if d.ID == "" {
			return response.BadRequest(c, "invalid draft batch", "every draft needs an id")
		}
	}
	if err := h.Drafts.UpsertErrorMetadata(c.Request().Context(), drafts); err != nil {
		h.Log.Error().Err(err).Int("batch", len(drafts)).Msg("error-metadata batch upsert failed")
		return response.InternalError(c, "error-metadata batch upsert failed", err.Error())
	}
	return response.OK(c, map[string]any{"received": len(drafts)}, "")
}
