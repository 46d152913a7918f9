package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/model"
)

type fakeSink struct {
	events [][]model.EventRow
	logs   [][]model.LogRow
	fixes  [][]model.FixStepDraft
	metas  [][]model.ErrorMetadataDraft
	fail   error
}

func (s *fakeSink) InsertEvents(_ context.Context, rows []model.EventRow) error {
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, rows)
	return nil
}

func (s *fakeSink) InsertLogs(_ context.Context, rows []model.LogRow) error {
	if s.fail != nil {
		return s.fail
	}
	s.logs = append(s.logs, rows)
	return nil
}

func (s *fakeSink) UpsertFixSteps(_ context.Context, drafts []model.FixStepDraft) error {
	if s.fail != nil {
		return s.fail
	}
	s.fixes = append(s.fixes, drafts)
	return nil
}

func (s *fakeSink) UpsertErrorMetadata(_ context.Context, drafts []model.ErrorMetadataDraft) error {
	if s.fail != nil {
		return s.fail
	}
	s.metas = append(s.metas, drafts)
	return nil
}

func postJSON(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestPostEventsLandsBatch(t *testing.T) {
	sink := &fakeSink{}
	h := &IngestHandler{Events: sink, Logs: sink, Drafts: sink, Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/events", `[
		{"id":"e1","event_type":"page_view","device_id":"d1","timestamp":"2026-08-28T10:00:00Z"},
		{"id":"e2","event_type":"search","device_id":"d1","timestamp":"2026-08-28T10:00:01Z"}
	]`)
	if err := h.PostEvents(c); err != nil {
		t.Fatalf("post events: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if len(sink.events) != 1 || len(sink.events[0]) != 2 {
		t.Fatalf("expected one batch of 2, got %v", sink.events)
	}
}

func TestPostEventsRejectsMissingID(t *testing.T) {
	sink := &fakeSink{}
	h := &IngestHandler{Events: sink, Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/events", `[{"event_type":"page_view"}]`)
	if err := h.PostEvents(c); err != nil {
		t.Fatalf("post events: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(sink.events) != 0 {
		t.Fatal("batch with missing id must not reach the sink")
	}
}

func TestPostLogsStoreFailureIs500(t *testing.T) {
	sink := &fakeSink{fail: errors.New("pool exhausted")}
	h := &IngestHandler{Logs: sink, Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/logs", `[{"id":"l1","level":"Error","message":"boom","timestamp":"2026-08-28T10:00:00Z"}]`)
	if err := h.PostLogs(c); err != nil {
		t.Fatalf("post logs: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestPostFixStepsLandsBatch(t *testing.T) {
	sink := &fakeSink{}
	h := &IngestHandler{Drafts: sink, Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/fix-steps", `[{"id":"f1","brand":"Mitsubishi","error_code":"E07","title":"Check fan","content":"..."}]`)
	if err := h.PostFixSteps(c); err != nil {
		t.Fatalf("post fix steps: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if len(sink.fixes) != 1 || sink.fixes[0][0].Brand != "Mitsubishi" {
		t.Fatalf("unexpected drafts %v", sink.fixes)
	}
}

func TestPostErrorMetadataLandsBatch(t *testing.T) {
	sink := &fakeSink{}
	h := &IngestHandler{Drafts: sink, Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/error-metadata", `[{"id":"m1","error_code":"F28","meaning":"flow sensor","solution":"replace sensor"}]`)
	if err := h.PostErrorMetadata(c); err != nil {
		t.Fatalf("post error metadata: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if len(sink.metas) != 1 || sink.metas[0][0].ErrorCode != "F28" {
		t.Fatalf("unexpected drafts %v", sink.metas)
	}
}
