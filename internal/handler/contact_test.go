package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/model"
)

type fakeRelay struct {
	sent []model.ContactMessage
	fail error
}

func (r *fakeRelay) SendContact(_ context.Context, msg model.ContactMessage) error {
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, msg)
	return nil
}

type fakeArchive struct {
	stored []model.ContactMessage
	fail   error
}

func (a *fakeArchive) Create(_ context.Context, msg model.ContactMessage) error {
	if a.fail != nil {
		return a.fail
	}
	a.stored = append(a.stored, msg)
	return nil
}

const validContact = `{"name":"Ola","email":"ola@example.com","subject":"E07 keeps returning","message":"Tried the fan check twice."}`

func TestContactDeliversAndArchives(t *testing.T) {
	relay := &fakeRelay{}
	archive := &fakeArchive{}
	h := &ContactHandler{Relay: relay, Archive: archive, Validate: validator.New(), Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/contact", validContact)
	if err := h.Post(c); err != nil {
		t.Fatalf("post contact: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	if len(relay.sent) != 1 || relay.sent[0].Subject != "E07 keeps returning" {
		t.Fatalf("unexpected relay calls %v", relay.sent)
	}
	if len(archive.stored) != 1 {
		t.Fatalf("expected archived copy, got %v", archive.stored)
	}
}

func TestContactRelayFailureIs502(t *testing.T) {
	relay := &fakeRelay{fail: errors.New("sendgrid status 500")}
	archive := &fakeArchive{}
	h := &ContactHandler{Relay: relay, Archive: archive, Validate: validator.New(), Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/contact", validContact)
	if err := h.Post(c); err != nil {
		t.Fatalf("post contact: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if len(archive.stored) != 0 {
		t.Fatal("undelivered message must not be archived")
	}
}

func TestContactArchiveFailureStillDelivers(t *testing.T) {
	relay := &fakeRelay{}
	archive := &fakeArchive{fail: errors.New("pool exhausted")}
	h := &ContactHandler{Relay: relay, Archive: archive, Validate: validator.New(), Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/contact", validContact)
	if err := h.Post(c); err != nil {
		t.Fatalf("post contact: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("archive failure must not fail the request, got %d", rec.Code)
	}
}

func TestContactValidationFailureIs400(t *testing.T) {
	relay := &fakeRelay{}
	h := &ContactHandler{Relay: relay, Validate: validator.New(), Log: zerolog.Nop()}

	c, rec := postJSON(t, "/v1/contact", `{"name":"Ola","email":"not-an-email","subject":"x","message":"y"}`)
	if err := h.Post(c); err != nil {
		t.Fatalf("post contact: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(relay.sent) != 0 {
		t.Fatal("invalid payload must not reach the relay")
	}
}
