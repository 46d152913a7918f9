// Package track is the primary telemetry write path: immediate remote write
// with backoff, local queue fallback, sync-coordinator nudge. Tracking is
// non-critical by contract: nothing in this package ever returns an error
// to the caller; failures are logged at debug level and swallowed.
package track

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/localstore"
	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/remote"
	"github.com/hvackit/fieldsync/internal/retry"
	"github.com/hvackit/fieldsync/internal/session"
)

// Write policy shared by Tracker and Logger. Variables so tests can shrink
// the backoff.
var (
	writeAttempts  = 3
	writeBaseDelay = 500 * time.Millisecond
)

// Tracker records analytics events against the backend, falling back to the
// local events queue when the remote write keeps failing.
type Tracker struct {
	store  *localstore.Store
	sess   *session.Session
	events remote.EventWriter
	userID string
	wake   func()
	log    zerolog.Logger
}

// NewTracker builds a Tracker. wake nudges the sync coordinator after a
// fallback enqueue and may be nil; the coordinator's periodic timer is the
// fallback trigger then.
func NewTracker(store *localstore.Store, sess *session.Session, events remote.EventWriter, userID string, wake func(), log zerolog.Logger) *Tracker {
	return &Tracker{store: store, sess: sess, events: events, userID: userID, wake: wake, log: log}
}

// TrackEvent records one event. It resolves identity, attaches the session
// context and cached geo fix, then tries the remote write with backoff; on
// exhaustion the event is queued locally and the coordinator is nudged.
func (t *Tracker) TrackEvent(ctx context.Context, typ model.EventType, path string, meta map[string]any) {
	merged := map[string]any{}
	for k, v := range meta {
		merged[k] = v
	}
	for k, v := range t.sess.Meta() {
		merged[k] = v
	}
	evt := model.TrackedEvent{
		ID:       uuid.NewString(),
		Type:     typ,
		Path:     path,
		TS:       time.Now().UnixMilli(),
		DeviceID: t.store.DeviceID(),
		UserID:   t.userID,
		Meta:     merged,
		Geo:      t.store.LastLocation(),
	}

	err := retry.Do(ctx, func(ctx context.Context) error {
		return t.events.InsertEvents(ctx, []model.EventRow{evt.Row()})
	}, writeAttempts, writeBaseDelay)
	if err == nil {
		return
	}

	t.log.Debug().Err(err).Str("type", string(typ)).Msg("event write failed, queueing locally")
	t.store.Append(localstore.KeyEvents, evt)
	t.nudge()
}

// TrackPageView records a page view for path.
func (t *Tracker) TrackPageView(ctx context.Context, path string) {
	t.TrackEvent(ctx, model.EventPageView, path, nil)
}

// TrackSearch records an error-code search.
func (t *Tracker) TrackSearch(ctx context.Context, code, brand string) {
	meta := map[string]any{"code": code}
	if brand != "" {
		meta["brand"] = brand
	}
	t.TrackEvent(ctx, model.EventSearch, "", meta)
}

// TrackClick records a UI element click.
func (t *Tracker) TrackClick(ctx context.Context, label string, meta map[string]any) {
	merged := map[string]any{"label": label}
	for k, v := range meta {
		merged[k] = v
	}
	t.TrackEvent(ctx, model.EventElementClick, "", merged)
}

// TrackErrorCodeView records the user opening an error-code detail.
func (t *Tracker) TrackErrorCodeView(ctx context.Context, code, systemName string) {
	t.TrackEvent(ctx, model.EventErrorCodeView, "", map[string]any{
		"errorCode":  code,
		"systemName": systemName,
	})
}

func (t *Tracker) nudge() {
	if t.wake != nil {
		t.wake()
	}
}
