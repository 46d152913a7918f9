package track

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/localstore"
	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/session"
)

func newTestSession() *session.Session {
	return session.New("test")
}

type fakeEventWriter struct {
	mu      sync.Mutex
	batches [][]model.EventRow
	failFor int // fail the first N calls
	calls   int
}

func (f *fakeEventWriter) InsertEvents(_ context.Context, batch []model.EventRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFor {
		return errors.New("backend unavailable")
	}
	f.batches = append(f.batches, batch)
	return nil
}

type fakeLogWriter struct {
	mu      sync.Mutex
	batches [][]model.LogRow
	fail    bool
}

func (f *fakeLogWriter) InsertLogs(_ context.Context, batch []model.LogRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backend unavailable")
	}
	f.batches = append(f.batches, batch)
	return nil
}

func fastBackoff(t *testing.T) {
	t.Helper()
	origAttempts, origDelay := writeAttempts, writeBaseDelay
	writeBaseDelay = time.Millisecond
	t.Cleanup(func() { writeAttempts, writeBaseDelay = origAttempts, origDelay })
}

func newTracker(t *testing.T, w *fakeEventWriter, wake func()) (*Tracker, *localstore.Store) {
	t.Helper()
	fastBackoff(t)
	store, err := localstore.Open(filepath.Join(t.TempDir(), "agent.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	sess := newTestSession()
	return NewTracker(store, sess, w, "user-1", wake, zerolog.Nop()), store
}

func TestTrackEventWritesRemoteWhenHealthy(t *testing.T) {
	w := &fakeEventWriter{}
	tr, store := newTracker(t, w, nil)

	tr.TrackSearch(context.Background(), "E07", "Joule")

	if len(w.batches) != 1 || len(w.batches[0]) != 1 {
		t.Fatalf("expected one single-event batch, got %+v", w.batches)
	}
	row := w.batches[0][0]
	if row.EventType != string(model.EventSearch) {
		t.Fatalf("unexpected event type %q", row.EventType)
	}
	if row.Meta["code"] != "E07" || row.Meta["brand"] != "Joule" {
		t.Fatalf("search meta lost: %+v", row.Meta)
	}
	if _, ok := row.Meta["correlationId"]; !ok {
		t.Fatal("correlation id not attached")
	}
	if store.Len(localstore.KeyEvents) != 0 {
		t.Fatal("nothing should be queued on a successful write")
	}
}

func TestTrackEventQueuesOnExhaustedRetries(t *testing.T) {
	woken := false
	w := &fakeEventWriter{failFor: 1000}
	tr, store := newTracker(t, w, func() { woken = true })

	tr.TrackPageView(context.Background(), "/codes")

	if w.calls != writeAttempts {
		t.Fatalf("expected %d attempts, got %d", writeAttempts, w.calls)
	}
	queued := localstore.ReadAll[model.TrackedEvent](store, localstore.KeyEvents)
	if len(queued) != 1 {
		t.Fatalf("expected 1 queued event, got %d", len(queued))
	}
	if queued[0].Type != model.EventPageView || queued[0].Path != "/codes" {
		t.Fatalf("unexpected queued event: %+v", queued[0])
	}
	if queued[0].DeviceID == "" {
		t.Fatal("queued event missing device id")
	}
	if !woken {
		t.Fatal("sync coordinator not nudged after fallback enqueue")
	}
}

func TestTrackEventRecoversAfterTransientFailure(t *testing.T) {
	w := &fakeEventWriter{failFor: 2}
	tr, store := newTracker(t, w, nil)

	tr.TrackClick(context.Background(), "favorite", nil)

	if len(w.batches) != 1 {
		t.Fatalf("expected write to succeed on 3rd attempt, batches=%d", len(w.batches))
	}
	if store.Len(localstore.KeyEvents) != 0 {
		t.Fatal("successful retry must not queue locally")
	}
}

func TestTrackEventAttachesCachedGeo(t *testing.T) {
	w := &fakeEventWriter{}
	tr, store := newTracker(t, w, nil)
	store.SetLastLocation(model.GeoFix{Lat: 59.33, Lon: 18.07})

	tr.TrackErrorCodeView(context.Background(), "F28", "compressor")

	row := w.batches[0][0]
	if row.Meta["geo_lat"] != 59.33 || row.Meta["geo_lon"] != 18.07 {
		t.Fatalf("geo fix not flattened into meta: %+v", row.Meta)
	}
}

func TestLoggerQueuesOnFailure(t *testing.T) {
	fastBackoff(t)
	store, err := localstore.Open(filepath.Join(t.TempDir(), "agent.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	lw := &fakeLogWriter{fail: true}
	lg := NewLogger(store, newTestSession(), lw, nil, zerolog.Nop())

	lg.Error(context.Background(), "sensor read failed", errors.New("timeout"), nil)

	queued := localstore.ReadAll[model.LogEntry](store, localstore.KeyLogs)
	if len(queued) != 1 {
		t.Fatalf("expected 1 queued log, got %d", len(queued))
	}
	if queued[0].Level != model.LevelError || queued[0].Stack == "" {
		t.Fatalf("unexpected queued log: %+v", queued[0])
	}

	// Once the backend is healthy again new entries go straight through.
	lw.fail = false
	lg.Info(context.Background(), "agent started", nil)
	if len(lw.batches) != 1 {
		t.Fatalf("expected direct write after recovery, got %d batches", len(lw.batches))
	}
}
