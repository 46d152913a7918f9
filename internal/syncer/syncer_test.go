package syncer

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
)

// fakeBackend records batches per collection and can fail each collection
// independently for a number of calls.
type fakeBackend struct {
	mu sync.Mutex

	eventBatches [][]model.EventRow
	logBatches   [][]model.LogRow
	stepBatches  [][]model.FixStepDraft
	metaBatches  [][]model.ErrorMetadataDraft

	eventFailures int
	logFailures   int
	eventCalls    int
}

func (f *fakeBackend) InsertEvents(_ context.Context, batch []model.EventRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventCalls++
	if f.eventCalls <= f.eventFailures {
		return errors.New("backend unavailable")
	}
	f.eventBatches = append(f.eventBatches, batch)
	return nil
}

func (f *fakeBackend) InsertLogs(_ context.Context, batch []model.LogRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logFailures > 0 {
		f.logFailures--
		return errors.New("backend unavailable")
	}
	f.logBatches = append(f.logBatches, batch)
	return nil
}

func (f *fakeBackend) UpsertFixSteps(_ context.Context, batch []model.FixStepDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stepBatches = append(f.stepBatches, batch)
	return nil
}

func (f *fakeBackend) UpsertErrorMetadata(_ context.Context, batch []model.ErrorMetadataDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaBatches = append(f.metaBatches, batch)
	return nil
}

func (f *fakeBackend) sentEventIDs() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := map[string]bool{}
	for _, batch := range f.eventBatches {
		for _, row := range batch {
			ids[row.ID] = true
		}
	}
	return ids
}

func newCoordinator(t *testing.T, backend *fakeBackend) (*Coordinator, *localstore.Store) {
	t.Helper()
	origAttempts, origDelay := drainAttempts, drainBaseDelay
	drainBaseDelay = time.Millisecond
	t.Cleanup(func() { drainAttempts, drainBaseDelay = origAttempts, origDelay })

	store, err := localstore.Open(filepath.Join(t.TempDir(), "agent.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, backend, time.Minute, zerolog.Nop()), store
}

func TestSyncAllEmptyQueuesIsNoop(t *testing.T) {
	backend := &fakeBackend{}
	c, _ := newCoordinator(t, backend)
	c.SyncAll(context.Background())
	if backend.eventCalls != 0 || len(backend.logBatches) != 0 {
		t.Fatal("empty queues must not produce network calls")
	}
}

func TestSyncAllDrainsEachQueueAsOneBatch(t *testing.T) {
	backend := &fakeBackend{}
	c, store := newCoordinator(t, backend)

	store.Append(localstore.KeyEvents, model.TrackedEvent{ID: "e1", Type: model.EventSearch})
	store.Append(localstore.KeyEvents, model.TrackedEvent{ID: "e2", Type: model.EventPageView})
	store.Append(localstore.KeyLogs, model.LogEntry{ID: "l1", Level: model.LevelInfo, Stack: "trace"})
	store.Append(localstore.KeyFixSteps, model.FixStepDraft{ID: "f1", Title: "reset inverter"})
	store.Append(localstore.KeyErrorMetadata, model.ErrorMetadataDraft{ID: "m1", ErrorCode: "E07"})

	c.SyncAll(context.Background())

	if len(backend.eventBatches) != 1 || len(backend.eventBatches[0]) != 2 {
		t.Fatalf("expected one batch of 2 events, got %+v", backend.eventBatches)
	}
	if len(backend.logBatches) != 1 || len(backend.logBatches[0]) != 1 {
		t.Fatalf("expected one batch of 1 log, got %+v", backend.logBatches)
	}
	// Stack travels wrapped in stack_trace.
	if backend.logBatches[0][0].StackTrace["stack"] != "trace" {
		t.Fatalf("stack not wrapped: %+v", backend.logBatches[0][0])
	}
	if len(backend.stepBatches) != 1 || len(backend.metaBatches) != 1 {
		t.Fatal("draft queues not drained")
	}

	for _, key := range []string{localstore.KeyEvents, localstore.KeyLogs, localstore.KeyFixSteps, localstore.KeyErrorMetadata} {
		if n := store.Len(key); n != 0 {
			t.Fatalf("queue %s not cleared, %d left", key, n)
		}
	}
}

func TestFailedQueueKeptAndOthersStillDrain(t *testing.T) {
	backend := &fakeBackend{eventFailures: 1000}
	c, store := newCoordinator(t, backend)

	store.Append(localstore.KeyEvents, model.TrackedEvent{ID: "e1"})
	store.Append(localstore.KeyLogs, model.LogEntry{ID: "l1", Level: model.LevelInfo})

	c.SyncAll(context.Background())

	if n := store.Len(localstore.KeyEvents); n != 1 {
		t.Fatalf("failed event queue must stay intact, got %d", n)
	}
	if n := store.Len(localstore.KeyLogs); n != 0 {
		t.Fatalf("log queue should drain despite event failure, %d left", n)
	}
	if len(backend.logBatches) != 1 {
		t.Fatalf("expected log batch delivered, got %d", len(backend.logBatches))
	}
}

func TestEndToEndFlushAfterTwoFailures(t *testing.T) {
	backend := &fakeBackend{eventFailures: 2}
	c, store := newCoordinator(t, backend)

	for _, id := range []string{"e1", "e2", "e3"} {
		store.Append(localstore.KeyEvents, model.TrackedEvent{ID: id, Type: model.EventCustom})
	}
	if n := store.Len(localstore.KeyEvents); n != 3 {
		t.Fatalf("expected 3 queued events before sync, got %d", n)
	}

	c.SyncAll(context.Background())

	if backend.eventCalls != 3 {
		t.Fatalf("expected write to land on 3rd attempt, got %d calls", backend.eventCalls)
	}
	if len(backend.eventBatches) != 1 || len(backend.eventBatches[0]) != 3 {
		t.Fatalf("expected exactly one batch of 3, got %+v", backend.eventBatches)
	}
	if n := store.Len(localstore.KeyEvents); n != 0 {
		t.Fatalf("queue should be empty after successful drain, %d left", n)
	}
}

func TestConcurrentSyncAllLosesNothing(t *testing.T) {
	backend := &fakeBackend{}
	c, store := newCoordinator(t, backend)

	want := map[string]bool{}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		store.Append(localstore.KeyEvents, model.TrackedEvent{ID: id})
		want[id] = true
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SyncAll(context.Background())
		}()
	}
	wg.Wait()

	// Duplicates are allowed (the backend upserts / ignores conflicts), but
	// every record must have been sent at least once and the queue must end
	// empty.
	sent := backend.sentEventIDs()
	for id := range want {
		if !sent[id] {
			t.Fatalf("event %s never delivered", id)
		}
	}
	if n := store.Len(localstore.KeyEvents); n != 0 {
		t.Fatalf("queue should end empty, %d left", n)
	}
}

func TestWakeCoalesces(t *testing.T) {
	backend := &fakeBackend{}
	c, _ := newCoordinator(t, backend)
	// Multiple nudges before the loop observes them must not block.
	for range 10 {
		c.Wake()
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	backend := &fakeBackend{}
	c, store := newCoordinator(t, backend)
	store.Append(localstore.KeyEvents, model.TrackedEvent{ID: "e1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	// The initial drain runs before the first tick.
	deadline := time.After(2 * time.Second)
	for store.Len(localstore.KeyEvents) != 0 {
		select {
		case <-deadline:
			t.Fatal("initial drain never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
