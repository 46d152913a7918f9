// Package syncer drains the agent's local queues against the backend. It is
// woken by a periodic timer, by the tracker after a fallback enqueue, by the
// shell-cache proxy's trigger-sync broadcast, and by explicit UI triggers
// (the page-hidden / back-online analogs). All triggers are idempotent and a
// failing queue never blocks the others.
package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hvackit/fieldsync/internal/localstore"
	"github.com/hvackit/fieldsync/internal/model"
	"github.com/hvackit/fieldsync/internal/remote"
	"github.com/hvackit/fieldsync/internal/retry"
)

// Backend is the write surface the coordinator drains into.
type Backend interface {
	remote.EventWriter
	remote.LogWriter
	remote.FixStepWriter
	remote.ErrorMetadataWriter
}

// Write policy for drain batches. Variables so tests can shrink the backoff.
var (
	drainAttempts  = 3
	drainBaseDelay = 500 * time.Millisecond
)

// DefaultInterval is the periodic drain cadence while the agent is running.
const DefaultInterval = 15 * time.Second

// Coordinator owns the drain loop.
type Coordinator struct {
	store    *localstore.Store
	backend  Backend
	interval time.Duration
	wakeCh   chan struct{}
	log      zerolog.Logger
}

// New builds a Coordinator draining store into backend every interval.
func New(store *localstore.Store, backend Backend, interval time.Duration, log zerolog.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		store:    store,
		backend:  backend,
		interval: interval,
		wakeCh:   make(chan struct{}, 1),
		log:      log,
	}
}

// Wake asks the coordinator to run a drain soon. Non-blocking; a pending
// wake coalesces with new ones.
func (c *Coordinator) Wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

// Run drains immediately, then on every tick and wake until ctx is
// cancelled. The ticker and the ctx cancellation are the only resources the
// loop holds.
func (c *Coordinator) Run(ctx context.Context) {
	c.SyncAll(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SyncAll(ctx)
		case <-c.wakeCh:
			c.SyncAll(ctx)
		}
	}
}

// SyncAll drains the four queues in a fixed order. It never returns an
// error: each queue logs its own failure at debug level and stays intact for
// the next attempt.
func (c *Coordinator) SyncAll(ctx context.Context) {
	c.syncEvents(ctx)
	c.syncLogs(ctx)
	c.syncFixSteps(ctx)
	c.syncErrorMetadata(ctx)
}

func (c *Coordinator) syncEvents(ctx context.Context) {
	events := localstore.ReadAll[model.TrackedEvent](c.store, localstore.KeyEvents)
	if len(events) == 0 {
		return
	}
	rows := make([]model.EventRow, 0, len(events))
	for _, e := range events {
		rows = append(rows, e.Row())
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.backend.InsertEvents(ctx, rows)
	}, drainAttempts, drainBaseDelay)
	if err != nil {
		c.log.Debug().Err(err).Int("pending", len(events)).Msg("event drain failed, queue kept")
		return
	}
	c.store.Clear(localstore.KeyEvents)
}

func (c *Coordinator) syncLogs(ctx context.Context) {
	logs := localstore.ReadAll[model.LogEntry](c.store, localstore.KeyLogs)
	if len(logs) == 0 {
		return
	}
	rows := make([]model.LogRow, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, l.Row())
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.backend.InsertLogs(ctx, rows)
	}, drainAttempts, drainBaseDelay)
	if err != nil {
		c.log.Debug().Err(err).Int("pending", len(logs)).Msg("log drain failed, queue kept")
		return
	}
	c.store.Clear(localstore.KeyLogs)
}

func (c *Coordinator) syncFixSteps(ctx context.Context) {
	drafts := localstore.ReadAll[model.FixStepDraft](c.store, localstore.KeyFixSteps)
	if len(drafts) == 0 {
		return
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.backend.UpsertFixSteps(ctx, drafts)
	}, drainAttempts, drainBaseDelay)
	if err != nil {
		c.log.Debug().Err(err).Int("pending", len(drafts)).Msg("fix-step drain failed, queue kept")
		return
	}
	c.store.Clear(localstore.KeyFixSteps)
}

func (c *Coordinator) syncErrorMetadata(ctx context.Context) {
	drafts := localstore.ReadAll[model.ErrorMetadataDraft](c.store, localstore.KeyErrorMetadata)
	if len(drafts) == 0 {
		return
	}
	err := retry.Do(ctx, func(ctx context.Context) error {
		return c.backend.UpsertErrorMetadata(ctx, drafts)
	}, drainAttempts, drainBaseDelay)
	if err != nil {
		c.log.Debug().Err(err).Int("pending", len(drafts)).Msg("error-metadata drain failed, queue kept")
		return
	}
	c.store.Clear(localstore.KeyErrorMetadata)
}
