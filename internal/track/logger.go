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

// Logger writes application logs to the backend with the same
// immediate-write-then-queue pattern as the Tracker. Remote and local log
// delivery share one queue, so nothing is lost between the two paths.
type Logger struct {
	store *localstore.Store
	sess  *session.Session
	logs  remote.LogWriter
	wake  func()
	log   zerolog.Logger
}

// NewLogger builds a Logger. wake may be nil, as with NewTracker.
func NewLogger(store *localstore.Store, sess *session.Session, logs remote.LogWriter, wake func(), log zerolog.Logger) *Logger {
	return &Logger{store: store, sess: sess, logs: logs, wake: wake, log: log}
}

// Write records one log entry at the given level. stack may be empty.
func (l *Logger) Write(ctx context.Context, level model.LogLevel, message, stack string, meta map[string]any) {
	merged := map[string]any{}
	for k, v := range meta {
		merged[k] = v
	}
	for k, v := range l.sess.Meta() {
		merged[k] = v
	}
	entry := model.LogEntry{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		TS:      time.Now().UnixMilli(),
		Stack:   stack,
		Meta:    merged,
	}

	err := retry.Do(ctx, func(ctx context.Context) error {
		return l.logs.InsertLogs(ctx, []model.LogRow{entry.Row()})
	}, writeAttempts, writeBaseDelay)
	if err == nil {
		return
	}

	l.log.Debug().Err(err).Str("level", string(level)).Msg("log write failed, queueing locally")
	l.store.Append(localstore.KeyLogs, entry)
	if l.wake != nil {
		l.wake()
	}
}

// Info records an informational message.
func (l *Logger) Info(ctx context.Context, message string, meta map[string]any) {
	l.Write(ctx, model.LevelInfo, message, "", meta)
}

// Error records an error with its stack text when err is non-nil.
func (l *Logger) Error(ctx context.Context, message string, err error, meta map[string]any) {
	stack := ""
	if err != nil {
		stack = err.Error()
	}
	l.Write(ctx, model.LevelError, message, stack, meta)
}

// Critical records a failure that needs operator attention.
func (l *Logger) Critical(ctx context.Context, message string, err error, meta map[string]any) {
	stack := ""
	if err != nil {
		stack = err.Error()
	}
	l.Write(ctx, model.LevelCritical, message, stack, meta)
}
