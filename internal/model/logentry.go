package model

import "time"

// LogLevel grades an application log entry.
type LogLevel string

const (
	LevelCritical LogLevel = "Critical"
	LevelUrgent   LogLevel = "Urgent"
	LevelShutdown LogLevel = "Shutdown"
	LevelError    LogLevel = "Error"
	LevelInfo     LogLevel = "Info"
)

// LogEntry is an application log record as held in the local queue.
// Same lifecycle as TrackedEvent: created, queued, flushed, discarded.
type LogEntry struct {
	ID      string         `json:"id"`
	Level   LogLevel       `json:"level"`
	Message string         `json:"message"`
	TS      int64          `json:"ts"` // unix milliseconds
	Stack   string         `json:"stack,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// LogRow is the wire shape the backend's app_logs collection accepts.
// The stack text travels wrapped inside stack_trace.
type LogRow struct {
	ID         string         `json:"id"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	StackTrace map[string]any `json:"stack_trace,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Row converts a queued log entry into its remote write shape.
func (l LogEntry) Row() LogRow {
	var stack map[string]any
	if l.Stack != "" {
		stack = map[string]any{"stack": l.Stack}
	}
	return LogRow{
		ID:         l.ID,
		Level:      string(l.Level),
		Message:    l.Message,
		StackTrace: stack,
		Meta:       l.Meta,
		Timestamp:  time.UnixMilli(l.TS).UTC(),
	}
}
