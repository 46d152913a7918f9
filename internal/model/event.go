package model

import "time"

// EventType classifies a tracked UI interaction.
type EventType string

const (
	EventPageView      EventType = "page_view"
	EventElementClick  EventType = "element_click"
	EventSearch        EventType = "search"
	EventPerformance   EventType = "performance"
	EventCustom        EventType = "custom"
	EventErrorCodeView EventType = "error_code_view"
)

// GeoFix is a cached, best-effort device location.
type GeoFix struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// TrackedEvent is a single analytics event as held in the local queue.
// Immutable once created; it lives in the queue until flushed, then is gone.
type TrackedEvent struct {
	ID       string         `json:"id"`
	Type     EventType      `json:"type"`
	Path     string         `json:"path"`
	TS       int64          `json:"ts"` // unix milliseconds
	DeviceID string         `json:"deviceId"`
	UserID   string         `json:"userId,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
	Geo      *GeoFix        `json:"geo,omitempty"`
}

// EventRow is the wire shape the backend's app_analytics collection accepts.
// Geo coordinates are flattened into meta on the way out.
type EventRow struct {
	ID        string         `json:"id"`
	UserID    *string        `json:"user_id"`
	DeviceID  string         `json:"device_id"`
	EventType string         `json:"event_type"`
	Path      string         `json:"path"`
	Meta      map[string]any `json:"meta,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Row converts a queued event into its remote write shape.
func (e TrackedEvent) Row() EventRow {
	meta := map[string]any{}
	if e.Geo != nil {
		meta["geo_lat"] = e.Geo.Lat
		meta["geo_lon"] = e.Geo.Lon
	}
	for k, v := range e.Meta {
		meta[k] = v
	}
	var userID *string
	if e.UserID != "" {
		uid := e.UserID
		userID = &uid
	}
	return EventRow{
		ID:        e.ID,
		UserID:    userID,
		DeviceID:  e.DeviceID,
		EventType: string(e.Type),
		Path:      e.Path,
		Meta:      meta,
		Timestamp: time.UnixMilli(e.TS).UTC(),
	}
}
