// Package localstore is the agent's durable on-device storage: one SQLite
// file holding the pending-delivery queues plus a handful of kv entries
// (device id, last geo fix, offline error-code catalog).
//
// Every read and write swallows storage failures. A corrupt or missing value
// reads as empty, a failed write drops the record. Losing an unflushed
// analytics event is acceptable; crashing the agent is not.
package localstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// Queue keys. One key per queue; each queue is a single serialized JSON
// array stored under its key.
const (
	KeyEvents        = "user_events"
	KeyLogs          = "app_logs"
	KeyFixSteps      = "fix_steps"
	KeyErrorMetadata = "error_metadata"

	keyDeviceID  = "device_id"
	keyGeoLast   = "geo_last"
	keyCatalog   = "error_codes"
	keyCatalogTS = "catalog_synced_at"
)

// Store is the SQLite-backed local store.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the store at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS kv(
	  key   TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			s.log.Debug().Err(err).Str("key", key).Msg("local store read failed")
		}
		return "", false
	}
	return value, true
}

func (s *Store) put(key, value string) {
	_, err := s.db.Exec(`
		INSERT INTO kv(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("local store write failed")
	}
}

// Append reads the queue under key, appends record and writes the queue back.
// Marshal or storage failures drop the record silently.
func (s *Store) Append(key string, record any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(record)
	if err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("queue record not serializable")
		return
	}
	list := s.readRaw(key)
	list = append(list, raw)
	out, err := json.Marshal(list)
	if err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("queue not serializable")
		return
	}
	s.put(key, string(out))
}

// Clear empties the queue under key.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, "[]")
}

// Len returns the number of records queued under key.
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readRaw(key))
}

func (s *Store) readRaw(key string) []json.RawMessage {
	value, ok := s.get(key)
	if !ok {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal([]byte(value), &list); err != nil {
		// Corrupt queue reads as empty.
		s.log.Debug().Err(err).Str("key", key).Msg("queue payload corrupt")
		return nil
	}
	return list
}

// ReadAll returns every record queued under key, decoded as T. Records that
// fail to decode are skipped.
func ReadAll[T any](s *Store, key string) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.readRaw(key)
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			s.log.Debug().Err(err).Str("key", key).Msg("queue record corrupt, skipping")
			continue
		}
		out = append(out, v)
	}
	return out
}

// DeviceID returns the stable device id, generating and persisting one on
// first use.
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.get(keyDeviceID); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	s.put(keyDeviceID, id)
	return id
}
