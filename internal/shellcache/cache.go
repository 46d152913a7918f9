// Package shellcache is the agent-side counterpart of an offline service
// worker: a caching proxy in front of the UI shell's static origin with an
// install/activate/serve lifecycle and a trigger-sync message path.
package shellcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // CGO-free SQLite
)

// CachedResponse is one stored GET response.
type CachedResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Cache stores responses under a named generation. Exactly one generation is
// live at a time; activating a new one evicts everything else.
type Cache struct {
	db         *sql.DB
	generation string
	log        zerolog.Logger
}

// OpenCache opens (creating if needed) the response cache at path for the
// given generation name.
func OpenCache(path, generation string, log zerolog.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open shell cache: %w", err)
	}
	if _, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS responses(
	  generation TEXT NOT NULL,
	  url        TEXT NOT NULL,
	  status     INTEGER NOT NULL,
	  headers    TEXT NOT NULL,
	  body       BLOB NOT NULL,
	  PRIMARY KEY (generation, url)
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create responses table: %w", err)
	}
	return &Cache{db: db, generation: generation, log: log}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Put stores a response under url in the live generation. Failures are
// swallowed; a failed put never fails the response that produced it.
func (c *Cache) Put(url string, resp CachedResponse) {
	headers, err := json.Marshal(resp.Header)
	if err != nil {
		c.log.Debug().Err(err).Str("url", url).Msg("cache headers not serializable")
		return
	}
	_, err = c.db.Exec(`
		INSERT INTO responses(generation, url, status, headers, body) VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(generation, url) DO UPDATE SET
		  status = excluded.status, headers = excluded.headers, body = excluded.body`,
		c.generation, url, resp.Status, string(headers), resp.Body)
	if err != nil {
		c.log.Debug().Err(err).Str("url", url).Msg("cache put failed")
	}
}

// Match returns the cached response for url in the live generation, or nil.
// Read failures report as a miss.
func (c *Cache) Match(url string) *CachedResponse {
	var (
		status  int
		headers string
		body    []byte
	)
	err := c.db.QueryRow(`
		SELECT status, headers, body FROM responses
		WHERE generation = ? AND url = ?`, c.generation, url).
		Scan(&status, &headers, &body)
	if err != nil {
		if err != sql.ErrNoRows {
			c.log.Debug().Err(err).Str("url", url).Msg("cache read failed")
		}
		return nil
	}
	hdr := http.Header{}
	if err := json.Unmarshal([]byte(headers), &hdr); err != nil {
		c.log.Debug().Err(err).Str("url", url).Msg("cached headers corrupt")
		return nil
	}
	return &CachedResponse{Status: status, Header: hdr, Body: body}
}

// EvictOld deletes every generation except the live one. The activate step
// of the lifecycle.
func (c *Cache) EvictOld() {
	_, err := c.db.Exec(`DELETE FROM responses WHERE generation <> ?`, c.generation)
	if err != nil {
		c.log.Debug().Err(err).Msg("cache eviction failed")
	}
}
