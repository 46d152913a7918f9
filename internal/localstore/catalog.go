package localstore

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/hvackit/fieldsync/internal/model"
)

// LastLocation returns the cached geo fix, or nil when none is stored.
func (s *Store) LastLocation() *model.GeoFix {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.get(keyGeoLast)
	if !ok {
		return nil
	}
	var fix model.GeoFix
	if err := json.Unmarshal([]byte(value), &fix); err != nil {
		s.log.Debug().Err(err).Msg("cached geo fix corrupt")
		return nil
	}
	return &fix
}

// SetLastLocation caches the device's last known geo fix.
func (s *Store) SetLastLocation(fix model.GeoFix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(fix)
	if err != nil {
		return
	}
	s.put(keyGeoLast, string(raw))
}

// SaveCatalog stores the error-code catalog for offline lookup and stamps
// the sync time.
func (s *Store) SaveCatalog(codes []model.ErrorCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(codes)
	if err != nil {
		s.log.Debug().Err(err).Msg("catalog not serializable")
		return
	}
	s.put(keyCatalog, string(raw))
	s.put(keyCatalogTS, strconv.FormatInt(time.Now().UnixMilli(), 10))
}

// Catalog returns the offline error-code catalog, empty when never synced.
func (s *Store) Catalog() []model.ErrorCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.get(keyCatalog)
	if !ok {
		return nil
	}
	var codes []model.ErrorCode
	if err := json.Unmarshal([]byte(value), &codes); err != nil {
		s.log.Debug().Err(err).Msg("offline catalog corrupt")
		return nil
	}
	return codes
}

// CatalogSyncedAt returns when the catalog was last downloaded, zero when
// never synced.
func (s *Store) CatalogSyncedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.get(keyCatalogTS)
	if !ok {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
