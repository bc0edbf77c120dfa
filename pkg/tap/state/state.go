// Package state tracks incremental sync bookmarks. The on-disk and
// emitted form is the conventional bookmarks map:
//
//	{"bookmarks": {"conversations": {"updated_at": "2024-01-02T00:00:00Z"}}}
//
// Writes are monotonic so a replayed or out-of-order record can never
// move a bookmark backwards.
package state

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/json"
)

// Bookmark is the saved position of one stream.
type Bookmark struct {
	ReplicationKey string
	Value          string
}

// Store holds per-stream bookmarks. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	bookmarks map[string]Bookmark
}

// NewStore creates an empty state store.
func NewStore() *Store {
	return &Store{bookmarks: make(map[string]Bookmark)}
}

// persisted mirrors the wire layout of a STATE value.
type persisted struct {
	Bookmarks map[string]map[string]string `json:"bookmarks"`
}

// LoadFile reads saved state from path. A missing file yields an empty
// store.
func LoadFile(path string) (*Store, error) {
	s := NewStore()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read state file")
	}
	if len(data) == 0 {
		return s, nil
	}

	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse state file")
	}
	for stream, fields := range p.Bookmarks {
		for key, value := range fields {
			s.bookmarks[stream] = Bookmark{ReplicationKey: key, Value: value}
		}
	}
	return s, nil
}

// SaveFile writes the current state to path.
func (s *Store) SaveFile(path string) error {
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode state")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write state file")
	}
	return nil
}

// Bookmark returns the saved replication value for a stream.
func (s *Store) Bookmark(stream string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookmarks[stream].Value
}

// SetBookmark advances a stream's bookmark. Values that do not sort after
// the current bookmark are ignored.
func (s *Store) SetBookmark(stream, replicationKey, value string) {
	if value == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookmarks[stream]
	if ok && !After(value, current.Value) {
		return
	}
	s.bookmarks[stream] = Bookmark{ReplicationKey: replicationKey, Value: value}
}

// Snapshot returns the STATE message value for the current bookmarks.
func (s *Store) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookmarks := make(map[string]interface{}, len(s.bookmarks))
	for stream, b := range s.bookmarks {
		bookmarks[stream] = map[string]interface{}{
			b.ReplicationKey: b.Value,
		}
	}
	return map[string]interface{}{"bookmarks": bookmarks}
}

// After reports whether candidate sorts strictly after current. Both
// values are parsed as unix epoch seconds or RFC3339; an empty current
// always loses, an unparseable candidate always loses.
func After(candidate, current string) bool {
	if current == "" {
		return candidate != ""
	}
	ct, ok := ParseTime(candidate)
	if !ok {
		return false
	}
	bt, ok := ParseTime(current)
	if !ok {
		return true
	}
	return ct.After(bt)
}

// ParseTime interprets a replication value as either unix epoch seconds
// or an RFC3339 timestamp.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
