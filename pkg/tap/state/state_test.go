package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetBookmarkMonotonic(t *testing.T) {
	s := NewStore()

	s.SetBookmark("conversations", "updated_at", "1700000000")
	assert.Equal(t, "1700000000", s.Bookmark("conversations"))

	// Older values never move the bookmark backwards.
	s.SetBookmark("conversations", "updated_at", "1600000000")
	assert.Equal(t, "1700000000", s.Bookmark("conversations"))

	s.SetBookmark("conversations", "updated_at", "1800000000")
	assert.Equal(t, "1800000000", s.Bookmark("conversations"))
}

func TestSetBookmarkMixedFormats(t *testing.T) {
	s := NewStore()

	s.SetBookmark("contacts", "updated_at", "2024-01-01T00:00:00Z")
	// 2024-06-01 as epoch seconds sorts after the RFC3339 value.
	s.SetBookmark("contacts", "updated_at", "1717200000")
	assert.Equal(t, "1717200000", s.Bookmark("contacts"))

	s.SetBookmark("contacts", "updated_at", "not-a-time")
	assert.Equal(t, "1717200000", s.Bookmark("contacts"))
}

func TestSnapshot(t *testing.T) {
	s := NewStore()
	s.SetBookmark("conversations", "updated_at", "1700000000")
	s.SetBookmark("segments", "updated_at", "2024-02-01T00:00:00Z")

	snap := s.Snapshot()
	bookmarks, ok := snap["bookmarks"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"updated_at": "1700000000"}, bookmarks["conversations"])
	assert.Equal(t, map[string]interface{}{"updated_at": "2024-02-01T00:00:00Z"}, bookmarks["segments"])
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s := NewStore()
	s.SetBookmark("conversations", "updated_at", "1700000000")
	require.NoError(t, s.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", loaded.Bookmark("conversations"))
}

func TestLoadMissingFile(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Empty(t, s.Bookmark("conversations"))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestAfter(t *testing.T) {
	assert.True(t, After("1700000001", "1700000000"))
	assert.False(t, After("1700000000", "1700000000"))
	assert.True(t, After("anything", ""))
	assert.False(t, After("", ""))
	assert.False(t, After("garbage", "1700000000"))
	assert.True(t, After("1700000000", "garbage"))
}
