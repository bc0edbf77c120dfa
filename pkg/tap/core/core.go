// Package core defines the contracts shared across the tap: the stream
// interface every extractor implements, the bookmark store streams
// checkpoint through, and the callback records flow out on.
package core

import (
	"context"

	"github.com/dext/tap-intercom/pkg/models"
	"github.com/dext/tap-intercom/pkg/pool"
)

// Context carries values from a parent record into its child stream's
// request, such as the conversation id a parts request interpolates.
type Context map[string]string

// RecordHandler receives each extracted record. Implementations must not
// retain the record past the call; it returns to the pool afterwards.
type RecordHandler func(stream string, record *pool.Record) error

// BookmarkStore is the stream-facing view of sync state. Writes are
// monotonic: an older value never replaces a newer one.
type BookmarkStore interface {
	// Bookmark returns the saved replication value for a stream, or the
	// zero string when none exists.
	Bookmark(stream string) string
	// SetBookmark advances the replication value for a stream.
	SetBookmark(stream, replicationKey, value string)
}

// Stream is the contract every extractor implements.
type Stream interface {
	// Name returns the stream identifier
	Name() string
	// Schema returns the declared record structure
	Schema() *models.Schema
	// KeyProperties returns the primary key field names
	KeyProperties() []string
	// ReplicationKey returns the incremental cursor field, or "" for
	// full-table streams
	ReplicationKey() string
	// Parent returns the parent stream name, or "" for top-level streams
	Parent() string
	// Sync extracts records, invoking emit per record, and returns the
	// number of records emitted
	Sync(ctx context.Context, runCtx Context, state BookmarkStore, emit RecordHandler) (int64, error)
}
