// Package pool provides object pooling for the hot record path.
// Extraction allocates one Record per API row; pooling keeps that from
// turning into GC pressure on large backfills.
//
// Example usage:
//
//	record := pool.GetRecord()
//	defer record.Release()
//
//	record.SetData("id", "123")
//	record.SetData("updated_at", 1700000000)
package pool

import (
	"sync"
	"sync/atomic"
	"time"
)

// Pool represents a generic object pool with type safety.
// It wraps sync.Pool with statistics tracking and an automatic reset
// hook. The pool is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	new   func() T
	reset func(T)
	stats struct {
		allocated int64
		inUse     int64
		hits      int64
	}
}

// New creates a new typed pool with custom allocation and reset functions.
// The reset function is called before returning an object to the pool,
// allowing for cleanup and reuse.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{
		new:   newFn,
		reset: reset,
	}
	p.pool.New = func() interface{} {
		atomic.AddInt64(&p.stats.allocated, 1)
		return newFn()
	}
	return p
}

// Get retrieves an object from the pool, creating one if the pool is empty.
func (p *Pool[T]) Get() T {
	atomic.AddInt64(&p.stats.inUse, 1)
	obj := p.pool.Get().(T)
	atomic.AddInt64(&p.stats.hits, 1)
	return obj
}

// Put returns an object to the pool for reuse after resetting it.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	atomic.AddInt64(&p.stats.inUse, -1)
	p.pool.Put(obj)
}

// Stats returns current pool statistics.
func (p *Pool[T]) Stats() (allocated, inUse, hits int64) {
	return atomic.LoadInt64(&p.stats.allocated),
		atomic.LoadInt64(&p.stats.inUse),
		atomic.LoadInt64(&p.stats.hits)
}

// RecordMetadata carries extraction provenance for a record.
type RecordMetadata struct {
	// Source identifies the origin connector
	Source string `json:"source,omitempty"`
	// Stream identifies the stream the record belongs to
	Stream string `json:"stream,omitempty"`
	// Timestamp is the extraction time for the record
	Timestamp time.Time `json:"timestamp"`
	// Custom metadata fields for extensibility
	Custom map[string]interface{} `json:"custom,omitempty"`
}

// Record is the unified record type flowing from streams to the emitter.
// Records should be obtained from the pool via GetRecord and returned
// with Release once emitted.
type Record struct {
	// ID is a unique identifier for the record
	ID string `json:"id"`
	// Data contains the actual record payload
	Data map[string]interface{} `json:"data"`
	// Metadata contains source and timing information
	Metadata RecordMetadata `json:"metadata"`
}

// Global pools for the record path.
var (
	// RecordPool provides pooling for Record objects. Records are
	// pre-allocated with a 16-capacity data map and fully cleared on return.
	RecordPool = New(
		func() *Record {
			return &Record{
				Data: make(map[string]interface{}, 16),
			}
		},
		func(r *Record) {
			r.ID = ""
			for k := range r.Data {
				delete(r.Data, k)
			}
			if r.Metadata.Custom != nil {
				for k := range r.Metadata.Custom {
					delete(r.Metadata.Custom, k)
				}
			}
			r.Metadata = RecordMetadata{}
		},
	)

	// MapPool provides pooling for map[string]interface{} objects.
	MapPool = New(
		func() map[string]interface{} {
			return make(map[string]interface{}, 16)
		},
		func(m map[string]interface{}) {
			for k := range m {
				delete(m, k)
			}
		},
	)

	// StringSlicePool provides pooling for []string slices.
	StringSlicePool = New(
		func() []string {
			return make([]string, 0, 32)
		},
		func(s []string) {
			for i := range s {
				s[i] = ""
			}
		},
	)
)

// GetRecord retrieves a record from the global pool.
func GetRecord() *Record {
	return RecordPool.Get()
}

// NewRecordFromPool retrieves a pooled record stamped for the given stream.
func NewRecordFromPool(stream string) *Record {
	r := RecordPool.Get()
	r.Metadata.Stream = stream
	return r
}

// Release returns the record to the global pool.
func (r *Record) Release() {
	RecordPool.Put(r)
}

// SetData sets a data field on the record.
func (r *Record) SetData(key string, value interface{}) {
	r.Data[key] = value
}

// GetData reads a data field from the record.
func (r *Record) GetData(key string) (interface{}, bool) {
	v, ok := r.Data[key]
	return v, ok
}

// SetMetadata sets a custom metadata field on the record.
func (r *Record) SetMetadata(key string, value interface{}) {
	if r.Metadata.Custom == nil {
		r.Metadata.Custom = make(map[string]interface{}, 4)
	}
	r.Metadata.Custom[key] = value
}

// SetTimestamp stamps the record with its extraction time.
func (r *Record) SetTimestamp(ts time.Time) {
	r.Metadata.Timestamp = ts
}

// GetMap retrieves a pooled map.
func GetMap() map[string]interface{} {
	return MapPool.Get()
}

// PutMap returns a map to the pool.
func PutMap(m map[string]interface{}) {
	MapPool.Put(m)
}
