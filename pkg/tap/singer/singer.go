// Package singer emits the tap's output messages: one JSON object per
// line on the output writer, with SCHEMA announcing a stream's shape,
// RECORD carrying data, and STATE checkpointing bookmarks.
package singer

import (
	"bufio"
	"io"
	"sync"
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/models"
)

// Message type tags.
const (
	TypeSchema = "SCHEMA"
	TypeRecord = "RECORD"
	TypeState  = "STATE"
)

// SchemaMessage announces the shape of a stream before its records.
type SchemaMessage struct {
	Type               string                 `json:"type"`
	Stream             string                 `json:"stream"`
	Schema             map[string]interface{} `json:"schema"`
	KeyProperties      []string               `json:"key_properties"`
	BookmarkProperties []string               `json:"bookmark_properties,omitempty"`
}

// RecordMessage carries one extracted record.
type RecordMessage struct {
	Type          string                 `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	TimeExtracted string                 `json:"time_extracted"`
}

// StateMessage checkpoints the bookmark map.
type StateMessage struct {
	Type  string                 `json:"type"`
	Value map[string]interface{} `json:"value"`
}

// Emitter serializes messages onto a writer. Safe for concurrent use.
type Emitter struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *gojson.Encoder
}

// NewEmitter creates an emitter over w, typically os.Stdout.
func NewEmitter(w io.Writer) *Emitter {
	buf := bufio.NewWriterSize(w, 64*1024)
	enc := gojson.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Emitter{buf: buf, enc: enc}
}

// EmitSchema writes a SCHEMA message.
func (e *Emitter) EmitSchema(stream string, schema *models.Schema, keyProperties []string, bookmarkProperties []string) error {
	if keyProperties == nil {
		keyProperties = []string{}
	}
	return e.encode(&SchemaMessage{
		Type:               TypeSchema,
		Stream:             stream,
		Schema:             schema.JSONSchema(),
		KeyProperties:      keyProperties,
		BookmarkProperties: bookmarkProperties,
	})
}

// EmitRecord writes a RECORD message.
func (e *Emitter) EmitRecord(stream string, data map[string]interface{}, timeExtracted time.Time) error {
	return e.encode(&RecordMessage{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        data,
		TimeExtracted: timeExtracted.UTC().Format(time.RFC3339),
	})
}

// EmitState writes a STATE message.
func (e *Emitter) EmitState(value map[string]interface{}) error {
	return e.encode(&StateMessage{
		Type:  TypeState,
		Value: value,
	})
}

// Flush drains buffered output. Call before process exit.
func (e *Emitter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buf.Flush()
}

func (e *Emitter) encode(msg interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(msg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to emit message")
	}
	return nil
}
