// Package models provides the record and schema types shared by streams
// and the message emitter. Record is the pooled type from pkg/pool; Schema
// describes the declared shape of a stream for SCHEMA messages.
package models

import (
	"github.com/dext/tap-intercom/pkg/pool"
)

// Record is a type alias for pool.Record.
type Record = pool.Record

// RecordMetadata is a type alias for pool.RecordMetadata.
type RecordMetadata = pool.RecordMetadata

// NewRecordFromPool creates a new record using pooled resources.
var NewRecordFromPool = pool.NewRecordFromPool

// Schema defines the declared structure of a stream's records.
type Schema struct {
	// Name identifies the schema (the stream name)
	Name string `json:"name"`

	// Fields defines the structure of the data
	Fields []Field `json:"fields"`
}

// Field represents a single field in the schema.
// It supports nested structures through Fields (objects) and Items (arrays).
type Field struct {
	// Name is the field identifier
	Name string `json:"name"`

	// Type specifies the data type (string, integer, number, boolean,
	// object, array)
	Type string `json:"type"`

	// Fields defines nested structure for object types
	Fields []Field `json:"fields,omitempty"`

	// Items describes the element type for array fields
	Items *Field `json:"items,omitempty"`
}

// JSONSchema renders the schema as a JSON-Schema-shaped property map, the
// form carried by SCHEMA messages.
func (s *Schema) JSONSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": propertiesOf(s.Fields),
	}
}

func propertiesOf(fields []Field) map[string]interface{} {
	props := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		props[f.Name] = f.jsonType()
	}
	return props
}

func (f Field) jsonType() map[string]interface{} {
	switch f.Type {
	case "object":
		return map[string]interface{}{
			// Nullable by convention: the API omits or nulls most fields.
			"type":       []string{"object", "null"},
			"properties": propertiesOf(f.Fields),
		}
	case "array":
		out := map[string]interface{}{
			"type": []string{"array", "null"},
		}
		if f.Items != nil {
			out["items"] = f.Items.jsonType()
		}
		return out
	default:
		return map[string]interface{}{
			"type": []string{f.Type, "null"},
		}
	}
}
