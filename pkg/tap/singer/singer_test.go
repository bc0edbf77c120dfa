package singer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dext/tap-intercom/pkg/models"
)

func decodeLines(t *testing.T, out string) []map[string]interface{} {
	t.Helper()
	var msgs []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var m map[string]interface{}
		require.NoError(t, gojson.Unmarshal([]byte(line), &m))
		msgs = append(msgs, m)
	}
	return msgs
}

func TestEmitSchema(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	schema := &models.Schema{
		Name: "tags",
		Fields: []models.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
		},
	}
	require.NoError(t, e.EmitSchema("tags", schema, []string{"id"}, nil))
	require.NoError(t, e.Flush())

	msgs := decodeLines(t, buf.String())
	require.Len(t, msgs, 1)
	assert.Equal(t, "SCHEMA", msgs[0]["type"])
	assert.Equal(t, "tags", msgs[0]["stream"])
	assert.Equal(t, []interface{}{"id"}, msgs[0]["key_properties"])

	props := msgs[0]["schema"].(map[string]interface{})["properties"].(map[string]interface{})
	assert.Contains(t, props, "id")
	assert.Contains(t, props, "name")
}

func TestEmitRecordAndState(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	extracted := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, e.EmitRecord("conversations", map[string]interface{}{
		"id":         "123",
		"updated_at": float64(1709294400),
	}, extracted))
	require.NoError(t, e.EmitState(map[string]interface{}{
		"bookmarks": map[string]interface{}{
			"conversations": map[string]interface{}{"updated_at": "1709294400"},
		},
	}))
	require.NoError(t, e.Flush())

	msgs := decodeLines(t, buf.String())
	require.Len(t, msgs, 2)

	assert.Equal(t, "RECORD", msgs[0]["type"])
	assert.Equal(t, "conversations", msgs[0]["stream"])
	assert.Equal(t, "2024-03-01T12:00:00Z", msgs[0]["time_extracted"])
	assert.Equal(t, "123", msgs[0]["record"].(map[string]interface{})["id"])

	assert.Equal(t, "STATE", msgs[1]["type"])
	value := msgs[1]["value"].(map[string]interface{})
	bookmarks := value["bookmarks"].(map[string]interface{})
	assert.Contains(t, bookmarks, "conversations")
}

func TestEmitterOneMessagePerLine(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.EmitRecord("admins", map[string]interface{}{"id": i}, time.Now()))
	}
	require.NoError(t, e.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
}
