package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dext/tap-intercom/pkg/clients"
	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/tap/state"
)

func runConfig(baseURL string) *config.Config {
	cfg := config.New()
	cfg.Credentials.AccessToken = "test-token"
	cfg.API.BaseURL = baseURL
	cfg.Reliability.RetryAttempts = 0
	cfg.Reliability.CircuitBreaker = false
	return cfg
}

func messages(t *testing.T, out string) []map[string]interface{} {
	t.Helper()
	var msgs []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, gojson.Unmarshal([]byte(line), &m))
		msgs = append(msgs, m)
	}
	return msgs
}

func TestRunEmitsSchemasRecordsAndState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tags":
			w.Write([]byte(`{"data":[{"id":"t1","name":"vip"},{"id":"t2","name":"churned"}],"pages":{}}`))
		case "/segments":
			w.Write([]byte(`{"segments":[{"id":"s1","name":"active","updated_at":"2024-01-01T00:00:00Z"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := runConfig(server.URL)
	cfg.Catalog.Streams = []string{"tags", "segments"}

	var out bytes.Buffer
	runner, err := New(cfg, clients.NewClient(cfg, nil), state.NewStore(), &out)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	msgs := messages(t, out.String())

	// Schemas come first, one per selected stream.
	require.Equal(t, "SCHEMA", msgs[0]["type"])
	require.Equal(t, "SCHEMA", msgs[1]["type"])

	var records, states int
	var firstRecord, lastState int
	for i, m := range msgs {
		switch m["type"] {
		case "RECORD":
			records++
			if firstRecord == 0 {
				firstRecord = i
			}
		case "STATE":
			states++
			lastState = i
		case "SCHEMA":
			assert.Less(t, i, 2, "schemas precede all records")
		}
	}
	assert.Equal(t, 3, records)
	// One state per stream plus the final one.
	assert.Equal(t, 3, states)
	assert.Equal(t, len(msgs)-1, lastState)
	assert.Greater(t, firstRecord, 1)
}

func TestRunCheckpointInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"1","updated_at":1},{"id":"2","updated_at":2},{"id":"3","updated_at":3}],"pages":{}}`))
	}))
	defer server.Close()

	cfg := runConfig(server.URL)
	cfg.Catalog.Streams = []string{"tags"}
	cfg.Reliability.CheckpointInterval = 2

	var out bytes.Buffer
	runner, err := New(cfg, clients.NewClient(cfg, nil), state.NewStore(), &out)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))

	var states int
	for _, m := range messages(t, out.String()) {
		if m["type"] == "STATE" {
			states++
		}
	}
	// One mid-stream checkpoint, one after the stream, one final.
	assert.Equal(t, 3, states)
}

func TestRunRemovesScratchDir(t *testing.T) {
	archiveServed := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/tags":
			w.Write([]byte(`{"data":[],"pages":{}}`))
		case r.Method == http.MethodPost && r.URL.Path == "/export/content/data":
			w.Write([]byte(`{"job_identifier":"j1"}`))
		case strings.HasPrefix(r.URL.Path, "/export/content/data/"):
			w.Write([]byte(`{"status":"completed"}`))
		case strings.HasPrefix(r.URL.Path, "/download/content/data/"):
			archiveServed = true
			w.Write(exportArchive(t))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := runConfig(server.URL)
	cfg.Catalog.Streams = []string{"tags"}
	cfg.Export.Streams = []string{"message"}
	cfg.Export.ScratchDir = filepath.Join(t.TempDir(), "scratch")
	cfg.Export.PollInterval = 10 * time.Millisecond

	var out bytes.Buffer
	runner, err := New(cfg, clients.NewClient(cfg, nil), state.NewStore(), &out)
	require.NoError(t, err)
	require.NoError(t, runner.Run(context.Background()))
	assert.True(t, archiveServed)

	_, statErr := os.Stat(cfg.Export.ScratchDir)
	assert.True(t, os.IsNotExist(statErr))
}

func exportArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("message_20240101-000000.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte("id\nm1\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}
