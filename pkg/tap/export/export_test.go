package export

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dext/tap-intercom/pkg/clients"
	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/pool"
	"github.com/dext/tap-intercom/pkg/tap/core"
	"github.com/dext/tap-intercom/pkg/tap/state"
)

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func exportConfig(t *testing.T, baseURL string) *config.Config {
	cfg := config.New()
	cfg.Credentials.AccessToken = "test-token"
	cfg.API.BaseURL = baseURL
	cfg.Export.ScratchDir = t.TempDir()
	cfg.Export.PollInterval = 10 * time.Millisecond
	cfg.Export.PollTimeout = 5 * time.Second
	cfg.Reliability.RetryAttempts = 0
	cfg.Reliability.CircuitBreaker = false
	return cfg
}

func decodeJSON(r *http.Request, v interface{}) error {
	return gojson.NewDecoder(r.Body).Decode(v)
}

type captured struct {
	stream string
	data   map[string]interface{}
}

func capture(sink *[]captured) core.RecordHandler {
	return func(stream string, record *pool.Record) error {
		data := make(map[string]interface{}, len(record.Data))
		for k, v := range record.Data {
			data[k] = v
		}
		*sink = append(*sink, captured{stream: stream, data: data})
		return nil
	}
}

func TestSyncFullExportFlow(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"message_20240301-120000.csv": "id,subject,sent_at\nm1,Welcome,1709290000\nm2,Follow up,1709290100\n",
	})

	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/export/content/data":
			w.Write([]byte(`{"job_identifier":"job42","status":"pending"}`))
		case r.URL.Path == "/export/content/data/job42":
			polls++
			if polls < 3 {
				w.Write([]byte(`{"status":"pending"}`))
				return
			}
			w.Write([]byte(`{"status":"completed"}`))
		case r.URL.Path == "/download/content/data/job42":
			w.Write(archive)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := exportConfig(t, server.URL)
	client := clients.NewClient(cfg, nil)
	stream := NewStream("message", client, cfg)

	var out []captured
	st := state.NewStore()
	count, err := stream.Sync(context.Background(), nil, st, capture(&out))
	require.NoError(t, err)

	assert.Equal(t, int64(2), count)
	require.Len(t, out, 2)
	assert.Equal(t, "m1", out[0].data["id"])
	assert.Equal(t, "Follow up", out[1].data["subject"])
	assert.GreaterOrEqual(t, polls, 3)

	// The zip is removed after extraction, the CSV stays staged.
	entries, err := os.ReadDir(cfg.Export.ScratchDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "message_20240301-120000.csv", entries[0].Name())

	// Bookmark lands on an hour boundary.
	bookmark := st.Bookmark("message")
	require.NotEmpty(t, bookmark)
	ts, err := time.Parse(time.RFC3339, bookmark)
	require.NoError(t, err)
	assert.Zero(t, ts.Minute())
	assert.Zero(t, ts.Second())
}

func TestSyncReusesStagedFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	cfg := exportConfig(t, server.URL)
	staged := filepath.Join(cfg.Export.ScratchDir, "message_20240101-000000.csv")
	require.NoError(t, os.WriteFile(staged, []byte("id,body\n1,hello\n"), 0o644))

	stream := NewStream("message", clients.NewClient(cfg, nil), cfg)
	var out []captured
	count, err := stream.Sync(context.Background(), nil, state.NewStore(), capture(&out))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "hello", out[0].data["body"])
}

func TestSyncFailedJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"job_identifier":"bad"}`))
			return
		}
		w.Write([]byte(`{"status":"failed"}`))
	}))
	defer server.Close()

	cfg := exportConfig(t, server.URL)
	stream := NewStream("message", clients.NewClient(cfg, nil), cfg)
	_, err := stream.Sync(context.Background(), nil, state.NewStore(), capture(&[]captured{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestSyncPollTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"job_identifier":"slow"}`))
			return
		}
		w.Write([]byte(`{"status":"pending"}`))
	}))
	defer server.Close()

	cfg := exportConfig(t, server.URL)
	cfg.Export.PollTimeout = 50 * time.Millisecond

	stream := NewStream("message", clients.NewClient(cfg, nil), cfg)
	_, err := stream.Sync(context.Background(), nil, state.NewStore(), capture(&[]captured{}))
	assert.Error(t, err)
}

func TestSubmitJobUsesBookmarkWindow(t *testing.T) {
	// The no_data terminal status surfaces before any download.
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			require.NoError(t, decodeJSON(r, &payload))
			w.Write([]byte(`{"job_identifier":"empty"}`))
			return
		}
		w.Write([]byte(`{"status":"no_data"}`))
	}))
	defer server.Close()

	cfg := exportConfig(t, server.URL)
	stream := NewStream("message", clients.NewClient(cfg, nil), cfg)

	st := state.NewStore()
	st.SetBookmark("message", "updated_at", "2024-03-01T10:00:00Z")

	_, err := stream.Sync(context.Background(), nil, st, capture(&[]captured{}))
	require.Error(t, err)

	expected := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, float64(expected), payload["created_at_after"])
	assert.NotZero(t, payload["created_at_before"])
}

func TestHourRound(t *testing.T) {
	assert.Equal(t,
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		hourRound(time.Date(2024, 3, 1, 12, 29, 59, 0, time.UTC)))
	assert.Equal(t,
		time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC),
		hourRound(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)))
}
