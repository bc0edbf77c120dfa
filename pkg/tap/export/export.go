// Package export implements the asynchronous content-export flow: a
// submitted export job is polled until complete, its zip archive is
// downloaded and unpacked into the scratch directory, and the staged CSV
// files are replayed as records.
package export

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/dext/tap-intercom/pkg/clients"
	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/logger"
	"github.com/dext/tap-intercom/pkg/metrics"
	"github.com/dext/tap-intercom/pkg/models"
	"github.com/dext/tap-intercom/pkg/pool"
	"github.com/dext/tap-intercom/pkg/tap/core"
	"github.com/dext/tap-intercom/pkg/tap/state"
)

const archiveName = "tmp_intercom_data.zip"

// Job status values reported by the export endpoint.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusNoData    = "no_data"
)

// Stream replays one content-export table. All export streams share the
// scratch directory; each finds its own CSV by filename prefix.
type Stream struct {
	name      string
	client    *clients.Client
	cfg       config.ExportConfig
	window    config.WindowConfig
	collector *metrics.Collector
}

// NewStream builds an export stream for the named table.
func NewStream(name string, client *clients.Client, cfg *config.Config) *Stream {
	return &Stream{
		name:      name,
		client:    client,
		cfg:       cfg.Export,
		window:    cfg.Window,
		collector: metrics.NewCollector("export_" + name),
	}
}

// Name implements core.Stream.
func (s *Stream) Name() string { return s.name }

// Schema implements core.Stream. Export CSV columns vary per workspace,
// so the schema is open.
func (s *Stream) Schema() *models.Schema {
	return &models.Schema{Name: s.name}
}

// KeyProperties implements core.Stream.
func (s *Stream) KeyProperties() []string { return nil }

// ReplicationKey implements core.Stream.
func (s *Stream) ReplicationKey() string { return "updated_at" }

// Parent implements core.Stream.
func (s *Stream) Parent() string { return "" }

// Sync implements core.Stream. The bookmark advances to the current hour
// boundary only after the staged file is fully replayed.
func (s *Stream) Sync(ctx context.Context, _ core.Context, st core.BookmarkStore, emit core.RecordHandler) (int64, error) {
	if err := s.stage(ctx, st); err != nil {
		return 0, err
	}

	path, err := s.findCSV()
	if err != nil {
		return 0, err
	}
	if path == "" {
		logger.Get().Info("no export file staged", zap.String("stream", s.name))
		return 0, nil
	}

	count, err := s.replay(ctx, path, emit)
	if err != nil {
		return count, err
	}
	s.collector.AddRecords(s.name, count)

	st.SetBookmark(s.name, s.ReplicationKey(), hourRound(time.Now().UTC()).Format(time.RFC3339))
	return count, nil
}

// stage makes sure the scratch directory holds extracted export files,
// running the job flow when it is empty. A populated scratch dir is
// reused so a crashed sync can resume without re-exporting.
func (s *Stream) stage(ctx context.Context, st core.BookmarkStore) error {
	if err := os.MkdirAll(s.cfg.ScratchDir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create scratch directory")
	}

	entries, err := os.ReadDir(s.cfg.ScratchDir)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to read scratch directory")
	}
	if len(entries) > 0 {
		logger.Get().Debug("reusing staged export files",
			zap.String("dir", s.cfg.ScratchDir),
			zap.Int("files", len(entries)))
		return nil
	}

	jobID, err := s.submitJob(ctx, st)
	if err != nil {
		return err
	}
	if jobID == "" {
		return errors.New(errors.ErrorTypeData, "export job response carried no job_identifier")
	}

	if err := s.awaitJob(ctx, jobID); err != nil {
		return err
	}
	return s.download(ctx, jobID)
}

// submitJob posts the export request for the incremental window and
// returns the job identifier.
func (s *Stream) submitJob(ctx context.Context, st core.BookmarkStore) (string, error) {
	after := int64(0)
	if bookmark := st.Bookmark(s.name); bookmark != "" {
		if t, ok := state.ParseTime(bookmark); ok {
			after = t.Unix()
		}
	} else if t, err := s.window.StartTime(); err == nil && !t.IsZero() {
		after = t.Unix()
	}

	before := time.Now().UTC().Unix()
	if t, err := s.window.EndTime(); err == nil && !t.IsZero() {
		before = t.Unix()
	}

	body, err := s.client.PostJSON(ctx, "export/content/data", map[string]interface{}{
		"created_at_after":  after,
		"created_at_before": before,
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeConnection, "export job submission failed")
	}

	jobID := gjson.GetBytes(body, "job_identifier").String()
	logger.Get().Info("submitted export job",
		zap.String("stream", s.name),
		zap.String("job_id", jobID),
		zap.Int64("created_at_after", after),
		zap.Int64("created_at_before", before))
	return jobID, nil
}

// awaitJob polls job status until it completes. Cancellation, the poll
// timeout, and the failed and no_data terminal statuses all stop the
// wait.
func (s *Stream) awaitJob(ctx context.Context, jobID string) error {
	if s.cfg.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PollTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		body, err := s.client.Get(ctx, "export/content/data/"+jobID, nil)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "export status poll failed")
		}
		status := gjson.GetBytes(body, "status").String()
		s.collector.ObserveExportPoll(status)
		logger.Get().Info("export job status",
			zap.String("job_id", jobID),
			zap.String("status", status))

		switch status {
		case statusCompleted:
			return nil
		case statusFailed:
			return errors.Newf(errors.ErrorTypeData, "export job %s failed", jobID)
		case statusNoData:
			return errors.Newf(errors.ErrorTypeNotFound, "export job %s produced no data", jobID)
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrorTypeTimeout, "export job "+jobID+" did not complete")
		case <-ticker.C:
		}
	}
}

// download fetches the finished archive, unpacks it into scratch, and
// removes the zip.
func (s *Stream) download(ctx context.Context, jobID string) error {
	archive := filepath.Join(s.cfg.ScratchDir, archiveName)
	if err := s.client.Download(ctx, "download/content/data/"+jobID, archive); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "export archive download failed")
	}

	if err := unzip(archive, s.cfg.ScratchDir); err != nil {
		return err
	}
	if err := os.Remove(archive); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to remove export archive")
	}
	return nil
}

// findCSV locates this stream's staged file, named
// <stream>_YYYYMMDD-HHMMSS.csv by the export service.
func (s *Stream) findCSV() (string, error) {
	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(s.name) + `_\d{8}-\d{6}\.csv$`)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "bad export filename pattern")
	}

	entries, err := os.ReadDir(s.cfg.ScratchDir)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeFile, "failed to list scratch directory")
	}
	for _, entry := range entries {
		if !entry.IsDir() && pattern.MatchString(entry.Name()) {
			return filepath.Join(s.cfg.ScratchDir, entry.Name()), nil
		}
	}
	return "", nil
}

// replay streams the CSV row by row, emitting one record per line keyed
// by the header columns.
func (s *Stream) replay(ctx context.Context, path string, emit core.RecordHandler) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to open export file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeData, "failed to read export header")
	}

	var count int64
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, errors.Wrap(err, errors.ErrorTypeData, "failed to read export row")
		}

		rec := pool.NewRecordFromPool(s.name)
		for i, col := range header {
			if i < len(row) {
				rec.SetData(col, row[i])
			}
		}
		err = emit(s.name, rec)
		rec.Release()
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// unzip extracts a downloaded archive into dir. Entry names are kept
// flat; the export service does not nest directories.
func unzip(archive, dir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open export archive")
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// Guard against path traversal in entry names.
		dest := filepath.Join(dir, filepath.Base(f.Name))
		if err := extractFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	src, err := f.Open()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to open archive entry")
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create extracted file")
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to extract archive entry")
	}
	return nil
}

// hourRound rounds to the nearest hour boundary, half past rounding up.
func hourRound(t time.Time) time.Time {
	rounded := t.Truncate(time.Hour)
	if t.Minute() >= 30 {
		rounded = rounded.Add(time.Hour)
	}
	return rounded
}
