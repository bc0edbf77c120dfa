// Package base implements the generic REST extraction engine. A stream is
// declared as a Definition (endpoint, record path, keys, parentage) and
// driven by RESTStream, which walks pages, filters on the replication
// key, advances bookmarks, and fans out child streams per parent record.
package base

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/dext/tap-intercom/pkg/clients"
	"github.com/dext/tap-intercom/pkg/config"
	"github.com/dext/tap-intercom/pkg/errors"
	"github.com/dext/tap-intercom/pkg/json"
	"github.com/dext/tap-intercom/pkg/logger"
	"github.com/dext/tap-intercom/pkg/metrics"
	"github.com/dext/tap-intercom/pkg/models"
	"github.com/dext/tap-intercom/pkg/pool"
	"github.com/dext/tap-intercom/pkg/tap/core"
	"github.com/dext/tap-intercom/pkg/tap/paginate"
	"github.com/dext/tap-intercom/pkg/tap/state"
	pstrings "github.com/dext/tap-intercom/pkg/strings"
)

// Definition declares a stream: where its records live and how they are
// keyed, replicated, and related to other streams.
type Definition struct {
	// Name is the stream identifier
	Name string
	// Path is the endpoint path; {placeholders} interpolate from the
	// run context, e.g. "conversations/{conversation_id}"
	Path string
	// Search switches the stream to the POST search protocol
	Search bool
	// RecordsPath locates records in the response body, e.g.
	// "conversation_parts.conversation_parts". Empty means the whole
	// body is a single record.
	RecordsPath string
	// PrimaryKeys are the record's key properties
	PrimaryKeys []string
	// ReplicationKey is the incremental cursor field, "" for full table
	ReplicationKey string
	// Parent names the stream whose records drive this one
	Parent string
	// ChildContext maps run-context keys to parent record fields,
	// e.g. {"conversation_id": "id"}
	ChildContext map[string]string
	// Schema is the declared record structure
	Schema *models.Schema
}

// RESTStream drives extraction for one Definition.
type RESTStream struct {
	def       Definition
	client    *clients.Client
	pageSize  int
	start     string
	endEpoch  int64
	children  []*RESTStream
	collector *metrics.Collector
}

// NewRESTStream builds a stream over the shared API client.
func NewRESTStream(def Definition, client *clients.Client, cfg *config.Config) *RESTStream {
	s := &RESTStream{
		def:       def,
		client:    client,
		pageSize:  cfg.API.PageSize,
		collector: metrics.NewCollector("stream_" + def.Name),
	}
	if t, err := cfg.Window.StartTime(); err == nil && !t.IsZero() {
		s.start = strconv.FormatInt(t.Unix(), 10)
	}
	if t, err := cfg.Window.EndTime(); err == nil && !t.IsZero() {
		s.endEpoch = t.Unix()
	}
	return s
}

// AddChild attaches a child stream synced per parent record.
func (s *RESTStream) AddChild(child *RESTStream) {
	s.children = append(s.children, child)
}

// Children returns the attached child streams.
func (s *RESTStream) Children() []*RESTStream {
	return s.children
}

// Name implements core.Stream.
func (s *RESTStream) Name() string { return s.def.Name }

// Schema implements core.Stream.
func (s *RESTStream) Schema() *models.Schema { return s.def.Schema }

// KeyProperties implements core.Stream.
func (s *RESTStream) KeyProperties() []string { return s.def.PrimaryKeys }

// ReplicationKey implements core.Stream.
func (s *RESTStream) ReplicationKey() string { return s.def.ReplicationKey }

// Parent implements core.Stream.
func (s *RESTStream) Parent() string { return s.def.Parent }

// SetKeyProperties replaces the declared primary keys. Used for
// catalog-level overrides.
func (s *RESTStream) SetKeyProperties(keys []string) {
	s.def.PrimaryKeys = keys
}

// Sync implements core.Stream. Bookmark thresholds for this stream and
// its children are captured once at entry so fan-out calls do not filter
// against bookmarks advanced mid-sync.
func (s *RESTStream) Sync(ctx context.Context, runCtx core.Context, st core.BookmarkStore, emit core.RecordHandler) (int64, error) {
	childStarts := make(map[string]string, len(s.children))
	for _, child := range s.children {
		childStarts[child.def.Name] = child.filterStart(st)
	}
	return s.run(ctx, runCtx, st, emit, s.filterStart(st), childStarts)
}

func (s *RESTStream) run(ctx context.Context, runCtx core.Context, st core.BookmarkStore, emit core.RecordHandler, start string, childStarts map[string]string) (int64, error) {
	path := interpolate(s.def.Path, runCtx)

	var (
		count int64
		token *paginate.PageToken
	)

	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		body, err := s.fetchPage(ctx, path, token, start)
		if err != nil {
			return count, errors.Wrap(err, errors.ErrorTypeConnection, "page fetch failed for "+s.def.Name)
		}

		records := s.extractRecords(body)
		for _, raw := range records {
			replValue := s.replicationValue(raw)
			if s.skip(replValue, start) {
				continue
			}

			rec := pool.NewRecordFromPool(s.def.Name)
			if err := json.Unmarshal(pstrings.StringToBytes(raw.Raw), &rec.Data); err != nil {
				rec.Release()
				return count, errors.Wrap(err, errors.ErrorTypeData, "record decode failed for "+s.def.Name)
			}
			// Child context fields ride along so records remain joinable
			// to their parent.
			for key, value := range runCtx {
				if _, exists := rec.Data[key]; !exists {
					rec.Data[key] = value
				}
			}

			err = emit(s.def.Name, rec)
			rec.Release()
			if err != nil {
				return count, err
			}
			count++

			if s.def.ReplicationKey != "" && replValue != "" {
				st.SetBookmark(s.def.Name, s.def.ReplicationKey, replValue)
			}

			if len(s.children) > 0 {
				childCtx := s.childContext(raw, runCtx)
				for _, child := range s.children {
					n, err := child.run(ctx, childCtx, st, emit, childStarts[child.def.Name], nil)
					count += n
					if err != nil {
						return count, err
					}
				}
			}
		}

		s.collector.AddRecords(s.def.Name, int64(len(records)))

		token = paginate.Next(body)
		if token == nil {
			break
		}
		logger.Get().Debug("advancing page",
			zap.String("stream", s.def.Name),
			zap.String("token", token.Value))
	}

	return count, nil
}

// fetchPage issues one page request, GET for list endpoints and POST for
// search endpoints.
func (s *RESTStream) fetchPage(ctx context.Context, path string, token *paginate.PageToken, start string) ([]byte, error) {
	if s.def.Search {
		return s.client.PostJSON(ctx, path, s.searchBody(token, start))
	}

	params := url.Values{}
	token.Apply(params, s.pageSize)
	return s.client.Get(ctx, path, params)
}

// searchBody renders the search POST payload: ascending sort on updated_at
// and a strict greater-than filter seeded from the bookmark or the window
// start. Search endpoints sort and filter on updated_at even for streams
// that replicate full table.
func (s *RESTStream) searchBody(token *paginate.PageToken, start string) map[string]interface{} {
	field := s.def.ReplicationKey
	if field == "" {
		field = "updated_at"
	}
	if start == "" {
		start = s.start
	}

	body := map[string]interface{}{
		"sort": map[string]interface{}{
			"field": field,
			"order": "ascending",
		},
		"pagination": token.Body(s.pageSize),
	}

	var since int64
	if t, ok := state.ParseTime(start); ok {
		since = t.Unix()
	}
	body["query"] = map[string]interface{}{
		"field":    field,
		"operator": ">",
		"value":    since,
	}
	return body
}

// extractRecords pulls the raw record JSON values out of a page body.
func (s *RESTStream) extractRecords(body []byte) []gjson.Result {
	if s.def.RecordsPath == "" {
		return []gjson.Result{gjson.ParseBytes(body)}
	}
	result := gjson.GetBytes(body, s.def.RecordsPath)
	if !result.Exists() {
		return nil
	}
	if result.IsArray() {
		return result.Array()
	}
	return []gjson.Result{result}
}

// replicationValue reads the record's cursor field as a sortable string.
func (s *RESTStream) replicationValue(record gjson.Result) string {
	if s.def.ReplicationKey == "" {
		return ""
	}
	v := record.Get(s.def.ReplicationKey)
	if !v.Exists() {
		return ""
	}
	if v.Type == gjson.Number {
		return strconv.FormatInt(v.Int(), 10)
	}
	return v.String()
}

// skip applies the incremental window client-side. Search endpoints
// filter on the server, but records are still bounded by the end date.
func (s *RESTStream) skip(replValue, start string) bool {
	if s.def.ReplicationKey == "" || replValue == "" {
		return false
	}
	if !s.def.Search && start != "" && !state.After(replValue, start) {
		return true
	}
	if s.endEpoch > 0 {
		if t, ok := state.ParseTime(replValue); ok && t.Unix() > s.endEpoch {
			return true
		}
	}
	return false
}

// filterStart picks the incremental threshold: the saved bookmark when
// present, the configured start date otherwise.
func (s *RESTStream) filterStart(st core.BookmarkStore) string {
	if s.def.ReplicationKey == "" {
		return ""
	}
	if bookmark := st.Bookmark(s.def.Name); bookmark != "" {
		return bookmark
	}
	return s.start
}

// childContext builds the run context for child streams from one of this
// stream's records, using the ChildContext mapping declared on the parent.
func (s *RESTStream) childContext(parent gjson.Result, parentCtx core.Context) core.Context {
	childCtx := make(core.Context, len(s.def.ChildContext)+len(parentCtx))
	for key, value := range parentCtx {
		childCtx[key] = value
	}
	for ctxKey, field := range s.def.ChildContext {
		if v := parent.Get(field); v.Exists() {
			childCtx[ctxKey] = v.String()
		}
	}
	return childCtx
}

// interpolate substitutes {key} placeholders in a path from the run
// context.
func interpolate(path string, runCtx core.Context) string {
	if len(runCtx) == 0 || !strings.Contains(path, "{") {
		return path
	}
	for key, value := range runCtx {
		path = strings.ReplaceAll(path, "{"+key+"}", value)
	}
	return path
}
