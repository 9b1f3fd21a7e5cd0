package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-indexer/internal/enrich"
	"github.com/jonathan/session-indexer/internal/metrics"
	"github.com/jonathan/session-indexer/internal/ranking"
	"github.com/jonathan/session-indexer/internal/recommend"
	"github.com/jonathan/session-indexer/internal/reindex"
	"github.com/jonathan/session-indexer/internal/server/ratelimit"
	"github.com/jonathan/session-indexer/internal/store"
	"github.com/jonathan/session-indexer/internal/types"
)

var seedRaw = []types.RawRecord{
	{ExternalID: "rec-1", Filename: "GamePlan_A_Jenny_Arshiya_2024-09-15"},
	{ExternalID: "rec-2", Title: "Kelvin & Aarnav Week 4 (2024-03-15)"},
	{ExternalID: "rec-3", Filename: "Jenny_Arshiya_Week3_2024-10-01"},
}

type testServer struct {
	*Server
	mem *store.Memory
}

func newTestServer(t *testing.T, rl ratelimit.Config) *testServer {
	t.Helper()
	e := enrich.NewDefault()
	mem := store.NewMemory()

	recs := make([]types.SessionRecord, 0, len(seedRaw))
	for _, raw := range seedRaw {
		rec, err := e.ClassifyAndEnrich(raw)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	require.NoError(t, mem.CommitBatch(context.Background(), recs))

	scorer, err := ranking.NewScorer(ranking.DefaultConfig(), e.Extractor())
	require.NoError(t, err)

	s := New(Config{Host: "127.0.0.1", Port: 0, RateLimit: rl}, Deps{
		Store:       mem,
		Enricher:    e,
		Recommender: recommend.NewService(mem, scorer, recommend.DefaultConfig(), e.Classifier().RequiredTypes()),
		Reindexer:   reindex.New(mem, e, nil, reindex.Config{BatchSize: 2, Concurrency: 2}),
		Metrics:     metrics.New(),
	})
	return &testServer{Server: s, mem: mem}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestClassify_ReturnsEnrichedRecord(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "POST", "/classify", types.RawRecord{
		ExternalID: "new-1",
		Filename:   "GamePlan_A_Jenny_Arshiya_2024-09-15",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out types.SessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, types.SessionTypeGamePlan, out.SessionType)
	assert.Equal(t, "Jenny", out.Coach())
	assert.Equal(t, "Arshiya", out.Student())

	// classify never writes
	assert.Equal(t, len(seedRaw), ts.mem.Len())
}

func TestClassify_MalformedRecord(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "POST", "/classify", types.RawRecord{Filename: "no id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed record")
}

func TestClassify_InvalidBody(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	req := httptest.NewRequest("POST", "/classify", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, "POST", "/classify", map[string]string{"external_id": "x", "unknown": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommend_BucketsCandidates(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "POST", "/recommend", RecommendRequest{
		Profile: &types.Profile{Kind: types.ProfileKindCoach, Coach: "Jenny", InTraining: true},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var set types.RecommendationSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.Equal(t, len(seedRaw), set.Considered)
	assert.Len(t, set.Buckets, len(types.BucketOrder))
}

func TestRecommend_InvalidProfile(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "POST", "/recommend", RecommendRequest{
		Profile: &types.Profile{Kind: "parent"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid profile")
}

func TestRecommend_QueryFilters(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "POST", "/recommend", RecommendRequest{Query: store.Query{Coach: "kelvin"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var set types.RecommendationSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	assert.Equal(t, 1, set.Considered)
}

func TestCriticalSessions(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "GET", "/students/arshiya/critical-sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out types.CriticalSessions
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "Arshiya", out.Student)
	assert.Len(t, out.GamePlan, 1)
	assert.True(t, out.Stats.HasGamePlan)
	assert.Equal(t, 2, out.Stats.Total)
}

func TestCriticalSessions_BlankStudent(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "GET", "/students/%20/critical-sessions", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "student")
}

func TestGetRecord(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "GET", "/records/rec-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"external_id":"rec-1"`)

	rec = ts.do(t, "GET", "/records/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReindex_DryRun(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "POST", "/reindex", ReindexRequest{DryRun: true})
	require.Equal(t, http.StatusOK, rec.Code)

	var report types.ReindexReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.DryRun)
	assert.Empty(t, report.BackupNamespace)
	assert.Equal(t, len(seedRaw), report.Processed)
	assert.Empty(t, ts.mem.Backup(report.BackupNamespace))
}

func TestReindex_EmptyBodyRunsForReal(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	req := httptest.NewRequest("POST", "/reindex", nil)
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var report types.ReindexReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.False(t, report.DryRun)
	assert.True(t, strings.HasPrefix(report.BackupNamespace, reindex.BackupPrefix))
	assert.Len(t, ts.mem.Backup(report.BackupNamespace), len(seedRaw))
	assert.Zero(t, report.Updated)
}

func TestReindex_RejectsConcurrentRun(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	ts.reindexing.Lock()
	defer ts.reindexing.Unlock()

	rec := ts.do(t, "POST", "/reindex", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReindexStream_EmitsProgressReportAndComplete(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	rec := ts.do(t, "POST", "/reindex/stream", ReindexRequest{DryRun: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	var events []string
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	require.NotEmpty(t, events)

	// 3 records in batches of 2
	assert.Equal(t, []string{"progress", "progress", "report", "complete"}, events)
}

func TestRateLimit_Applied(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{
		Enabled: true,
		Endpoints: []ratelimit.EndpointConfig{
			{Path: "/classify", Method: http.MethodPost, Limit: 1, Window: time.Minute},
		},
	})

	body := types.RawRecord{ExternalID: "x", Filename: "Jenny_Arshiya"}
	assert.Equal(t, http.StatusOK, ts.do(t, "POST", "/classify", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, "POST", "/classify", body).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, "GET", "/health", nil).Code)
}

func TestMetrics_Exposed(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	ts.do(t, "GET", "/health", nil)
	rec := ts.do(t, "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `session_indexer_api_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCORS_Preflight(t *testing.T) {
	ts := newTestServer(t, ratelimit.Config{})

	req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ErrValidation{Field: "body"}, http.StatusBadRequest},
		{"malformed", &enrich.MalformedRecordError{Message: "x"}, http.StatusBadRequest},
		{"profile", &recommend.InvalidProfileError{Message: "x"}, http.StatusBadRequest},
		{"query", &recommend.InvalidQueryError{Field: "student"}, http.StatusBadRequest},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"busy", ErrReindexInProgress, http.StatusConflict},
		{"init", &reindex.InitializationError{Step: "list"}, http.StatusServiceUnavailable},
		{"other", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
