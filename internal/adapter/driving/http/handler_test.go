package httphandler_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/covlens/internal/adapter/driven/memcache"
	httphandler "github.com/ericfisherdev/covlens/internal/adapter/driving/http"
	"github.com/ericfisherdev/covlens/internal/application"
	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/query"
)

// --- Mock implementations ---

type mockTransport struct {
	mu    sync.Mutex
	reply string
	err   error
	ops   []contract.Operation
}

func (m *mockTransport) Execute(_ context.Context, op contract.Operation) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	if m.err != nil {
		return nil, m.err
	}
	return []byte(m.reply), nil
}

func (m *mockTransport) lastOp(t *testing.T) contract.Operation {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.ops)
	return m.ops[len(m.ops)-1]
}

type mockWatchStore struct {
	mu      sync.Mutex
	nextID  int64
	watches []model.Watch
	addErr  error
}

func (m *mockWatchStore) Add(_ context.Context, t model.QueryTarget) (model.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return model.Watch{}, m.addErr
	}
	m.nextID++
	w := model.Watch{ID: m.nextID, Target: t, AddedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m.watches = append(m.watches, w)
	return w, nil
}

func (m *mockWatchStore) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.watches {
		if w.ID == id {
			m.watches = append(m.watches[:i], m.watches[i+1:]...)
			return nil
		}
	}
	return driven.ErrWatchNotFound
}

func (m *mockWatchStore) List(_ context.Context) ([]model.Watch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Watch(nil), m.watches...), nil
}

// --- Test helpers ---

const commitPageReply = `{"owner":{"isCurrentUserPartOfOrg":true,"repository":{"__typename":"Repository",
  "private":true,"bundleAnalysisEnabled":true,"coverageEnabled":true,
  "commit":{"commitid":"abc","compareWithParent":{"__typename":"Comparison",
    "patchTotals":{"missesCount":2,"partialsCount":1,"percentCovered":62.5}},
  "bundleAnalysis":{"bundleAnalysisReport":{"__typename":"BundleAnalysisReport","isCached":true},
    "bundleAnalysisCompareWithParent":{"__typename":"BundleAnalysisComparison","bundleChange":{"size":{"uncompress":10000}}}}}}}}`

const branchFileReply = `{"owner":{"isCurrentUserPartOfOrg":false,"repository":{"__typename":"Repository",
  "branch":{"name":"main","head":{"commitid":"c1","coverageAnalytics":{"flagNames":["unit"],"components":[],
    "coverageFile":{"content":"a\nb","coverage":[{"line":1,"coverage":"H"},{"line":2,"coverage":"M"}],"totals":{"percentCovered":50}}}}}}}}`

const pathContentsReply = `{"owner":{"isCurrentUserPartOfOrg":true,"repository":{"__typename":"Repository",
  "branch":{"head":{"pathContents":{"__typename":"PathContents","results":[
    {"__typename":"PathContentDir","name":"src","path":"src","hits":3,"misses":1,"partials":0,"lines":4,"percentCovered":75},
    {"__typename":"PathContentFile","name":"main.go","path":"main.go","hits":1,"misses":0,"partials":0,"lines":1,"percentCovered":100,"isCriticalFile":true}
  ]}}}}}}`

const notActivatedReply = `{"owner":{"isCurrentUserPartOfOrg":false,"repository":{"__typename":"OwnerNotActivatedError","message":"activate"}}}`

const noCommitReply = `{"owner":{"isCurrentUserPartOfOrg":true,"repository":{"__typename":"Repository",
  "private":false,"bundleAnalysisEnabled":false,"coverageEnabled":true,"commit":null}}}`

type testServer struct {
	mux       http.Handler
	transport *mockTransport
	watches   *mockWatchStore
}

func setup(t *testing.T, reply string) *testServer {
	t.Helper()
	transport := &mockTransport{reply: reply}
	watches := &mockWatchStore{}
	cache := memcache.New(64, time.Minute, time.Hour)
	queries := application.NewQueryService(query.NewBuilder(transport), cache)
	warmer := application.NewWarmService(watches, queries, time.Hour)
	go warmer.Start(t.Context())
	h := httphandler.NewHandler(queries, warmer, slog.Default())
	return &testServer{
		mux:       httphandler.NewServeMux(h, slog.Default()),
		transport: transport,
		watches:   watches,
	}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Tests ---

func TestGetCommitPage(t *testing.T) {
	srv := setup(t, commitPageReply)

	rec := srv.do(http.MethodGet, "/api/v1/repos/gh/codecov/gazebo/commit/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.CommitPageResponse
	decodeJSON(t, rec, &body)
	assert.True(t, body.IsCurrentUserPartOfOrg)
	assert.True(t, body.Private)
	require.NotNil(t, body.Commit)
	assert.Equal(t, "abc", body.Commit.CommitID)
	assert.Equal(t, "3 lines in your changes are missing coverage", body.Commit.Coverage.Message)
	assert.Equal(t, "changes will increase total bundle size by 10kB", body.Commit.Bundle.Message)
	assert.Equal(t, "10kB", body.Commit.Bundle.SizeHuman)

	op := srv.transport.lastOp(t)
	assert.Equal(t, "CommitPageData", op.Name)
	assert.Equal(t, "gh", op.Provider)
}

func TestGetCommitPage_NullCommit(t *testing.T) {
	srv := setup(t, noCommitReply)

	rec := srv.do(http.MethodGet, "/api/v1/repos/gh/codecov/gazebo/commit/missing", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Nil(t, body["commit"])
	assert.Equal(t, true, body["coverage_enabled"])
}

func TestGetBranchFile(t *testing.T) {
	srv := setup(t, branchFileReply)

	rec := srv.do(http.MethodGet, "/api/v1/repos/gh/codecov/gazebo/branch/main/file/src/a.go?flags=unit&components=core", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.CoverageFileResponse
	decodeJSON(t, rec, &body)
	assert.Equal(t, map[string]string{"1": "H", "2": "M"}, body.Coverage)
	assert.InDelta(t, 50.0, body.Totals, 0.001)
	assert.Equal(t, []string{"unit"}, body.FlagNames)
	assert.Equal(t, []string{}, body.ComponentNames)

	vars := srv.transport.lastOp(t).Variables
	assert.Equal(t, "src/a.go", vars["path"])
	assert.Equal(t, "main", vars["ref"])
}

func TestGetPullFile_InvalidPullID(t *testing.T) {
	srv := setup(t, branchFileReply)

	rec := srv.do(http.MethodGet, "/api/v1/repos/gh/codecov/gazebo/pull/abc/file/a.go", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.transport.ops)
}

func TestGetPathContents(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantPath string
	}{
		{"root", "/api/v1/repos/gh/codecov/gazebo/branch/main/tree", ""},
		{"nested", "/api/v1/repos/gh/codecov/gazebo/branch/main/tree/src/", "src"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setup(t, pathContentsReply)

			rec := srv.do(http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var body httphandler.PathContentsResponse
			decodeJSON(t, rec, &body)
			assert.Equal(t, "ok", body.Status)
			require.Len(t, body.Entries, 2)
			assert.Equal(t, "dir", body.Entries[0].Kind)
			assert.True(t, body.Entries[1].IsCriticalFile)
			assert.Equal(t, tt.wantPath, srv.transport.lastOp(t).Variables["path"])
		})
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"owner not activated", notActivatedReply, nil, http.StatusForbidden, "owner_not_activated"},
		{"contract drift", `{"owner":{"isCurrentUserPartOfOrg":false,"repository":{"__typename":"SomethingNew"}}}`, nil, http.StatusBadRequest, "parse_failure"},
		{"transport failure", "", driven.ErrTransport, http.StatusBadGateway, ""},
		{"deadline", "", context.DeadlineExceeded, http.StatusGatewayTimeout, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setup(t, tt.reply)
			srv.transport.err = tt.err

			rec := srv.do(http.MethodGet, "/api/v1/repos/gh/codecov/gazebo/commit/abc", "")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			decodeJSON(t, rec, &body)
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, body["kind"])
				assert.NotEmpty(t, body["detail_html"])
			} else {
				assert.Nil(t, body["kind"])
			}
		})
	}
}

func TestQueryErrors_ActionURL(t *testing.T) {
	srv := setup(t, notActivatedReply)

	rec := srv.do(http.MethodGet, "/api/v1/repos/gh/codecov/gazebo/commit/abc", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "/members/gh/codecov", body["action_url"])
	assert.Contains(t, body["detail_html"], `href="/members/gh/codecov"`)
}

func TestPrefetch_WaitReturnsEntry(t *testing.T) {
	srv := setup(t, pathContentsReply)

	rec := srv.do(http.MethodPost, "/api/v1/prefetch?wait=true",
		`{"kind":"path_contents","provider":"gh","owner":"codecov","repo":"gazebo","ref":"main"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.PrefetchResponse
	decodeJSON(t, rec, &body)
	assert.NotEmpty(t, body.Key)
	require.NotNil(t, body.Entry)
	assert.True(t, body.Entry.HasData)
	assert.Nil(t, body.Entry.Error)

	// A read after prefetch hits the cache.
	rec = srv.do(http.MethodGet, "/api/v1/repos/gh/codecov/gazebo/branch/main/tree", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, srv.transport.ops, 1)
}

func TestPrefetch_WaitStoresClassifiedError(t *testing.T) {
	srv := setup(t, notActivatedReply)

	rec := srv.do(http.MethodPost, "/api/v1/prefetch?wait=true",
		`{"kind":"commit_page","provider":"gh","owner":"codecov","repo":"gazebo","ref":"abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.PrefetchResponse
	decodeJSON(t, rec, &body)
	require.NotNil(t, body.Entry)
	assert.False(t, body.Entry.HasData)
	require.NotNil(t, body.Entry.Error)
}

func TestPrefetch_Async(t *testing.T) {
	srv := setup(t, pathContentsReply)

	rec := srv.do(http.MethodPost, "/api/v1/prefetch",
		`{"kind":"path_contents","provider":"gh","owner":"codecov","repo":"gazebo","ref":"main"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body httphandler.PrefetchResponse
	decodeJSON(t, rec, &body)
	assert.NotEmpty(t, body.Key)
	assert.Nil(t, body.Entry)
}

func TestPrefetch_InvalidTarget(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{`},
		{"unknown field", `{"kind":"commit_page","bogus":1}`},
		{"unknown kind", `{"kind":"nope","provider":"gh","owner":"o","repo":"r","ref":"x"}`},
		{"non-numeric pull", `{"kind":"pull_file","provider":"gh","owner":"o","repo":"r","ref":"x","path":"a.go"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setup(t, pathContentsReply)
			rec := srv.do(http.MethodPost, "/api/v1/prefetch", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv := setup(t, pathContentsReply)

	rec := srv.do(http.MethodGet, "/api/v1/cache", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var keys httphandler.CacheKeysResponse
	decodeJSON(t, rec, &keys)
	assert.Empty(t, keys.Keys)
	assert.NotNil(t, keys.Keys)

	rec = srv.do(http.MethodPost, "/api/v1/prefetch?wait=true",
		`{"kind":"path_contents","provider":"gh","owner":"codecov","repo":"gazebo","ref":"main"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var prefetch httphandler.PrefetchResponse
	decodeJSON(t, rec, &prefetch)

	rec = srv.do(http.MethodGet, "/api/v1/cache", "")
	decodeJSON(t, rec, &keys)
	assert.Equal(t, []string{prefetch.Key}, keys.Keys)

	escaped := "/api/v1/cache?key=" + url.QueryEscape(prefetch.Key)
	rec = srv.do(http.MethodGet, escaped, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry httphandler.CacheEntryResponse
	decodeJSON(t, rec, &entry)
	assert.True(t, entry.HasData)
	assert.NotEmpty(t, entry.UpdatedAt)

	rec = srv.do(http.MethodDelete, escaped, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(http.MethodDelete, escaped, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(http.MethodDelete, "/api/v1/cache", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWatchEndpoints(t *testing.T) {
	srv := setup(t, pathContentsReply)

	rec := srv.do(http.MethodPost, "/api/v1/watches",
		`{"kind":"path_contents","provider":"gh","owner":"codecov","repo":"gazebo","ref":"main","path":"/src/"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created httphandler.WatchResponse
	decodeJSON(t, rec, &created)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", created.AddedAt)
	assert.Equal(t, []string{}, created.Target.Flags)
	assert.NotEmpty(t, created.Key)

	rec = srv.do(http.MethodGet, "/api/v1/watches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []httphandler.WatchResponse
	decodeJSON(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, created.Key, list[0].Key)

	rec = srv.do(http.MethodPost, "/api/v1/watches/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var warm httphandler.WarmResponse
	decodeJSON(t, rec, &warm)
	assert.Equal(t, 1, warm.Targets)
	assert.Zero(t, warm.Failed)

	rec = srv.do(http.MethodDelete, "/api/v1/watches/1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(http.MethodDelete, "/api/v1/watches/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(http.MethodDelete, "/api/v1/watches/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddWatch_Errors(t *testing.T) {
	srv := setup(t, pathContentsReply)

	rec := srv.do(http.MethodPost, "/api/v1/watches", `{"kind":"commit_file","provider":"gh","owner":"o","repo":"r","ref":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	srv.watches.addErr = driven.ErrWatchAlreadyExists
	rec = srv.do(http.MethodPost, "/api/v1/watches", `{"kind":"commit_page","provider":"gh","owner":"o","repo":"r","ref":"c"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestContracts(t *testing.T) {
	srv := setup(t, "")

	rec := srv.do(http.MethodGet, "/api/v1/contracts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	decodeJSON(t, rec, &names)
	assert.Contains(t, names, "CommitPageData")
	assert.Contains(t, names, "PathContents")

	rec = srv.do(http.MethodGet, "/api/v1/contracts/CommitPageData", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/schema+json", rec.Header().Get("Content-Type"))
	assert.True(t, json.Valid(rec.Body.Bytes()))

	rec = srv.do(http.MethodGet, "/api/v1/contracts/Nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewSchema(t *testing.T) {
	srv := setup(t, "")

	rec := srv.do(http.MethodGet, "/api/v1/views/coverage_file", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flag_names")

	rec = srv.do(http.MethodGet, "/api/v1/views/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := setup(t, "")

	rec := srv.do(http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.HealthResponse
	decodeJSON(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	_, err := time.Parse(time.RFC3339, body.Time)
	assert.NoError(t, err)
}

func TestRequestID(t *testing.T) {
	srv := setup(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = srv.do(http.MethodGet, "/api/v1/health", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestCrossOriginProtection(t *testing.T) {
	srv := setup(t, pathContentsReply)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/watches/1", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec = httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPrefetch_RequiresJSONContentType(t *testing.T) {
	srv := setup(t, pathContentsReply)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/prefetch",
		strings.NewReader(`{"kind":"commit_page","provider":"gh","owner":"o","repo":"r","ref":"c"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	srv.mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestPrefetch_ReportsStoredKeyForNonCanonicalTarget(t *testing.T) {
	srv := setup(t, noCommitReply)

	rec := srv.do(http.MethodPost, "/api/v1/prefetch?wait=true",
		`{"kind":"commit_page","provider":"gh","owner":"codecov","repo":"gazebo","ref":"abc","path":"a.go","flags":["unit"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body httphandler.PrefetchResponse
	decodeJSON(t, rec, &body)
	require.NotNil(t, body.Entry)
	assert.True(t, body.Entry.HasData)

	rec = srv.do(http.MethodGet, "/api/v1/cache", "")
	var keys httphandler.CacheKeysResponse
	decodeJSON(t, rec, &keys)
	assert.Equal(t, []string{body.Key}, keys.Keys)
}
