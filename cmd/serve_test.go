package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/nutrition-scraper/internal/metrics"
	"github.com/sells-group/nutrition-scraper/internal/model"
	"github.com/sells-group/nutrition-scraper/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.DriverSQLite, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestBuildRouter_Health(t *testing.T) {
	h := buildRouter(newTestStore(t), metrics.New(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestBuildRouter_Runs(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	collect, err := st.CreateRun(ctx, model.RunKindCollect)
	require.NoError(t, err)
	require.NoError(t, st.FinishRun(ctx, collect.ID, model.RunStatusComplete, &model.RunResult{Locators: 3}))
	_, err = st.CreateRun(ctx, model.RunKindScrape)
	require.NoError(t, err)

	h := buildRouter(st, metrics.New(), nil)

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var runs []model.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		assert.Len(t, runs, 2)
	})

	t.Run("filter by kind", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?kind=collect", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var runs []model.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, collect.ID, runs[0].ID)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs?limit=abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+collect.ID, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var run model.Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, model.RunStatusComplete, run.Status)
		require.NotNil(t, run.Result)
		assert.Equal(t, 3, run.Result.Locators)
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBuildRouter_EmptyRunsIsArray(t *testing.T) {
	h := buildRouter(newTestStore(t), metrics.New(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestBuildRouter_Metrics(t *testing.T) {
	m := metrics.New()
	m.ObserveRun("collect", "complete")
	h := buildRouter(newTestStore(t), m, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "runs_total")
}

func TestBuildRouter_TriggerDisabled(t *testing.T) {
	h := buildRouter(newTestStore(t), metrics.New(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"kind":"full"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/runs", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBuildRouter_CORS(t *testing.T) {
	h := buildRouter(newTestStore(t), metrics.New(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
