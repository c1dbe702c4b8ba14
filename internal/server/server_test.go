package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/access-cli/internal/access"
	"github.com/sells-group/access-cli/internal/impedance"
	"github.com/sells-group/access-cli/internal/measure"
	"github.com/sells-group/access-cli/internal/store"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	reg := measure.NewRegistry()
	require.NoError(t, reg.Register("CUMR_10", impedance.CumulativeRectangular, 10, 0))
	require.NoError(t, reg.Register("EXP_0_15", impedance.NegativeExponential, 0.15, 30))

	return New(st, reg), st
}

func doRequest(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler([]string{"*"}).ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMeasures(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/measures")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []measureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "CUMR_10", got[0].Name)
	assert.Equal(t, "cumulative_rectangular", got[0].Family)
	assert.Equal(t, 10.0, got[0].Param)
	assert.Equal(t, "EXP_0_15", got[1].Name)
	assert.Equal(t, 30.0, got[1].Cutoff)
}

func TestScores(t *testing.T) {
	s, st := newTestServer(t)

	require.NoError(t, st.UpsertScores(context.Background(), []access.ScoreRow{
		{OriginID: "O1", Scores: map[string]float64{"CUMR_10": 100, "EXP_0_15": 61.4}},
	}))

	rec := doRequest(t, s, http.MethodGet, "/api/scores/O1")
	require.Equal(t, http.StatusOK, rec.Code)

	var got scoresResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "O1", got.OriginID)
	assert.Equal(t, 100.0, got.Scores["CUMR_10"])
}

func TestScores_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/scores/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "no scores for origin NOPE")
}

func TestRun(t *testing.T) {
	s, st := newTestServer(t)

	run, err := st.CreateRun(context.Background(), 500, []string{"CUMR_10"})
	require.NoError(t, err)

	rec := doRequest(t, s, http.MethodGet, "/api/runs/"+run.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, store.RunStatusRunning, got.Status)
	assert.Equal(t, 500, got.BatchSize)
}

func TestRun_NotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/measures", nil)
	req.Header.Set("Origin", "https://maps.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	s.Handler([]string{"*"}).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
