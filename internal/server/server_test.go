package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshharrison/hlsched/internal/pipeline"
	"github.com/joshharrison/hlsched/internal/state"
)

const chainBody = `{
	"count": 2,
	"nodes": [
		{"id": 0, "children": [1], "op": "ADD"},
		{"id": 1, "children": [], "op": "ADD"}
	],
	"timing": {"ADD": 1},
	"constraints": {"ADD": 1}
}`

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type runResponse struct {
	ID       string `json:"id"`
	Schedule struct {
		TotalTime int `json:"total_time"`
		Entries   []struct {
			ID        int `json:"id"`
			StartTime int `json:"start_time"`
		} `json:"entries"`
	} `json:"schedule"`
	Error string `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) runResponse {
	t.Helper()
	var out runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestPostAndGetSchedule(t *testing.T) {
	h := New(pipeline.Config{}, nil).Handler()

	rec := do(t, h, http.MethodPost, "/schedules", chainBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	created := decode(t, rec)
	require.NotEmpty(t, created.ID)
	require.Equal(t, 1, created.Schedule.TotalTime)
	require.Len(t, created.Schedule.Entries, 2)

	rec = do(t, h, http.MethodGet, "/schedules/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, created.Schedule, got.Schedule)
}

func TestListSchedules_SubmissionOrder(t *testing.T) {
	h := New(pipeline.Config{}, nil).Handler()

	var ids []string
	for i := 0; i < 3; i++ {
		rec := do(t, h, http.MethodPost, "/schedules", chainBody)
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode(t, rec).ID)
	}

	rec := do(t, h, http.MethodGet, "/schedules", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Schedules []string `json:"schedules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, ids, out.Schedules)
}

func TestGetSchedule_NotFound(t *testing.T) {
	h := New(pipeline.Config{}, nil).Handler()
	rec := do(t, h, http.MethodGet, "/schedules/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, decode(t, rec).Error, "not found")
}

func TestPostSchedule_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "invalid json", body: `{"nodes": [`, status: http.StatusBadRequest},
		{name: "missing tables", body: `{"nodes": []}`, status: http.StatusBadRequest},
		{
			name:   "cycle",
			body:   `{"nodes": [{"id": 0, "children": [1], "op": "ADD"}, {"id": 1, "children": [0], "op": "ADD"}], "timing": {"ADD": 1}, "constraints": {"ADD": 1}}`,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "unknown operator",
			body:   `{"nodes": [{"id": 0, "op": "DIV"}], "timing": {"ADD": 1}, "constraints": {"ADD": 1}}`,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "zero units",
			body:   `{"nodes": [{"id": 0, "op": "ADD"}], "timing": {"ADD": 1}, "constraints": {"ADD": 0}}`,
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "invalid duration",
			body:   `{"nodes": [{"id": 0, "op": "ADD"}], "timing": {"ADD": 0}, "constraints": {"ADD": 1}}`,
			status: http.StatusUnprocessableEntity,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(pipeline.Config{}, nil)
			rec := do(t, s.Handler(), http.MethodPost, "/schedules", tc.body)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.NotEmpty(t, decode(t, rec).Error)
			require.Zero(t, s.store.Len())
		})
	}
}

func TestPostSchedule_BodyTooLarge(t *testing.T) {
	s := New(pipeline.Config{}, nil)
	rec := do(t, s.Handler(), http.MethodPost, "/schedules", strings.Repeat(" ", MaxBodyBytes+1))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	require.Zero(t, s.store.Len())
}

func TestPostSchedule_BodyReadError(t *testing.T) {
	s := New(pipeline.Config{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/schedules", iotest.ErrReader(errors.New("connection reset")))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, decode(t, rec).Error, "connection reset")
}

func TestPostSchedule_DefaultCycleCap(t *testing.T) {
	s := New(pipeline.Config{}, nil)
	require.Equal(t, DefaultMaxCycles, s.cfg.MaxCycles)

	body := `{
		"nodes": [{"id": 0, "op": "MUL"}, {"id": 1, "op": "MUL"}],
		"timing": {"MUL": 1099511627776},
		"constraints": {"MUL": 1}
	}`
	start := time.Now()
	rec := do(t, s.Handler(), http.MethodPost, "/schedules", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	require.Contains(t, decode(t, rec).Error, "exceeded")
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestHealthz(t *testing.T) {
	rec := do(t, New(pipeline.Config{}, nil).Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, New(pipeline.Config{}, nil).Handler(), http.MethodDelete, "/schedules", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPersistentStore(t *testing.T) {
	dir := t.TempDir()
	store, err := state.Open(dir)
	require.NoError(t, err)

	rec := do(t, New(pipeline.Config{}, store).Handler(), http.MethodPost, "/schedules", chainBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode(t, rec).ID

	reopened, err := state.Open(dir)
	require.NoError(t, err)
	rec = do(t, New(pipeline.Config{}, reopened).Handler(), http.MethodGet, "/schedules/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, decode(t, rec).Schedule.TotalTime)
}
