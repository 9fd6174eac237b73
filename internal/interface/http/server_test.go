package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-tracker-hub/internal/application/command"
	infracal "github.com/studyhub/study-tracker-hub/internal/infrastructure/calendar"
	"github.com/studyhub/study-tracker-hub/internal/infrastructure/persistence/memory"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type apiFixture struct {
	store  *memory.Store
	server *Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore(timeutil.TehranTZ)
	aggregator := memory.NewAggregator()
	resolver := infracal.NewPersianResolver(timeutil.TehranTZ)

	deps := Dependencies{
		StartSessionHandler:   command.NewStartSessionHandler(store, store, aggregator, resolver, nil, nil),
		PauseSessionHandler:   command.NewPauseSessionHandler(store, nil, nil),
		ResumeSessionHandler:  command.NewResumeSessionHandler(store, nil, nil),
		EndSessionHandler:     command.NewEndSessionHandler(store, aggregator, resolver, nil, nil, nil, 0),
		EnsurePresenceHandler: command.NewEnsurePresenceHandler(store, aggregator, resolver),
	}

	return &apiFixture{
		store:  store,
		server: NewServer(DefaultConfig(), deps),
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, JSONResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	return rec, resp
}

func sessionPath(userID, op string) string {
	return fmt.Sprintf("/api/v1/sessions/%s/%s", userID, op)
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION COMMAND TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestStartSessionEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodPost, sessionPath("alice", "start"), sessionRequest{
		DisplayName: "Alice",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestStartSessionTwiceConflicts(t *testing.T) {
	f := newAPIFixture(t)

	rec, _ := f.do(t, http.MethodPost, sessionPath("alice", "start"), sessionRequest{DisplayName: "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := f.do(t, http.MethodPost, sessionPath("alice", "start"), sessionRequest{DisplayName: "Alice"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "already_active", resp.Error.Code)
}

func TestStartSessionRequiresDisplayName(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodPost, sessionPath("alice", "start"), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_request", resp.Error.Code)
}

func TestPauseWithoutSessionConflicts(t *testing.T) {
	f := newAPIFixture(t)

	_, _ = f.do(t, http.MethodPost, "/api/v1/presence", map[string]string{
		"user_id": "alice", "display_name": "Alice",
	})

	rec, resp := f.do(t, http.MethodPost, sessionPath("alice", "pause"), nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "no_active_session", resp.Error.Code)
}

func TestPauseUnknownUserNotFound(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodPost, sessionPath("ghost", "pause"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestEndTooShortRejected(t *testing.T) {
	f := newAPIFixture(t)

	start := timeutil.DateTime(2026, 8, 29, 10, 0, 0)

	rec, _ := f.do(t, http.MethodPost, sessionPath("alice", "start"), sessionRequest{
		DisplayName: "Alice",
		Timestamp:   start,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := f.do(t, http.MethodPost, sessionPath("alice", "end"), sessionRequest{
		Timestamp: start.Add(30 * time.Second),
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "session_too_short", resp.Error.Code)
}

func TestFullSessionLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	start := timeutil.DateTime(2026, 8, 29, 10, 0, 0)

	rec, _ := f.do(t, http.MethodPost, sessionPath("alice", "start"), sessionRequest{
		DisplayName: "Alice",
		Timestamp:   start,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, sessionPath("alice", "pause"), sessionRequest{
		Timestamp: start.Add(2 * time.Minute),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, sessionPath("alice", "resume"), sessionRequest{
		Timestamp: start.Add(5 * time.Minute),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := f.do(t, http.MethodPost, sessionPath("alice", "end"), sessionRequest{
		Timestamp: start.Add(6 * time.Minute),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Success)

	// 2 minutes before the pause plus 1 minute after the resume.
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result command.EndSessionResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, int64(180), result.CommittedSeconds)
}

func TestEnsurePresenceEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/presence", map[string]string{
		"user_id":      "bob",
		"display_name": "Bob",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestEnsurePresenceRejectsMissingFields(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodPost, "/api/v1/presence", map[string]string{
		"user_id": "bob",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestHealthWithoutChecker(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

func TestLivenessProbe(t *testing.T) {
	f := newAPIFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/live", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
