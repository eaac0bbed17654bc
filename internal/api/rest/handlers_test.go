package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/felicitas/internal/fetch"
	"github.com/fortuna/felicitas/internal/game"
	"github.com/fortuna/felicitas/internal/pipeline"
	"github.com/fortuna/felicitas/internal/refresh"
	"github.com/fortuna/felicitas/internal/service"
	"github.com/fortuna/felicitas/internal/snapshot"
	"github.com/fortuna/felicitas/internal/store"
)

// stubFetcher serves canned payloads by URL, no network involved.
type stubFetcher struct {
	payloads map[string]string
}

func (f *stubFetcher) Fetch(ctx context.Context, req fetch.Request) (*fetch.Payload, error) {
	body, ok := f.payloads[req.URL]
	if !ok {
		return nil, fetch.NewTransport(fmt.Errorf("no canned payload for %s", req.URL))
	}
	return &fetch.Payload{Body: []byte(body), URL: req.URL}, nil
}

type noWait struct{}

func (noWait) Wait(ctx context.Context, provider string) error { return nil }

// newTestServer builds a full in-process stack around one real catalog
// game with a stubbed retrieval layer. No database or Redis.
func newTestServer(t *testing.T, acquire bool) (http.Handler, *service.SnapshotService) {
	t.Helper()

	spec, ok := game.ByKey("POWERBALL")
	require.True(t, ok)

	plain := &stubFetcher{payloads: map[string]string{
		spec.Chain[0].URL: `{"field_prize_amount": "$150 Million", "field_next_draw_date": "2025-03-15"}`,
	}}
	runner := pipeline.NewRunner(plain, nil, noWait{})
	agg := pipeline.NewAggregator(runner)

	snapshots := service.NewSnapshotService(agg, []game.Spec{*spec}, nil, nil, nil, service.SnapshotConfig{})
	games := service.NewGameService(game.Catalog, snapshots, nil)
	stats := service.NewStatsService(nil)
	refreshSvc := refresh.NewService(snapshots, log.New(io.Discard, "", 0))

	if acquire {
		_, err := snapshots.Acquire(context.Background(), store.RunTriggerManual, nil)
		require.NoError(t, err)
	}

	server := NewServer(":0", snapshots, games, stats, refreshSvc)
	return server.Router(), snapshots
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "GET", "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "felicitas", body["service"])
}

func TestGetSnapshotBeforeFirstRun(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "GET", "/api/v1/snapshot", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "No snapshot available", body["error"])
}

func TestGetSnapshotAfterRun(t *testing.T) {
	router, _ := newTestServer(t, true)

	rec := doRequest(t, router, "GET", "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap snapshot.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.NotEmpty(t, snap.LastUpdated)
	require.Len(t, snap.Games, 1)
	assert.Equal(t, "US Powerball", snap.Games[0].Name)
	assert.InDelta(t, 150_000_000, snap.Games[0].Jackpot, 0.01)
	assert.Equal(t, "2025-03-15", snap.Games[0].NextDraw)
	assert.Equal(t, "$", snap.Games[0].Currency)
}

func TestGetGamesCatalog(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "GET", "/api/v1/games", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Games []service.GameInfo `json:"games"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, len(game.Catalog), body.Count)
	require.NotEmpty(t, body.Games)
	assert.Equal(t, "LOTTO", body.Games[0].Key)
}

func TestGetGameLowercaseKey(t *testing.T) {
	router, _ := newTestServer(t, true)

	rec := doRequest(t, router, "GET", "/api/v1/games/powerball", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail service.GameDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "POWERBALL", detail.Key)
	assert.Equal(t, "US Powerball", detail.Name)
	require.NotNil(t, detail.Latest)
	assert.InDelta(t, 150_000_000, detail.Latest.Jackpot, 0.01)
}

func TestGetGameUnknown(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "GET", "/api/v1/games/keno", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryEndpointsWithoutStore(t *testing.T) {
	router, _ := newTestServer(t, false)

	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, router, "GET", "/api/v1/snapshot/history", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, router, "GET", "/api/v1/stats/sources", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, router, "GET", "/api/v1/stats/runs", "").Code)
}

func TestSourceStatsRejectsBadWindow(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "GET", "/api/v1/stats/sources?window=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshAccepted(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "POST", "/api/v1/refresh", `{"games": ["powerball"]}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Job refresh.Job `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Job.JobID)
	assert.Equal(t, refresh.ScopePartial, body.Job.Scope)
	assert.Equal(t, refresh.JobStatusQueued, body.Job.Status)
}

func TestRefreshEmptyBodyQueuesFullRun(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "POST", "/api/v1/refresh", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Job refresh.Job `json:"job"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, refresh.ScopeFull, body.Job.Scope)
}

func TestRefreshRejectsUnknownGame(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "POST", "/api/v1/refresh", `{"game": "keno"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshJobNotFound(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "GET", "/api/v1/refresh/refresh-20250312-000000-9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshStatusIdle(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "GET", "/api/v1/refresh/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "idle", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestServer(t, false)

	rec := doRequest(t, router, "OPTIONS", "/api/v1/games", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RecoveryMiddleware)
	router.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := doRequest(t, router, "GET", "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
