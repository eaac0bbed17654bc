package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/felicitas/internal/refresh"
	"github.com/fortuna/felicitas/internal/snapshot"
)

// dialTestServer spins up a hub, connects one subscriber, and waits for
// the registration to land.
func dialTestServer(t *testing.T) (*Server, *websocket.Conn) {
	t.Helper()

	s := NewServer()
	go s.hub.Run()

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/jackpots"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		return s.hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	return s, conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestSnapshotBroadcast(t *testing.T) {
	s, conn := dialTestServer(t)

	snap := snapshot.New([]snapshot.GameResult{{
		Name:        "Eurojackpot",
		Jackpot:     53_000_000,
		Price:       2.00,
		NextDraw:    "2025-03-14",
		Currency:    "€",
		OddsJackpot: 139838160,
	}}, time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC))

	s.OnSnapshot(snap, []snapshot.Change{{
		Game:     "Eurojackpot",
		Kind:     snapshot.ChangeIncreased,
		Previous: 45_000_000,
		Current:  53_000_000,
		Delta:    8_000_000,
	}})

	event := readEvent(t, conn)
	assert.Equal(t, "snapshot", event["type"])

	inner, ok := event["snapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-03-12 10:00:00", inner["last_updated"])

	games, ok := inner["games"].([]interface{})
	require.True(t, ok)
	require.Len(t, games, 1)

	changes, ok := event["changes"].([]interface{})
	require.True(t, ok)
	require.Len(t, changes, 1)
}

func TestRefreshJobBroadcast(t *testing.T) {
	s, conn := dialTestServer(t)

	s.OnJobComplete(&refresh.Job{
		JobID:    "refresh-20250312-100000-1",
		Scope:    refresh.ScopeFull,
		Status:   refresh.JobStatusCompleted,
		Total:    7,
		Resolved: 7,
	})

	event := readEvent(t, conn)
	assert.Equal(t, "refresh_completed", event["type"])

	job, ok := event["job"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "refresh-20250312-100000-1", job["job_id"])
	assert.Equal(t, "completed", job["status"])
}

func TestJobErrorCarriesReason(t *testing.T) {
	s, conn := dialTestServer(t)

	s.OnJobError(&refresh.Job{JobID: "refresh-x", Status: refresh.JobStatusFailed}, assert.AnError)

	event := readEvent(t, conn)
	assert.Equal(t, "refresh_failed", event["type"])
	assert.NotEmpty(t, event["error"])
}

func TestHealthReportsClientCount(t *testing.T) {
	s, _ := dialTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ws/health", nil)
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"clients": 1`)
}
