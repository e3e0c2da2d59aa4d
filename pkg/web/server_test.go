package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-rover/pkg/camera"
	"github.com/teslashibe/go-rover/pkg/follow"
	"github.com/teslashibe/go-rover/pkg/nav"
	"github.com/teslashibe/go-rover/pkg/protocol"
	"github.com/teslashibe/go-rover/pkg/telemetry"
)

// stubController serves a canned snapshot and counts manual commands.
// Handlers run synchronously under app.Test, so plain counters are fine.
type stubController struct {
	status nav.Status
	stops  int
	resets int
}

func (c *stubController) Status() nav.Status { return c.status }

func (c *stubController) Stop() { c.stops++ }

func (c *stubController) Reset() { c.resets++ }

func newTestServer() (*Server, *stubController) {
	ctrl := &stubController{status: nav.Status{State: "SEARCH", Ticks: 42}}
	return NewServer("0", ctrl, follow.DefaultConfig()), ctrl
}

func postConfig(t *testing.T, s *Server, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/config", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/status", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var st nav.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, "SEARCH", st.State)
	assert.Equal(t, uint64(42), st.Ticks)
}

func TestStopAndResetEndpoints(t *testing.T) {
	s, ctrl := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("POST", "/api/stop", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, ctrl.stops)

	resp, err = s.app.Test(httptest.NewRequest("POST", "/api/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, 1, ctrl.resets)
}

func TestGetConfig(t *testing.T) {
	s, _ := newTestServer()
	s.Cameras = camera.NewManager()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/config", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var view configView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))

	require.NotNil(t, view.Camera)
	assert.Equal(t, 640, view.Camera.Width)
	assert.Equal(t, 480, view.Camera.Height)

	require.NotNil(t, view.Capabilities)
	assert.Contains(t, view.Capabilities, "presets")
	assert.Contains(t, view.Capabilities, "max_width")

	assert.Equal(t, 1.0, view.Follow.TargetDistanceM)
	assert.Equal(t, 0.5, view.Follow.MaxLinearSpeed)
}

func TestGetConfigWithoutCamera(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/config", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var view configView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Nil(t, view.Camera)
	assert.Nil(t, view.Capabilities)
	assert.Equal(t, 1.0, view.Follow.TargetDistanceM)
}

func TestSetConfigFollowPreset(t *testing.T) {
	s, _ := newTestServer()

	var applied []follow.Config
	s.OnFollowConfig = func(cfg follow.Config) error {
		applied = append(applied, cfg)
		return nil
	}

	resp := postConfig(t, s, `{"follow":{"preset":"slow"}}`)
	assert.Equal(t, 200, resp.StatusCode)

	require.Len(t, applied, 1)
	assert.Equal(t, 0.3, applied[0].MaxLinearSpeed)
	assert.Equal(t, 0.3, s.FollowConfig().MaxLinearSpeed)
}

func TestSetConfigFollowOverride(t *testing.T) {
	s, _ := newTestServer()

	resp := postConfig(t, s, `{"follow":{"target_distance_m":1.5}}`)
	assert.Equal(t, 200, resp.StatusCode)

	cfg := s.FollowConfig()
	assert.Equal(t, 1.5, cfg.TargetDistanceM)
	assert.Equal(t, 0.5, cfg.MaxLinearSpeed)
}

func TestSetConfigRejectsUnknownPreset(t *testing.T) {
	s, _ := newTestServer()

	resp := postConfig(t, s, `{"follow":{"preset":"warp"}}`)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, follow.DefaultConfig(), s.FollowConfig())
}

func TestSetConfigCameraPreset(t *testing.T) {
	s, _ := newTestServer()
	s.Cameras = camera.NewManager()

	resp := postConfig(t, s, `{"camera":{"preset":"lowres"}}`)
	assert.Equal(t, 200, resp.StatusCode)

	cfg := s.Cameras.GetConfig()
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
}

func TestSetConfigCameraWithoutManager(t *testing.T) {
	s, _ := newTestServer()

	resp := postConfig(t, s, `{"camera":{"width":320}}`)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestSetConfigRejectsMalformedBody(t *testing.T) {
	s, _ := newTestServer()

	resp := postConfig(t, s, `{"follow":`)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestRunsUnavailableWithoutStore(t *testing.T) {
	s, _ := newTestServer()

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/runs", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestRunHistoryEndpoints(t *testing.T) {
	store, err := telemetry.New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	started := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Runs().Create(&telemetry.Run{
		ID:        "run-1",
		Actuator:  "sim",
		StartedAt: started,
	}))

	s, _ := newTestServer()
	s.Store = store

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/runs", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var runs []*telemetry.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)

	resp, err = s.app.Test(httptest.NewRequest("GET", "/api/runs/run-1", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var detail runDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	require.NotNil(t, detail.Run)
	assert.Equal(t, "sim", detail.Run.Actuator)
	assert.Zero(t, detail.Ticks)

	resp, err = s.app.Test(httptest.NewRequest("GET", "/api/runs/ghost", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestTelemetryWebSocketSnapshot(t *testing.T) {
	ctrl := &stubController{status: nav.Status{State: "SEARCH", Ticks: 42}}
	s := NewServer("18095", ctrl, follow.DefaultConfig())

	s.StartAsync()
	t.Cleanup(func() { s.Shutdown() })
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://localhost:18095/ws/telemetry", nil)
	require.NoError(t, err)
	defer ws.Close()

	// A fresh client gets a snapshot before the first tick arrives.
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	var msg protocol.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, protocol.TypeTelemetry, msg.Type)

	var td protocol.TelemetryData
	require.NoError(t, msg.ParseData(&td))
	assert.Equal(t, "SEARCH", td.State)
	assert.Equal(t, uint64(42), td.Ticks)

	// Published updates reach the connected viewer.
	s.PublishStatus(nav.Status{State: "APPROACH", Ticks: 43})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = ws.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &msg))

	var next protocol.TelemetryData
	require.NoError(t, msg.ParseData(&next))
	assert.Equal(t, "APPROACH", next.State)
}

func TestEventFeedRoute(t *testing.T) {
	s, _ := newTestServer()

	s.AddEvent("control", "manual stop")
	s.AddEvent("sensor", "depth readings recovered")

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []EventEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 2)
	assert.Equal(t, "control", events[0].Kind)
	assert.Equal(t, "manual stop", events[0].Message)
	assert.NotEmpty(t, events[0].Time)
	assert.Equal(t, "sensor", events[1].Kind)
}

func TestEventFeedKeepsLastEntries(t *testing.T) {
	s, _ := newTestServer()
	go s.eventHub.Run()

	for i := 0; i < maxEvents+25; i++ {
		s.AddEvent("transition", fmt.Sprintf("event %d", i))
	}

	events := s.Events()
	require.Len(t, events, maxEvents)
	assert.Equal(t, "event 25", events[0].Message)
	assert.Equal(t, fmt.Sprintf("event %d", maxEvents+24), events[len(events)-1].Message)
}

func TestStopRecordsEvent(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/stop", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := s.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "control", events[0].Kind)
	assert.Equal(t, "manual stop", events[0].Message)
}
