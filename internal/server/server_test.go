package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitriz/mtbuild/internal/core/models"
	"github.com/dmitriz/mtbuild/internal/monitoring/metrics"
	"github.com/dmitriz/mtbuild/pkg/logger"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	logger.InitWithMode(logger.LogModeTest)
	s := New("127.0.0.1:0", metrics.New())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dial(t *testing.T, s *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/livereload"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return s.clientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestStatusIdle(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "idle", status.Status)
	assert.Nil(t, status.Run)
}

func TestStatusAfterRun(t *testing.T) {
	s, ts := newTestServer(t)

	summary := models.NewRunSummary("test")
	summary.Fail(models.TaskLint, "1 style violation(s) in 1 file(s)")
	s.Notify(context.Background(), summary)

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var status StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "failure", status.Status)
	require.NotNil(t, status.Run)
	assert.Equal(t, models.TaskLint, status.Run.FailedTask)
	assert.Equal(t, summary.ID, status.Run.ID)
}

func TestLiveReloadOnSuccess(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, s, ts)

	s.Publish(models.NewRunSummary("browser"))

	msg := readMessage(t, conn)
	assert.Equal(t, MessageRun, msg.Type)
	var summary models.RunSummary
	require.NoError(t, json.Unmarshal(msg.Payload, &summary))
	assert.Equal(t, "browser", summary.Requested)

	assert.Equal(t, MessageReload, readMessage(t, conn).Type)
}

func TestNoReloadOnFailure(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, s, ts)

	failed := models.NewRunSummary("test")
	failed.Fail(models.TaskRunUnitTests, "exit status 1")
	s.Publish(failed)
	s.Publish(models.NewRunSummary("test"))

	assert.Equal(t, MessageRun, readMessage(t, conn).Type)
	// The next message belongs to the second, successful run.
	assert.Equal(t, MessageRun, readMessage(t, conn).Type)
	assert.Equal(t, MessageReload, readMessage(t, conn).Type)
}

func TestClientDisconnect(t *testing.T) {
	s, ts := newTestServer(t)
	conn := dial(t, s, ts)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.clientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	_, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `mtbuild_http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, string(body), "promhttp_metric_handler_requests_in_flight 1")
}
