package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	gws "github.com/gorilla/websocket"

	"simtom/internal/config"
	"simtom/internal/models"
	"simtom/pkg/auth"
	"simtom/pkg/metrics"
)

func newTestManager() *StreamManager {
	cfg := config.Default()
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	return NewStreamManager(cfg, zap.NewNop(), m)
}

// fastConfig finishes in milliseconds of wall time.
func fastConfig(total int) models.StreamConfig {
	seed := int64(1)
	return models.StreamConfig{
		RatePerSecond:   1000,
		TotalRecords:    &total,
		Seed:            &seed,
		TimeCompression: 1000,
	}
}

func newTestAuthManager(t *testing.T) *auth.Manager {
	t.Helper()
	m := auth.NewManager()
	_, err := m.GenerateAPIKey("test")
	require.NoError(t, err)
	return m
}

const fastStreamBody = `{
	"generator": "bnpl",
	"config": {
		"rate_per_second": 1000,
		"total_records": 5,
		"seed": 1,
		"time_compression": 1000
	}
}`

func TestHandleHealth(t *testing.T) {
	sm := newTestManager()
	rec := httptest.NewRecorder()
	sm.Router(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, version, body["version"])
}

func TestHandleListGenerators(t *testing.T) {
	sm := newTestManager()
	rec := httptest.NewRecorder()
	sm.Router(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generators", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var out []struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out)
	assert.Equal(t, "bnpl", out[0].Name)
}

func TestHandleCreateStream(t *testing.T) {
	sm := newTestManager()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/streams", strings.NewReader(fastStreamBody))
	sm.Router(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	id := out["stream_id"]
	require.NotEmpty(t, id)
	assert.Equal(t, "bnpl", out["generator"])

	_, ok := sm.session(id)
	assert.True(t, ok)
}

func TestHandleCreateStreamInvalidConfig(t *testing.T) {
	sm := newTestManager()
	body := `{"generator": "bnpl", "config": {"rate_per_second": 99999}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/streams", strings.NewReader(body))
	sm.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_per_second")
}

func TestHandleCreateStreamUnknownGenerator(t *testing.T) {
	sm := newTestManager()
	body := `{"generator": "nope", "config": {}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/streams", strings.NewReader(body))
	sm.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteStream(t *testing.T) {
	sm := newTestManager()
	ss, err := sm.CreateStream("bnpl", fastConfig(5))
	require.NoError(t, err)

	router := sm.Router(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/streams/"+ss.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, ok := sm.session(ss.ID)
	assert.False(t, ok)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/streams/"+ss.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStreamSSE(t *testing.T) {
	sm := newTestManager()
	body := `{"rate_per_second": 1000, "total_records": 3, "seed": 1, "time_compression": 1000}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generators/bnpl/stream", strings.NewReader(body))
	sm.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "data: "))
	assert.NotContains(t, rec.Body.String(), "event: error")
}

func TestHandleStreamSSEUnknownGenerator(t *testing.T) {
	sm := newTestManager()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generators/nope/stream", strings.NewReader(`{}`))
	sm.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStreamSSEInvalidConfig(t *testing.T) {
	sm := newTestManager()
	body := `{"rate_per_second": 99999}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generators/bnpl/stream", strings.NewReader(body))
	sm.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebSocketDeliversStream(t *testing.T) {
	sm := newTestManager()
	server := httptest.NewServer(sm.Router(nil))
	defer server.Close()

	ss, err := sm.CreateStream("bnpl", fastConfig(5))
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/streams/" + ss.ID + "/ws"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for i := 0; i < 5; i++ {
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var record map[string]any
		require.NoError(t, json.Unmarshal(payload, &record))
		assert.Equal(t, float64(i), record["sequence_index"])
		assert.Contains(t, record, "transaction_id")
	}

	// The stream is exhausted; the server closes the connection cleanly.
	_, _, err = conn.ReadMessage()
	assert.True(t, gws.IsCloseError(err, gws.CloseNormalClosure))
}

func TestWebSocketSecondConsumerRejected(t *testing.T) {
	sm := newTestManager()
	server := httptest.NewServer(sm.Router(nil))
	defer server.Close()

	ss, err := sm.CreateStream("bnpl", fastConfig(5))
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/streams/" + ss.ID + "/ws"
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, resp, err := gws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestWebSocketFailedUpgradeTearsDownSession(t *testing.T) {
	sm := newTestManager()
	ss, err := sm.CreateStream("bnpl", fastConfig(5))
	require.NoError(t, err)

	// A plain GET cannot upgrade; the session must not be left marked
	// consumed with a producer running against no consumer.
	rec := httptest.NewRecorder()
	sm.Router(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/streams/"+ss.ID+"/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, ok := sm.session(ss.ID)
	assert.False(t, ok)
}

func TestCancelDuringWebSocketAttach(t *testing.T) {
	sm := newTestManager()
	server := httptest.NewServer(sm.Router(nil))
	defer server.Close()

	// Deleting a stream while a consumer attaches must serialize cleanly:
	// either the attach sees the session gone or the delete observes the
	// attach and leaves the engine stream to the run goroutine.
	for i := 0; i < 200; i++ {
		ss, err := sm.CreateStream("bnpl", fastConfig(5))
		require.NoError(t, err)

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/streams/" + ss.ID + "/ws"

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if conn, _, err := gws.DefaultDialer.Dial(url, nil); err == nil {
				conn.Close()
			}
		}()
		go func() {
			defer wg.Done()
			sm.CancelStream(ss.ID)
		}()
		wg.Wait()
	}
}

func TestRouterAuthGuardsAPI(t *testing.T) {
	sm := newTestManager()
	authManager := newTestAuthManager(t)
	router := sm.Router(authManager)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generators", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health stays open.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
