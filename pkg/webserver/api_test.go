package webserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"f1telemetryapi/pkg/model"
	"f1telemetryapi/pkg/provider"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "../../testdata/season-2023.json"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	src, err := provider.LoadFixtureFile(fixturePath)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	api := NewAPI(provider.NewGateway(src, logger), "R", 20*time.Millisecond, logger)
	m := NewManager(":0", time.Second, api, logger)

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t)

	var msg map[string]string
	resp := get(t, srv, "/", &msg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, rootMessage, msg["message"])
}

func TestRaces(t *testing.T) {
	srv := newTestServer(t)

	var events []model.EventScheduleEntry
	resp := get(t, srv, "/api/races/2023", &events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, events, 4)

	for i, e := range events {
		assert.NotEmpty(t, e.Name)
		assert.NotEmpty(t, e.Location)
		if i > 0 {
			assert.Greater(t, e.Round, events[i-1].Round)
		}
	}
	assert.Equal(t, 0, events[0].Round)
	assert.Equal(t, "Bahrain Grand Prix", events[1].Name)
}

func TestRacesUnknownYear(t *testing.T) {
	srv := newTestServer(t)

	var msg model.Message
	resp := get(t, srv, "/api/races/1949", &msg)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, msg.Detail, "schedule/1949")
}

func TestRacesETag(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv, "/api/races/2023", nil)
	tag := resp.Header.Get("ETag")
	require.NotEmpty(t, tag)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/races/2023", nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", tag)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp.StatusCode)
}

func TestDrivers(t *testing.T) {
	srv := newTestServer(t)

	var drivers []model.DriverSummary
	resp := get(t, srv, "/api/drivers/2023/20", &drivers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []model.DriverSummary{
		{Code: "VER", Team: "Red Bull Racing", Number: "1"},
		{Code: "HAM", Team: "Mercedes", Number: "44"},
	}, drivers)
}

func TestDriversUnknownSession(t *testing.T) {
	srv := newTestServer(t)

	var msg model.Message
	resp := get(t, srv, "/api/drivers/2023/20?session=Q", &msg)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, msg.Detail)

	resp = get(t, srv, "/api/drivers/2023/20?session=XYZ", &msg)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestLaps(t *testing.T) {
	srv := newTestServer(t)

	var records []model.LapRecord
	resp := get(t, srv, "/api/laps/2023/20/VER", &records)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []model.LapRecord{
		{LapNumber: 1, LapTime: "1:32.400"},
		{LapNumber: 2, LapTime: "1:31.900", IsFastest: true},
	}, records)
}

func TestLapsLowercaseDriver(t *testing.T) {
	srv := newTestServer(t)

	var records []model.LapRecord
	get(t, srv, "/api/laps/2023/20/ver", &records)
	assert.Len(t, records, 2)
}

func TestLapsFailuresYieldEmptyList(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/laps/2023/21/VER",
		"/api/laps/2023/20/ALO",
		"/api/laps/2023/20/VER?session=FP1",
	} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, "[]", string(body))
		})
	}
}

func TestTelemetryFastestLap(t *testing.T) {
	srv := newTestServer(t)

	var samples []model.TelemetrySample
	resp := get(t, srv, "/api/telemetry/2023/20/VER", &samples)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, samples, 4)

	assert.Equal(t, 0.0, samples[0].Time)
	assert.InDelta(t, 0.72, samples[3].Time, 1e-9)
	assert.False(t, samples[0].Brake.On())
	assert.True(t, samples[3].Brake.On())
}

func TestTelemetryExplicitLap(t *testing.T) {
	srv := newTestServer(t)

	var samples []model.TelemetrySample
	resp := get(t, srv, "/api/telemetry/2023/20/VER?lap=1", &samples)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, samples, 3)
}

func TestTelemetryFailuresAreGeneric(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/telemetry/2023/20/VER?lap=99",
		"/api/telemetry/2023/20/HAM?lap=2",
		"/api/telemetry/2023/21/VER",
	} {
		t.Run(path, func(t *testing.T) {
			var msg model.Message
			resp := get(t, srv, path, &msg)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, telemetryFailure, msg.Detail)
		})
	}
}

func TestTelemetryRejectsBadLapParam(t *testing.T) {
	srv := newTestServer(t)

	var msg model.Message
	resp := get(t, srv, "/api/telemetry/2023/20/VER?lap=fast", &msg)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, msg.Detail, "lap")
}

func TestNonNumericPathParams(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv, "/api/races/twenty", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/races/2023", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "X-Requested-With")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodGet)
	assert.Equal(t, "X-Requested-With", resp.Header.Get("Access-Control-Allow-Headers"))

	resp = get(t, srv, "/", nil)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	get(t, srv, "/api/races/2023", nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "f1telemetry_requests_total")
}

func TestReplay(t *testing.T) {
	srv := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/replay/2023/20/VER?lap=2"
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer c.Close()

	var samples []model.TelemetrySample
	lastClock := -1.0
	for {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, data, err := c.ReadMessage()
		require.NoError(t, err)

		var frame replayFrame
		require.NoError(t, json.Unmarshal(data, &frame))
		if frame.Type == frameEnd {
			assert.GreaterOrEqual(t, frame.Clock, lastClock)
			break
		}
		require.Equal(t, frameSamples, frame.Type)
		assert.Greater(t, frame.Clock, lastClock)
		lastClock = frame.Clock
		for _, s := range frame.Samples {
			assert.LessOrEqual(t, s.Time, frame.Clock)
		}
		samples = append(samples, frame.Samples...)
	}

	require.Len(t, samples, 4)
	assert.InDelta(t, 0.72, samples[3].Time, 1e-9)
}

func TestReplayFailureIsPlainHTTP(t *testing.T) {
	srv := newTestServer(t)

	var msg model.Message
	resp := get(t, srv, "/api/replay/2023/20/VER?lap=99", &msg)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, telemetryFailure, msg.Detail)
}
