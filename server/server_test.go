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

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/ClipFinance/juice-bot-relay/relay"
	"github.com/ClipFinance/juice-bot-relay/store"
	"github.com/ClipFinance/juice-bot-relay/store/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "paloma1owner"

var serverTime = time.Unix(1_000_000, 0)

type staticMonitor struct {
	healthy bool
}

func (m *staticMonitor) Start(context.Context) error { return nil }
func (m *staticMonitor) Stop()                      {}
func (m *staticMonitor) Healthy() bool               { return m.healthy }

func newTestServer(t *testing.T, monitor *staticMonitor, metricsAPIKey string) *httptest.Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r, err := relay.NewBuilder(memory.NewBackend()).WithLogger(logger).Build()
	require.NoError(t, err)

	srv := NewServer(":0", r, nil, logger, metricsAPIKey)
	srv.now = func() time.Time { return serverTime }
	if monitor != nil {
		srv.monitor = monitor
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealthAndReadiness(t *testing.T) {
	monitor := &staticMonitor{healthy: true}
	ts := newTestServer(t, monitor, "")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	monitor.healthy = false
	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestExecuteFlow(t *testing.T) {
	ts := newTestServer(t, nil, "")

	resp, body := post(t, ts, "/execute", `{"sender":"`+owner+`","msg":{"set_paloma":{}}}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "relay state not found")

	resp, _ = post(t, ts, "/instantiate", `{"sender":"`+owner+`","msg":{"retry_delay":100,"job_id":"juice-job","creator":"c","signers":["s"]}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = post(t, ts, "/instantiate", `{"sender":"other","msg":{"job_id":"x"}}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	create := `{"create_next_bot":{"bot_id":"7","callbacker":"0x4444444444444444444444444444444444444444","callback_args":["1"],"remaining_count":"3"}}`

	resp, body = post(t, ts, "/execute", `{"sender":"`+owner+`","msg":`+create+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages, ok := body["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 1)
	assert.Equal(t, "juice-job", messages[0].(map[string]interface{})["job_id"])

	resp, _ = post(t, ts, "/execute", `{"sender":"`+owner+`","msg":`+create+`}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = post(t, ts, "/execute", `{"sender":"paloma1stranger","msg":`+create+`}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = post(t, ts, "/execute", `{"sender":"`+owner+`","msg":{"repay_bot":{"bot_info":[]}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, ts, "/execute", `{"sender":"`+owner+`","msg":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, ts, "/execute", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	httpResp, err := http.Get(ts.URL + "/retries")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var records []store.Record
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, "7", records[0].Key.Subject)
	assert.Equal(t, uint64(serverTime.Unix()), records[0].LastAttempt)
}

func TestExecuteIgnoresCallerTime(t *testing.T) {
	ts := newTestServer(t, nil, "")

	resp, _ := post(t, ts, "/instantiate", `{"sender":"`+owner+`","msg":{"retry_delay":3600,"job_id":"juice-job"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	create := `{"create_next_bot":{"bot_id":"7","callbacker":"0x4444444444444444444444444444444444444444","callback_args":["1"],"remaining_count":"3"}}`

	resp, _ = post(t, ts, "/execute", `{"sender":"`+owner+`","msg":`+create+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, blockTime := range []string{"99999999999", "199999999999"} {
		resp, _ = post(t, ts, "/execute", `{"sender":"`+owner+`","block_time":`+blockTime+`,"msg":`+create+`}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode, "block_time %s", blockTime)
	}

	httpResp, err := http.Get(ts.URL + "/retries")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var records []store.Record
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Equal(t, uint64(serverTime.Unix()), records[0].LastAttempt)
}

func TestQueries(t *testing.T) {
	ts := newTestServer(t, nil, "")

	resp, _ := post(t, ts, "/instantiate", `{"sender":"`+owner+`","msg":{"retry_delay":10,"job_id":"juice-job"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	httpResp, err := http.Get(ts.URL + "/job-id")
	require.NoError(t, err)
	defer httpResp.Body.Close()
	var jobID types.GetJobIDResponse
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&jobID))
	assert.Equal(t, "juice-job", jobID.JobID)

	resp, body := post(t, ts, "/query", `{"get_job_id":{}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "juice-job", body["job_id"])

	resp, _ = post(t, ts, "/query", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsAuth(t *testing.T) {
	ts := newTestServer(t, nil, "secret")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, nil, "")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "caller-id")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "caller-id", resp.Header.Get("X-Request-ID"))
}
