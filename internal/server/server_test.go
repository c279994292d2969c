package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapview/internal/metrics"
	"github.com/leapstack-labs/leapview/internal/server/notifier"
	"github.com/leapstack-labs/leapview/internal/session"
	"github.com/leapstack-labs/leapview/internal/state"
	"github.com/leapstack-labs/leapview/internal/testutil"
	"github.com/leapstack-labs/leapview/internal/workspace"
	"github.com/leapstack-labs/leapview/pkg/core"
)

const testDoc = `
nodes:
  - id: c1
    kind: dataConnection
    lookup: daily_orders
    schema:
      type: object
      properties:
        total: {type: number}
    actions:
      - key: fetchLatest
        label: Fetch latest
        invocation: {type: dataConnection, mode: server}
  - id: dash
    kind: interface
    name: Sales Dashboard
    web_path: /sales
edges:
  - {source: c1, target: dash, label: connection}
`

type testServer struct {
	srv     *Server
	manager *session.Manager
	http    *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	doc, err := workspace.ParseDocument([]byte(testDoc))
	require.NoError(t, err)
	ws, err := workspace.New([]workspace.Document{*doc})
	require.NoError(t, err)

	store, err := state.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	registry := prometheus.NewRegistry()
	m := metrics.New()
	m.MustRegister(registry)

	logger := testutil.NewTestLogger(t)
	n := notifier.New(8)
	mgr := session.NewManager(session.Config{
		Workspace: ws,
		Store:     store,
		Metrics:   m,
		Logger:    logger,
	})
	srv := New(Config{
		Manager:   mgr,
		Workspace: ws,
		Notifier:  n,
		Gatherer:  registry,
		Logger:    logger,
	})
	mgr.SetOnChange(srv.Broadcast)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = mgr.CloseAll(context.Background())
	})
	return &testServer{srv: srv, manager: mgr, http: ts}
}

func (ts *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestListInterfaces(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/interfaces", "")
	require.Equal(t, http.StatusOK, status)

	var got []interfaceSummary
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "dash", got[0].ID)
	assert.Equal(t, "sales-dashboard", got[0].Lookup)
	assert.False(t, got[0].Open)

	ts.do(t, http.MethodGet, "/api/interfaces/dash/slices", "")
	_, body = ts.do(t, http.MethodGet, "/api/interfaces", "")
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got[0].Open)
}

func TestSlices(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/interfaces/sales-dashboard/slices", "")
	require.Equal(t, http.StatusOK, status, string(body))

	var got slicesResponse
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Slices, 1)
	assert.Equal(t, "dailyOrders", got.Slices[0].Key)
	assert.Empty(t, got.Unresolved)
	assert.Equal(t, []string{"dash"}, ts.manager.OpenInterfaces())
}

func TestUnknownInterface(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/interfaces/nope/slices", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "nope")
}

func TestPatchSlice(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPatch, "/api/interfaces/dash/slices/dailyOrders", `{"access_mode":"client"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var sl core.GeneratedDataSlice
	require.NoError(t, json.Unmarshal(body, &sl))
	assert.Equal(t, core.AccessClient, sl.AccessMode)

	status, _ = ts.do(t, http.MethodPatch, "/api/interfaces/dash/slices/missing", `{"access_mode":"client"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodPatch, "/api/interfaces/dash/slices/dailyOrders", `{"access_mode":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPatch, "/api/interfaces/dash/slices/dailyOrders", `{"unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestActions(t *testing.T) {
	ts := newTestServer(t)
	path := "/api/interfaces/dash/slices/dailyOrders/actions/fetchLatest"

	status, body := ts.do(t, http.MethodPut, path, `{"enabled":false}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var got modeResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, core.ModeDisabled, got.Mode)

	status, body = ts.do(t, http.MethodGet, "/api/interfaces/dash/plan", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))

	status, body = ts.do(t, http.MethodPost, path+"/toggle", `{"surface":"handler"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, core.ModeServer, got.Mode)

	status, _ = ts.do(t, http.MethodPost, path+"/toggle", `{"surface":"client"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPut, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPlan(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPatch, "/api/interfaces/dash/plan/dailyOrders:fetchLatest", `{"result_name":"latest"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var steps []core.HandlerPlanStep
	require.NoError(t, json.Unmarshal(body, &steps))
	require.Len(t, steps, 1)
	assert.Equal(t, "latest", steps[0].ResultName)

	status, _ = ts.do(t, http.MethodPatch, "/api/interfaces/dash/plan/missing", `{"result_name":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, http.MethodPatch, "/api/interfaces/dash/plan/dailyOrders:fetchLatest", `{"result_name":"1bad"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandlerFragment(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPut, "/api/interfaces/dash/handler", `{"value":"export default async () => ({})"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	var got fragmentBody
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Custom)

	status, body = ts.do(t, http.MethodDelete, "/api/interfaces/dash/handler", "")
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &got))
	assert.False(t, got.Custom)
	assert.NotEmpty(t, got.Value)
}

func TestArtifactsAndValidation(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodGet, "/api/interfaces/dash/artifacts", "")
	require.Equal(t, http.StatusOK, status)
	var arts artifactsResponse
	require.NoError(t, json.Unmarshal(body, &arts))
	assert.NotEmpty(t, arts.Files)

	status, body = ts.do(t, http.MethodGet, "/api/interfaces/dash/validation", "")
	require.Equal(t, http.StatusOK, status)
	var res core.ValidationResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Valid, "%+v", res.Errors)
}

func TestCloseSession(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodGet, "/api/interfaces/dash/slices", "")
	require.Equal(t, []string{"dash"}, ts.manager.OpenInterfaces())

	status, _ := ts.do(t, http.MethodDelete, "/api/interfaces/dash", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, ts.manager.OpenInterfaces())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/interfaces/dash/slices", "")

	status, body := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "leapview_session_open 1")
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.http.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return ts.srv.Notifier().Listeners() == 1 }, time.Second, 10*time.Millisecond)
	ts.srv.Broadcast("dash")

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "event: ") && line != "event: connected\n" {
			break
		}
	}
	assert.Equal(t, "event: "+string(notifier.KindCompiled)+"\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"dash"`)
}
