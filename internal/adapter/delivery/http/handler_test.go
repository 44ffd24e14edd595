package http

import (
	"encoding/json"
	"testing"

	"latency-monitor/internal/adapter/storage/memory"
	"latency-monitor/internal/domain/entity"
	"latency-monitor/internal/metrics"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type stubSnapshots struct{ slow int }

func (s stubSnapshots) GetSnapshot() entity.DetectionSnapshot {
	return entity.DetectionSnapshot{SlowCount: s.slow}
}

type stubProbes struct{ results []entity.ProbeResult }

func (s stubProbes) Results() []entity.ProbeResult { return s.results }

type testServer struct {
	handler fasthttp.RequestHandler
	store   *memory.ErrorStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := memory.NewErrorStore(zap.NewNop(), m)

	working := true
	probes := stubProbes{results: []entity.ProbeResult{
		{URL: "https://rpc.example.org", Protocol: entity.ProtocolHTTPS, IsWorking: &working},
	}}
	h := NewMonitorHandler(store, stubSnapshots{slow: 2}, probes, zap.NewNop())

	r := router.New()
	RegisterRoutes(r, h, reg, zap.NewNop())
	return &testServer{handler: LoggingMiddleware(r.Handler, zap.NewNop()), store: store}
}

func (s *testServer) do(method, uri, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	s.handler(&ctx)
	return &ctx
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(t)

	ctx := s.do(fasthttp.MethodGet, "/health", "")
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "OK", string(ctx.Response.Body()))
}

func TestHandler_SetAndListErrors(t *testing.T) {
	s := newTestServer(t)

	ctx := s.do(fasthttp.MethodPost, "/errors",
		`{"type":"SET_ERROR","payload":{"key":["auth"],"title":"Auth","message":"expired","type":"Session","priority":3}}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = s.do(fasthttp.MethodPost, "/errors",
		`{"type":"SET_ERROR","payload":{"key":["slowQueries"],"title":"Slow","message":"slow","type":"NetworkLatency","priority":1}}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	ctx = s.do(fasthttp.MethodGet, "/errors", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var resp errorsResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Len(t, resp.Errors, 2)
	assert.Equal(t, uint64(2), resp.Version)
	require.Len(t, resp.Sorted, 2)
	assert.Equal(t, entity.CompositeKey{"auth"}, resp.Sorted[0].Key)

	ctx = s.do(fasthttp.MethodGet, "/errors/top", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var top entity.ErrorEntry
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &top))
	assert.Equal(t, "Session", top.Classification)
}

func TestHandler_ClearError(t *testing.T) {
	s := newTestServer(t)
	s.store.Dispatch(entity.SetError(entity.ErrorEntry{Key: entity.CompositeKey{"a", "b"}, Title: "x"}))

	ctx := s.do(fasthttp.MethodPost, "/errors", `{"type":"CLEAR_ERROR","payload":{"key":["a","b"]}}`)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Empty(t, s.store.State().Errors)

	ctx = s.do(fasthttp.MethodGet, "/errors/top", "")
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}

func TestHandler_RejectsBadDispatch(t *testing.T) {
	cases := map[string]string{
		"malformed body":  `{"type":`,
		"unknown type":    `{"type":"RESET","payload":{}}`,
		"empty set key":   `{"type":"SET_ERROR","payload":{"key":[],"title":"x"}}`,
		"empty clear key": `{"type":"CLEAR_ERROR","payload":{}}`,
		"bad payload":     `{"type":"SET_ERROR","payload":"nope"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t)

			ctx := s.do(fasthttp.MethodPost, "/errors", body)
			assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
			assert.Empty(t, s.store.State().Errors)
		})
	}
}

func TestHandler_SlowQueriesAndProbes(t *testing.T) {
	s := newTestServer(t)

	ctx := s.do(fasthttp.MethodGet, "/queries/slow", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"slowCount":2}`, string(ctx.Response.Body()))

	ctx = s.do(fasthttp.MethodGet, "/probes", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var results []entity.ProbeResult
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, entity.RPCURL("https://rpc.example.org"), results[0].URL)
}

func TestHandler_ProbesDisabled(t *testing.T) {
	h := NewMonitorHandler(memory.NewErrorStore(zap.NewNop(), nil), stubSnapshots{}, nil, zap.NewNop())
	var ctx fasthttp.RequestCtx

	h.GetProbes(&ctx)
	assert.JSONEq(t, `[]`, string(ctx.Response.Body()))
}

func TestHandler_Metrics(t *testing.T) {
	s := newTestServer(t)
	s.store.Dispatch(entity.SetError(entity.ErrorEntry{Key: entity.CompositeKey{"k"}}))

	ctx := s.do(fasthttp.MethodGet, "/metrics", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "latency_monitor_active_errors 1")
}
