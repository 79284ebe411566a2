package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xmidt-org/collections/concurrent"
	"github.com/xmidt-org/collections/conlimiter"
	"github.com/xmidt-org/collections/logging"
	"github.com/xmidt-org/collections/queue"
	"github.com/xmidt-org/collections/xmetrics"
)

type summaryFunc func() Summary

func (f summaryFunc) Summary() Summary {
	return f()
}

func testRouterSummary(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)

		expected = Summary{
			ID:       "test",
			Finished: true,
			Expected: 10,
			Produced: 10,
			Consumed: 10,
			Queues: map[string]QueueSummary{
				WorkQueue: {Capacity: 5, RemainingCapacity: 5},
			},
		}

		router = newRouter(
			xmetrics.MustNewRegistry(nil),
			summaryFunc(func() Summary { return expected }),
			logging.NewTestLogger(nil, t),
		)

		response = httptest.NewRecorder()
		request  = httptest.NewRequest(http.MethodGet, "/soak", nil)
	)

	router.ServeHTTP(response, request)
	assert.Equal(http.StatusOK, response.Code)
	assert.Equal("application/json", response.Header().Get("Content-Type"))

	var actual Summary
	require.NoError(json.Unmarshal(response.Body.Bytes(), &actual))
	assert.Equal(expected, actual)
}

func testRouterMetrics(t *testing.T) {
	var (
		assert  = assert.New(t)
		require = require.New(t)
		logger  = logging.NewTestLogger(nil, t)
	)

	registry, err := xmetrics.NewRegistry(
		&xmetrics.Options{DisableGoCollector: true, DisableProcessCollector: true},
		queue.Metrics,
	)

	require.NoError(err)
	r, err := newRun(testConfig(), logger, registry)
	require.NoError(err)
	require.NoError(r.work.Add(item{Producer: 0, Sequence: 0}))

	var (
		router   = newRouter(registry, r, logger)
		response = httptest.NewRecorder()
		request  = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	)

	router.ServeHTTP(response, request)
	assert.Equal(http.StatusOK, response.Code)

	body := response.Body.String()
	assert.Contains(body, xmetrics.DefaultNamespace+"_"+xmetrics.DefaultSubsystem+"_"+queue.InsertCounter+" 1")
	assert.Contains(body, xmetrics.DefaultNamespace+"_"+xmetrics.DefaultSubsystem+"_"+queue.SizeGauge+" 1")
}

func testRouterMethodNotAllowed(t *testing.T) {
	var (
		router = newRouter(
			xmetrics.MustNewRegistry(nil),
			summaryFunc(func() Summary { return Summary{} }),
			logging.NewTestLogger(nil, t),
		)

		response = httptest.NewRecorder()
		request  = httptest.NewRequest(http.MethodPost, "/soak", strings.NewReader("{}"))
	)

	router.ServeHTTP(response, request)
	assert.Equal(t, http.StatusMethodNotAllowed, response.Code)
}

func TestNewRouter(t *testing.T) {
	t.Run("Summary", testRouterSummary)
	t.Run("Metrics", testRouterMetrics)
	t.Run("MethodNotAllowed", testRouterMethodNotAllowed)
}

func testServeListenFailure(t *testing.T) {
	_, _, err := concurrent.Execute(
		serve("invalid address", http.NotFoundHandler(), nil, logging.NewTestLogger(nil, t)),
	)

	assert.Error(t, err)
}

func testServeShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- concurrent.AwaitContext(
			ctx,
			serve("127.0.0.1:0", http.NotFoundHandler(), conlimiter.New(1, nil), logging.NewTestLogger(nil, t)),
		)
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		assert.Fail(t, "the server did not shut down")
	}
}

func TestServe(t *testing.T) {
	t.Run("ListenFailure", testServeListenFailure)
	t.Run("Shutdown", testServeShutdown)
}
