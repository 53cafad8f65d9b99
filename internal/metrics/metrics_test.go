// Metrics tests in Tracker.

package metrics

import (
	"Tracker/internal/test"
	"Tracker/pkg/log"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.Handshakes.WithLabelValues(HandshakeDenied).Inc()
	m.Handshakes.WithLabelValues(HandshakeDenied).Inc()
	m.SessionsActive.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Handshakes.WithLabelValues(HandshakeDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(`
# HELP tracker_sessions_active Number of websocket sessions currently joined to a group.
# TYPE tracker_sessions_active gauge
tracker_sessions_active 1
`), "tracker_sessions_active"))

	// Registering twice on the same registry is a programming error
	assert.Panics(t, func() { New(registry) })
}

func TestClusterSessions(t *testing.T) {
	ctx := context.Background()
	client, _ := test.MockRedis(t)
	repo := NewRepository(client)
	logger := log.NewNop()

	a := NewService("a", func() int { return 3 }, repo, quartz.NewReal(), logger)
	b := NewService("b", func() int { return 4 }, repo, quartz.NewReal(), logger)
	require.NoError(t, a.Report(ctx))
	require.NoError(t, b.Report(ctx))

	cluster, err := a.GetClusterSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, ClusterSessions{Total: 7, Peak: 7, Instances: map[string]int64{"a": 3, "b": 4}}, cluster)

	require.NoError(t, repo.DelInstance(ctx, logger, "b"))
	require.NoError(t, a.Report(ctx))
	cluster, err = a.GetClusterSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cluster.Total)
	// The peak only ever grows
	assert.Equal(t, int64(7), cluster.Peak)
}

func TestPeakCountsOtherInstancesOnce(t *testing.T) {
	ctx := context.Background()
	client, _ := test.MockRedis(t)
	repo := NewRepository(client)
	logger := log.NewNop()

	require.NoError(t, repo.SetInstanceSessions(ctx, logger, "a", 10))
	require.NoError(t, repo.SetInstanceSessions(ctx, logger, "b", 5))
	// a drops, its old count must not be added to the new one
	require.NoError(t, repo.SetInstanceSessions(ctx, logger, "a", 2))
	require.NoError(t, repo.SetInstanceSessions(ctx, logger, "a", 12))

	peak, err := repo.GetPeak(ctx, logger)
	require.NoError(t, err)
	assert.Equal(t, int64(17), peak)
}

func TestPeakWhenRedisIsDown(t *testing.T) {
	client, server := test.MockRedis(t)
	repo := NewRepository(client)
	server.Close()

	_, err := repo.GetPeak(context.Background(), log.NewNop())
	assert.Error(t, err)
	assert.Error(t, repo.SetInstanceSessions(context.Background(), log.NewNop(), "a", 1))
}

func TestRunReporter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, _ := test.MockRedis(t)
	repo := NewRepository(client)
	clock := quartz.NewMock(t)

	var sessions atomic.Int64
	count := func() int { return int(sessions.Load()) }
	svc := NewService("a", count, repo, clock, log.NewNop())

	trap := clock.Trap().NewTicker("metrics", "reporter")
	defer trap.Close()
	reporterCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunReporter(reporterCtx, time.Minute)
	}()
	trap.MustWait(ctx).MustRelease(ctx)

	sessions.Store(5)
	clock.Advance(time.Minute).MustWait(ctx)
	require.Eventually(t, func() bool {
		cluster, err := svc.GetClusterSessions(ctx)
		return err == nil && cluster.Instances["a"] == 5
	}, 5*time.Second, 10*time.Millisecond)

	stop()
	<-done
	cluster, err := svc.GetClusterSessions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, cluster.Instances, "a")
}

func TestAPIHandlers(t *testing.T) {
	client, _ := test.MockRedis(t)
	registry := prometheus.NewRegistry()
	m := New(registry)
	m.EventsPublished.WithLabelValues("bug_created").Inc()
	svc := NewService("a", func() int { return 2 }, NewRepository(client), quartz.NewReal(), log.NewNop())
	require.NoError(t, svc.Report(context.Background()))

	router := test.MockRouter()
	APIHandlers(router, svc, registry, log.NewNop())

	w := test.ExecuteAPITest(log.NewNop(), t, router, test.RequestAPITest{Method: "GET", Path: "/metrics", WantResponse: []int{http.StatusOK}})
	assert.Contains(t, w.Body.String(), `tracker_events_published_total{kind="bug_created"} 1`)

	w = test.ExecuteAPITest(log.NewNop(), t, router, test.RequestAPITest{Method: "GET", Path: "/api/metrics/sessions", WantResponse: []int{http.StatusOK}})
	var cluster ClusterSessions
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cluster))
	assert.Equal(t, int64(2), cluster.Total)
}
