package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.ObservePriceFetch(ResultOK)
	r.ObservePriceFetch(ResultOK)
	r.ObservePriceFetch(ResultNotFound)
	r.ObserveCache(ResultHit)
	r.ObserveFeed(ResultError)
	r.ObserveDigest(ResultOK)
	r.SetSnapshots(7)
	r.ObserveHTTP("/api/community", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.PriceFetches.WithLabelValues(ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PriceFetches.WithLabelValues(ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues(ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FeedGenerations.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Digests.WithLabelValues(ResultOK)))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.Snapshots))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("/api/community", "200")))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObservePriceFetch(ResultOK)
		r.ObserveCache(ResultMiss)
		r.ObserveFeed(ResultOK)
		r.ObserveDigest(ResultError)
		r.SetSnapshots(1)
		r.ObserveHTTP("/health", 200, time.Millisecond)
	})
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObserveFeed(ResultOK)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `sectorflow_feed_generations_total{result="ok"} 1`)
}
