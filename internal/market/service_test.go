package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/sectorflow/internal/config"
	"github.com/rewired-gh/sectorflow/internal/metrics"
	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/stooq"
)

// fakeFetcher serves canned CSV by ticker.
type fakeFetcher struct {
	series map[string]string
	errs   map[string]error
	delay  time.Duration
	calls  int32
}

func (f *fakeFetcher) FetchSeries(ctx context.Context, ticker string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if err, ok := f.errs[ticker]; ok {
		return "", err
	}
	raw, ok := f.series[ticker]
	if !ok {
		return "", stooq.ErrNotFound
	}
	return raw, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]models.ReturnRecord
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]models.ReturnRecord)}
}

func (c *memCache) Get(_ context.Context, ticker, day string) (models.ReturnRecord, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return models.ReturnRecord{}, false, c.getErr
	}
	rec, ok := c.entries[ticker+":"+day]
	return rec, ok, nil
}

func (c *memCache) Set(_ context.Context, rec models.ReturnRecord, day string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rec.Ticker+":"+day] = rec
	return nil
}

// csvWithCloses builds a series ending 2025-03-14 with the latest close and a close 31 days earlier.
func csvWithCloses(latest, older float64) string {
	return fmt.Sprintf("Date,Open,High,Low,Close,Volume\n2025-02-11,1,1,1,%g,1\n2025-03-04,1,1,1,%g,1\n2025-03-14,1,1,1,%g,1\n", older, (latest+older)/2, latest)
}

func testMarketConfig() config.MarketConfig {
	return config.MarketConfig{MaxTickers: 50, Concurrency: 4, TrailingDays: 30}
}

func fixedClock() time.Time {
	return time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
}

func TestParseTickers(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		max  int
		want []string
	}{
		{"empty", "", 50, []string{}},
		{"only separators", " , ,, ", 50, []string{}},
		{"trim and upper", " aapl, msft ,NVDA", 50, []string{"AAPL", "MSFT", "NVDA"}},
		{"dedupe", "AAPL,aapl, AAPL ,MSFT", 50, []string{"AAPL", "MSFT"}},
		{"cap", "A,B,C,D", 2, []string{"A", "B"}},
		{"no cap", "A,B,C", 0, []string{"A", "B", "C"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTickers(tc.raw, tc.max))
		})
	}
}

func TestReturns_OrderAndFailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{
		series: map[string]string{
			"AAPL": csvWithCloses(110, 100),
			"MSFT": csvWithCloses(90, 100),
			"BAD":  "Date,Open,High,Low,Close\n",
			"ZERO": csvWithCloses(10, 0),
		},
		errs: map[string]error{"BOOM": errors.New("connection reset")},
	}
	reg := metrics.NewRegistry()
	svc := NewService(fetcher, testMarketConfig(), WithMetrics(reg), WithClock(fixedClock))

	records, failures, err := svc.Returns(context.Background(), []string{"MSFT", "BOOM", "AAPL", "NOPE", "BAD", "ZERO"})
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "MSFT", records[0].Ticker)
	assert.InDelta(t, -0.1, records[0].Return30d, 1e-12)
	assert.Equal(t, "AAPL", records[1].Ticker)
	assert.InDelta(t, 0.1, records[1].Return30d, 1e-12)
	assert.Equal(t, "2025-03-14", records[1].LatestDate)
	assert.Equal(t, "2025-02-11", records[1].OlderDate)

	require.Len(t, failures, 4)
	assert.Equal(t, "BOOM", failures[0].Ticker)
	assert.ErrorIs(t, failures[1].Err, stooq.ErrNotFound)
	assert.ErrorIs(t, failures[2].Err, ErrUnavailable)
	assert.ErrorIs(t, failures[3].Err, ErrUnavailable)

	assert.Equal(t, 4.0, testutil.ToFloat64(reg.PriceFetches.WithLabelValues(metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PriceFetches.WithLabelValues(metrics.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.PriceFetches.WithLabelValues(metrics.ResultNotFound)))
}

func TestReturns_UsesCache(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]string{"AAPL": csvWithCloses(110, 100)}}
	cache := newMemCache()
	svc := NewService(fetcher, testMarketConfig(), WithCache(cache), WithClock(fixedClock))

	first, _, err := svc.Returns(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	second, _, err := svc.Returns(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	_, ok := cache.entries["AAPL:2025-03-15"]
	assert.True(t, ok)
}

func TestReturns_CacheErrorFallsThrough(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]string{"AAPL": csvWithCloses(110, 100)}}
	cache := newMemCache()
	cache.getErr = errors.New("redis down")
	svc := NewService(fetcher, testMarketConfig(), WithCache(cache), WithClock(fixedClock))

	records, failures, err := svc.Returns(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Empty(t, failures)
}

func TestReturns_CapsBatch(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]string{}}
	cfg := testMarketConfig()
	cfg.MaxTickers = 3
	svc := NewService(fetcher, cfg)

	_, failures, err := svc.Returns(context.Background(), []string{"A", "B", "C", "D", "E"})
	require.NoError(t, err)
	assert.Len(t, failures, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fetcher.calls))
}

func TestReturns_ContextCancelled(t *testing.T) {
	fetcher := &fakeFetcher{series: map[string]string{"AAPL": csvWithCloses(110, 100)}, delay: time.Second}
	svc := NewService(fetcher, testMarketConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, _, err := svc.Returns(ctx, []string{"AAPL", "MSFT"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReturns_Empty(t *testing.T) {
	svc := NewService(&fakeFetcher{}, testMarketConfig())
	records, failures, err := svc.Returns(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.Empty(t, failures)
}
