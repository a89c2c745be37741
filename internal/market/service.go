// Package market computes trailing returns for batches of tickers from a daily
// price source, isolating per-ticker failures.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/sectorflow/internal/config"
	"github.com/rewired-gh/sectorflow/internal/logger"
	"github.com/rewired-gh/sectorflow/internal/metrics"
	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/prices"
	"github.com/rewired-gh/sectorflow/internal/stooq"
)

// DefaultMaxTickers caps a batch when the configuration leaves it unset.
const DefaultMaxTickers = 50

// ErrUnavailable is recorded when a series yields no trailing return.
var ErrUnavailable = errors.New("trailing return unavailable")

// Fetcher downloads the raw daily price table of a ticker.
type Fetcher interface {
	FetchSeries(ctx context.Context, ticker string) (string, error)
}

// Cache stores computed returns per ticker and calendar day.
type Cache interface {
	Get(ctx context.Context, ticker, day string) (models.ReturnRecord, bool, error)
	Set(ctx context.Context, rec models.ReturnRecord, day string) error
}

// Failure records a ticker that was omitted from a batch.
type Failure struct {
	Ticker string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Ticker, f.Err)
}

// Service fetches and computes trailing returns.
type Service struct {
	fetcher      Fetcher
	cache        Cache
	metrics      *metrics.Registry
	concurrency  int
	maxTickers   int
	trailingDays int
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache enables the return cache.
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithMetrics records fetch and cache outcomes.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the clock used for cache keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a market service.
func NewService(fetcher Fetcher, cfg config.MarketConfig, opts ...Option) *Service {
	s := &Service{
		fetcher:      fetcher,
		concurrency:  cfg.Concurrency,
		maxTickers:   cfg.MaxTickers,
		trailingDays: cfg.TrailingDays,
		now:          time.Now,
	}
	if s.concurrency < 1 {
		s.concurrency = 1
	}
	if s.maxTickers < 1 {
		s.maxTickers = DefaultMaxTickers
	}
	if s.trailingDays < 1 {
		s.trailingDays = prices.DefaultTrailingDays
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxTickers is the batch size limit.
func (s *Service) MaxTickers() int {
	return s.maxTickers
}

// ParseTickers splits a comma-separated list, trims and uppercases entries, drops
// empty ones and repeats, and keeps at most max tickers (no cap when max <= 0).
func ParseTickers(raw string, max int) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		t := strings.ToUpper(strings.TrimSpace(part))
		if t == "" || seen[t] {
			continue
		}
		if max > 0 && len(out) == max {
			break
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Returns computes the trailing return of each ticker concurrently. Records come
// back in request order; tickers that fail are omitted and reported as failures.
// Only cancellation of ctx is returned as an error.
func (s *Service) Returns(ctx context.Context, tickers []string) ([]models.ReturnRecord, []Failure, error) {
	if s.maxTickers > 0 && len(tickers) > s.maxTickers {
		tickers = tickers[:s.maxTickers]
	}

	records := make([]*models.ReturnRecord, len(tickers))
	errs := make([]error, len(tickers))
	day := models.FormatDate(s.now())

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			rec, err := s.one(ctx, ticker, day)
			if err != nil {
				errs[i] = err
				return nil
			}
			records[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]models.ReturnRecord, 0, len(tickers))
	var failures []Failure
	for i, rec := range records {
		if rec != nil {
			out = append(out, *rec)
			continue
		}
		failures = append(failures, Failure{Ticker: tickers[i], Err: errs[i]})
	}

	if len(failures) > 0 {
		logger.Debug("Market batch: %d of %d tickers omitted", len(failures), len(tickers))
		for _, f := range failures {
			logger.Debug("  %s", f.Error())
		}
	}
	return out, failures, nil
}

// one resolves a single ticker through the cache and the price source.
func (s *Service) one(ctx context.Context, ticker, day string) (models.ReturnRecord, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, ticker, day)
		switch {
		case err != nil:
			s.metrics.ObserveCache(metrics.ResultError)
			logger.Warn("Return cache read failed for %s: %v", ticker, err)
		case ok:
			s.metrics.ObserveCache(metrics.ResultHit)
			return rec, nil
		default:
			s.metrics.ObserveCache(metrics.ResultMiss)
		}
	}

	raw, err := s.fetcher.FetchSeries(ctx, ticker)
	if err != nil {
		if errors.Is(err, stooq.ErrNotFound) || errors.Is(err, stooq.ErrEmptySeries) {
			s.metrics.ObservePriceFetch(metrics.ResultNotFound)
		} else {
			s.metrics.ObservePriceFetch(metrics.ResultError)
		}
		return models.ReturnRecord{}, err
	}
	s.metrics.ObservePriceFetch(metrics.ResultOK)

	rec, ok := prices.Compute(raw, ticker, s.trailingDays)
	if !ok {
		return models.ReturnRecord{}, ErrUnavailable
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, rec, day); err != nil {
			logger.Warn("Return cache write failed for %s: %v", ticker, err)
		}
	}
	return rec, nil
}
