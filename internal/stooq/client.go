// Package stooq fetches daily price tables from the Stooq CSV download endpoint.
package stooq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/sectorflow/internal/config"
	"github.com/rewired-gh/sectorflow/internal/logger"
)

var (
	// ErrNotFound is returned when the source has no series for a symbol.
	ErrNotFound = errors.New("symbol not found")
	// ErrEmptySeries is returned when the source answers without any price rows.
	ErrEmptySeries = errors.New("empty price series")
)

// callerDone wraps a failure caused by the caller's own context. It says nothing
// about the health of the source and is not counted by the breaker.
type callerDone struct {
	err error
}

func (e callerDone) Error() string { return e.err.Error() }

func (e callerDone) Unwrap() error { return e.err }

// maxBodyBytes bounds a single CSV download.
const maxBodyBytes = 4 << 20

// Client provides access to the Stooq daily CSV endpoint.
// It is safe for concurrent use; all callers share one rate limiter and breaker.
type Client struct {
	baseURL        string
	marketSuffix   string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker
}

// NewClient creates a Stooq client from the market configuration.
func NewClient(cfg config.MarketConfig) *Client {
	settings := gobreaker.Settings{
		Name:    "stooq",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerTrip
		},
		// Missing symbols are answers, not outages.
		IsSuccessful: func(err error) bool {
			var done callerDone
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmptySeries) || errors.As(err, &done)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		marketSuffix:   cfg.MarketSuffix,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		maxRetries:     maxRetries,
		retryDelayBase: cfg.RetryDelayBase,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst),
		breaker:        gobreaker.NewCircuitBreaker(settings),
	}
}

// NormalizeSymbol maps a ticker to a Stooq symbol: lowercased, with suffix appended
// when the ticker carries no exchange suffix of its own.
func NormalizeSymbol(ticker, suffix string) string {
	t := strings.TrimSpace(ticker)
	if !strings.Contains(t, ".") {
		t += suffix
	}
	return strings.ToLower(t)
}

// SeriesURL returns the download URL of a ticker's daily series.
func (c *Client) SeriesURL(ticker string) string {
	symbol := NormalizeSymbol(ticker, c.marketSuffix)
	return fmt.Sprintf("%s/q/d/l/?s=%s&i=d", c.baseURL, url.QueryEscape(symbol))
}

// FetchSeries downloads the raw daily CSV of ticker.
func (c *Client) FetchSeries(ctx context.Context, ticker string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, c.SeriesURL(ticker))
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch series for %s: %w", ticker, err)
	}
	return out.(string), nil
}

// doRequest performs the HTTP request with retry logic on transport errors and 5xx.
func (c *Client) doRequest(ctx context.Context, url string) (string, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", callerDone{ctx.Err()}
			case <-time.After(time.Duration(i) * c.retryDelayBase):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", callerDone{ctx.Err()}
			}
			lastErr = err
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if err != nil && ctx.Err() != nil {
			return "", callerDone{ctx.Err()}
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		case resp.StatusCode == http.StatusNotFound:
			return "", ErrNotFound
		case resp.StatusCode != http.StatusOK:
			return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
		case err != nil:
			lastErr = fmt.Errorf("failed to read body: %w", err)
			continue
		}

		text := strings.TrimSpace(string(body))
		if text == "" {
			return "", ErrEmptySeries
		}
		if strings.EqualFold(text, "No data") {
			return "", ErrNotFound
		}
		return string(body), nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}
