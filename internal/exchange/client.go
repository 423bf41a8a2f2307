// Package exchange provides the Bitfinex public-API adapter for margin
// position statistics and price candles.
//
// The adapter owns the rate-limit gate and retry policy for every network
// call: one request per throttle interval, a fixed number of attempts with a
// constant delay between them, and degrade-to-empty semantics on exhaustion
// so a transient fault can never abort an unattended run.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/herdvibe/margin-stats-collector/internal/config"
)

const userAgent = "HerdVibe-Collector/1.0"

// Status tags the outcome of a fetch so callers (and tests) can distinguish
// "the source has no data" from "every attempt failed", even though both
// collapse to an empty row set at the pipeline boundary.
type Status int

const (
	// StatusOK means the source returned a well-formed array (possibly empty).
	StatusOK Status = iota
	// StatusNoData means the source answered with a non-array JSON value,
	// which the API uses for errors and empty results alike.
	StatusNoData
	// StatusExhausted means every retry attempt failed.
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoData:
		return "no_data"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Client is the rate-limited HTTP client for the Bitfinex v2 public API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        config.FetchConfig
	logger     *slog.Logger

	// now is swappable so pagination tests can pin the cursor origin.
	now func() time.Time
}

// NewClient creates a client from the fetch configuration.
func NewClient(cfg config.FetchConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(cfg.CallDelay), 1),
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// fetchRows performs a GET against url and decodes the response as an array
// of numeric rows. Elements of the top-level array that are not numeric
// arrays are dropped and counted.
//
// Retries: up to cfg.Retries attempts with a constant cfg.RetryDelay between
// them. The rate-limit token is acquired before every attempt, so retries
// respect the same throttle as fresh calls.
func (c *Client) fetchRows(ctx context.Context, url string) ([][]float64, Status) {
	var elements []json.RawMessage
	noData := false

	attempt := 0
	operation := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		body, err := c.get(ctx, url)
		if err != nil {
			c.logger.Warn("fetch attempt failed",
				"url", url,
				"attempt", attempt,
				"error", err)
			return err
		}

		if err := json.Unmarshal(body, &elements); err != nil {
			if json.Valid(body) {
				// A well-formed non-array payload is the API's way of
				// saying "no data" (or reporting an error object).
				noData = true
				return nil
			}
			c.logger.Warn("fetch attempt returned malformed JSON",
				"url", url,
				"attempt", attempt,
				"error", err)
			return fmt.Errorf("malformed response: %w", err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.RetryDelay), uint64(c.cfg.Retries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.Warn("fetch exhausted retries", "url", url, "attempts", attempt, "error", err)
		return nil, StatusExhausted
	}
	if noData {
		return nil, StatusNoData
	}

	rows := make([][]float64, 0, len(elements))
	dropped := 0
	for _, el := range elements {
		var row []float64
		if err := json.Unmarshal(el, &row); err != nil {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	if dropped > 0 {
		c.logger.Warn("dropped non-numeric rows", "url", url, "dropped", dropped)
	}
	return rows, StatusOK
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
