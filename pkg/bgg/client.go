package bgg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/meeplelab/boardgraph/pkg/metrics"
)

// Client talks to the BGG XMLAPI2. All calls are read-only. A single shared
// limiter gates every dispatched request, including retries and concurrent
// detail batches.
type Client struct {
	baseURL       string
	http          *http.Client
	limiter       *limiter
	backoff       *ExponentialBackoff
	maxRetries    int
	searchRetries int
	batchSize     int
	workers       int
	cache         DetailCache
	onBatch       func(done, total int)
}

// New creates a Client from cfg, applying defaults for unset fields.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		baseURL:       cfg.BaseURL,
		http:          &http.Client{Timeout: cfg.RequestTimeout},
		limiter:       newLimiter(cfg.RateDelay),
		backoff:       cfg.Backoff,
		maxRetries:    cfg.MaxRetries,
		searchRetries: cfg.SearchRetries,
		batchSize:     cfg.BatchSize,
		workers:       cfg.Workers,
		cache:         cfg.Cache,
		onBatch:       cfg.OnBatch,
	}
}

// retryKind classifies the most recent failed attempt so exhaustion maps to
// the right sentinel.
type retryKind int

const (
	kindNone retryKind = iota
	kindProcessing
	kindTimeout
	kindConnection
)

// get performs one logical request with the retry loop:
// HTTP 202 ("processing, retry later") and transport failures both back off
// exponentially up to maxAttempts.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, maxAttempts int) ([]byte, error) {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	lastKind := kindNone

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff.Next(attempt - 1)
			log.Printf("bgg: retrying %s in %s (attempt %d/%d)", endpoint, delay.Round(time.Millisecond), attempt+1, maxAttempts)
			metrics.APIRetries.WithLabelValues(endpoint, retryReason(lastKind)).Inc()
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("bgg: build request for %s: %w", endpoint, err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			lastKind = kindConnection
			var urlErr *url.Error
			if errors.As(err, &urlErr) && urlErr.Timeout() {
				lastKind = kindTimeout
			}
			metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK && readErr == nil:
			metrics.APIRequests.WithLabelValues(endpoint, "ok").Inc()
			return body, nil
		case resp.StatusCode == http.StatusAccepted:
			// BGG answers 202 while it computes the result asynchronously.
			lastErr = fmt.Errorf("processing (HTTP 202)")
			lastKind = kindProcessing
			metrics.APIRequests.WithLabelValues(endpoint, "processing").Inc()
		case readErr != nil:
			lastErr = readErr
			lastKind = kindConnection
			metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		default:
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			lastKind = kindConnection
			metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		}
	}

	switch lastKind {
	case kindProcessing:
		return nil, fmt.Errorf("%w: %s still processing after %d attempts", ErrRateLimitExceeded, endpoint, maxAttempts)
	case kindTimeout:
		return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrTimeout, endpoint, maxAttempts, lastErr)
	default:
		return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrConnectionFailed, endpoint, maxAttempts, lastErr)
	}
}

func retryReason(k retryKind) string {
	switch k {
	case kindProcessing:
		return "processing"
	case kindTimeout:
		return "timeout"
	default:
		return "connection"
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
