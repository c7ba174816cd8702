package bgg

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the transport taxonomy. Callers branch with errors.Is.
var (
	// ErrTimeout means a request timed out and all retries were exhausted.
	ErrTimeout = errors.New("bgg: request timed out")

	// ErrConnectionFailed means the API could not be reached (or kept
	// returning server errors) and all retries were exhausted.
	ErrConnectionFailed = errors.New("bgg: connection failed")

	// ErrMalformedResponse means the response body did not match the
	// expected XML schema.
	ErrMalformedResponse = errors.New("bgg: malformed response")

	// ErrRateLimitExceeded means the API kept answering "processing, retry
	// later" (HTTP 202) past the retry cap.
	ErrRateLimitExceeded = errors.New("bgg: rate limit exceeded")

	// ErrCollectionUnavailable means the username is invalid or the
	// collection is private. No partial collection is usable.
	ErrCollectionUnavailable = errors.New("bgg: collection unavailable")
)

// Item is the normalized detail record for a single game.
// Numeric features are pointers so "unknown" stays distinguishable from zero.
type Item struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	YearPublished *int     `json:"yearpublished"`
	Mechanics     []string `json:"mechanics"`
	Categories    []string `json:"categories"`
	AverageRating *float64 `json:"averagerating"`
	AverageWeight *float64 `json:"averageweight"`
	MinPlayers    *int     `json:"minplayers"`
	MaxPlayers    *int     `json:"maxplayers"`
	PlayingTime   *int     `json:"playingtime"`
	URL           string   `json:"url"`
}

// CollectionEntry is one row of a user's owned-collection listing.
type CollectionEntry struct {
	ID            string
	Name          string
	YearPublished string
	Thumbnail     string
}

// SearchResult is one hit from the search endpoint.
type SearchResult struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	YearPublished string `json:"yearpublished,omitempty"`
}

// Skip records an item identifier that was dropped from a run and why.
type Skip struct {
	ID     string
	Reason string
}

// DetailCache is an optional read-through cache for fetched Items.
// Implementations must treat their own failures as misses.
type DetailCache interface {
	Get(ctx context.Context, id string) (*Item, bool)
	Put(ctx context.Context, item *Item)
}

// Config controls the transport client. Zero values fall back to defaults.
type Config struct {
	BaseURL        string        // default https://boardgamegeek.com/xmlapi2
	RateDelay      time.Duration // minimum delay between dispatched requests, default 1.5s
	MaxRetries     int           // per-request attempt cap, default 3
	SearchRetries  int           // attempt cap for the search endpoint, default 5
	BatchSize      int           // ids per /thing request, default 20
	Workers        int           // concurrent detail batches, default 1
	RequestTimeout time.Duration // per-request HTTP timeout, default 60s
	Backoff        *ExponentialBackoff
	Cache          DetailCache

	// OnBatch, when set, is called after each detail batch completes.
	OnBatch func(done, total int)
}

const (
	defaultBaseURL        = "https://boardgamegeek.com/xmlapi2"
	defaultRateDelay      = 1500 * time.Millisecond
	defaultMaxRetries     = 3
	defaultSearchRetries  = 5
	defaultBatchSize      = 20
	defaultRequestTimeout = 60 * time.Second
)

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.RateDelay <= 0 {
		c.RateDelay = defaultRateDelay
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.SearchRetries <= 0 {
		c.SearchRetries = defaultSearchRetries
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.Backoff == nil {
		c.Backoff = DefaultBackoff()
	}
	return c
}
