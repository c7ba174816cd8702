package bgg

import (
	"context"
	"encoding/xml"
	"errors"
	"log"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/meeplelab/boardgraph/pkg/metrics"
)

// FetchDetails retrieves the detail records for the given identifiers,
// batched to respect the API's per-request item limit. Failures are
// item-granular: a malformed item, or a whole batch that exhausts its
// retries, drops only the affected identifiers into the skip list. Only a
// canceled context aborts the fetch.
//
// Batches run on cfg.Workers goroutines; every dispatch still goes through
// the shared limiter, so concurrency never bypasses rate limiting.
func (c *Client) FetchDetails(ctx context.Context, ids []string) (map[string]*Item, []Skip, error) {
	result := make(map[string]*Item, len(ids))
	var skips []Skip

	toFetch := ids
	if c.cache != nil {
		toFetch = make([]string, 0, len(ids))
		for _, id := range ids {
			if it, ok := c.cache.Get(ctx, id); ok {
				result[id] = it
				continue
			}
			toFetch = append(toFetch, id)
		}
		if n := len(ids) - len(toFetch); n > 0 {
			log.Printf("bgg: %d of %d games served from cache", n, len(ids))
		}
	}

	batches := chunk(toFetch, c.batchSize)
	total := len(batches)
	if total == 0 {
		return result, nil, nil
	}
	log.Printf("bgg: fetching details for %d games in %d batches", len(toFetch), total)

	var (
		mu   sync.Mutex
		done int
	)
	work := make(chan []string)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Keep draining after cancellation so the producer never
			// blocks on a send with no receiver left.
			for batch := range work {
				if ctx.Err() != nil {
					continue
				}
				items, batchSkips := c.fetchBatch(ctx, batch)
				mu.Lock()
				for id, it := range items {
					result[id] = it
				}
				skips = append(skips, batchSkips...)
				done++
				if c.onBatch != nil {
					c.onBatch(done, total)
				}
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, batch := range batches {
		select {
		case work <- batch:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(work)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(skips, func(i, j int) bool { return skips[i].ID < skips[j].ID })
	metrics.ItemsSkipped.Add(float64(len(skips)))
	for _, s := range skips {
		log.Printf("bgg: skipping game %s: %s", s.ID, s.Reason)
	}

	return result, skips, nil
}

// fetchBatch fetches one /thing call. All failures are absorbed into skips.
func (c *Client) fetchBatch(ctx context.Context, batch []string) (map[string]*Item, []Skip) {
	params := url.Values{
		"id":    {strings.Join(batch, ",")},
		"stats": {"1"},
	}

	body, err := c.get(ctx, "/thing", params, c.maxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		log.Printf("bgg: batch of %d failed: %v", len(batch), err)
		return nil, skipAll(batch, skipReason(err))
	}

	var doc thingsDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, skipAll(batch, "malformed response")
	}

	requested := make(map[string]bool, len(batch))
	for _, id := range batch {
		requested[id] = true
	}

	items := make(map[string]*Item, len(doc.Items))
	for _, t := range doc.Items {
		it, err := itemFromThing(t, boardgameURL)
		if err != nil || !requested[it.ID] {
			continue
		}
		items[it.ID] = it
		if c.cache != nil {
			c.cache.Put(ctx, it)
		}
	}

	var skips []Skip
	for _, id := range batch {
		if _, ok := items[id]; !ok {
			skips = append(skips, Skip{ID: id, Reason: "missing or malformed in response"})
		}
	}
	return items, skips
}

func skipAll(ids []string, reason string) []Skip {
	skips := make([]Skip, 0, len(ids))
	for _, id := range ids {
		skips = append(skips, Skip{ID: id, Reason: reason})
	}
	return skips
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimitExceeded):
		return "rate limit exceeded"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed response"
	default:
		return "connection failed"
	}
}

func chunk(ids []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
