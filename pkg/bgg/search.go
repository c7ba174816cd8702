package bgg

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
)

// SearchGames searches BGG by name. The search endpoint stalls on 202 far
// more often than the others, so it gets its own, higher retry cap.
func (c *Client) SearchGames(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrMalformedResponse)
	}

	params := url.Values{
		"query": {query},
		"type":  {"boardgame"},
		"exact": {"0"},
	}

	body, err := c.get(ctx, "/search", params, c.searchRetries)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var doc searchDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: search for %q: %v", ErrMalformedResponse, query, err)
	}

	results := make([]SearchResult, 0, len(doc.Items))
	for _, item := range doc.Items {
		if item.ID == "" || item.Name.Value == "" {
			continue
		}
		results = append(results, SearchResult{
			ID:            item.ID,
			Name:          item.Name.Value,
			YearPublished: item.YearPublished.Value,
		})
	}
	return results, nil
}
