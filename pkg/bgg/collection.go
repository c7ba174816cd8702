package bgg

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/url"
	"strings"
)

// boardgameURL is the public item page prefix used for exported node links,
// independent of which API host the client targets.
const boardgameURL = "https://boardgamegeek.com/boardgame/"

// FetchCollection returns the user's owned games in listing order, with
// duplicate identifiers removed (first occurrence wins; BGG can list a game
// under several statuses). Expansions are excluded and stats requested, so
// the listing matches what the detail fetch will see.
//
// An invalid or private username is ErrCollectionUnavailable: there is no
// usable partial collection. An empty response for a valid user is a valid,
// empty collection.
func (c *Client) FetchCollection(ctx context.Context, username string) ([]CollectionEntry, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", ErrCollectionUnavailable)
	}

	params := url.Values{
		"username":       {username},
		"own":            {"1"},
		"excludesubtype": {"boardgameexpansion"},
		"stats":          {"1"},
	}

	body, err := c.get(ctx, "/collection", params, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetch collection for %q: %w", username, err)
	}

	if msg, ok := apiError(body); ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionUnavailable, msg)
	}

	var doc collectionDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: collection for %q: %v", ErrMalformedResponse, username, err)
	}

	seen := make(map[string]bool, len(doc.Items))
	entries := make([]CollectionEntry, 0, len(doc.Items))
	for _, item := range doc.Items {
		id := strings.TrimSpace(item.ObjectID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		entries = append(entries, CollectionEntry{
			ID:            id,
			Name:          strings.TrimSpace(item.Name),
			YearPublished: strings.TrimSpace(item.YearPublished),
			Thumbnail:     strings.TrimSpace(item.Thumbnail),
		})
	}

	log.Printf("bgg: found %d owned games for %s", len(entries), username)
	return entries, nil
}
