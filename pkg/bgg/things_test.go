package bgg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

const catanXML = `<item type="boardgame" id="13">
  <name type="primary" sortindex="1" value="Catan"/>
  <name type="alternate" sortindex="1" value="The Settlers of Catan"/>
  <yearpublished value="1995"/>
  <minplayers value="3"/>
  <maxplayers value="4"/>
  <playingtime value="120"/>
  <link type="boardgamecategory" id="1026" value="Negotiation"/>
  <link type="boardgamemechanic" id="2072" value="Dice Rolling"/>
  <link type="boardgamemechanic" id="2008" value=" Trading "/>
  <link type="boardgamemechanic" id="2072" value="Dice Rolling"/>
  <link type="boardgamedesigner" id="11" value="Klaus Teuber"/>
  <statistics page="1">
    <ratings>
      <average value="7.1"/>
      <averageweight value="2.3"/>
    </ratings>
  </statistics>
</item>`

func thingsBody(items ...string) string {
	return `<?xml version="1.0" encoding="utf-8"?><items>` + strings.Join(items, "\n") + `</items>`
}

// minimalThing builds a bare item with only an id and a primary name.
func minimalThing(id string) string {
	return fmt.Sprintf(`<item type="boardgame" id="%s"><name type="primary" value="Game %s"/></item>`, id, id)
}

func TestFetchDetails_ParsesAndNormalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("stats"); got != "1" {
			t.Errorf("stats param = %q; want 1", got)
		}
		w.Write([]byte(thingsBody(catanXML)))
	}))
	defer server.Close()

	c := fastClient(server.URL, 1)
	items, skips, err := c.FetchDetails(context.Background(), []string{"13"})
	if err != nil {
		t.Fatalf("FetchDetails() error = %v", err)
	}
	if len(skips) != 0 {
		t.Fatalf("skips = %+v; want none", skips)
	}

	it, ok := items["13"]
	if !ok {
		t.Fatal("item 13 missing from result")
	}
	if it.Name != "Catan" {
		t.Errorf("Name = %q; want Catan (primary name)", it.Name)
	}
	// Duplicate mechanic collapsed, whitespace trimmed, designer link ignored.
	wantMechanics := []string{"Dice Rolling", "Trading"}
	if len(it.Mechanics) != len(wantMechanics) {
		t.Fatalf("Mechanics = %v; want %v", it.Mechanics, wantMechanics)
	}
	for i, m := range wantMechanics {
		if it.Mechanics[i] != m {
			t.Errorf("Mechanics[%d] = %q; want %q", i, it.Mechanics[i], m)
		}
	}
	if len(it.Categories) != 1 || it.Categories[0] != "Negotiation" {
		t.Errorf("Categories = %v; want [Negotiation]", it.Categories)
	}
	if it.AverageRating == nil || *it.AverageRating != 7.1 {
		t.Errorf("AverageRating = %v; want 7.1", it.AverageRating)
	}
	if it.AverageWeight == nil || *it.AverageWeight != 2.3 {
		t.Errorf("AverageWeight = %v; want 2.3", it.AverageWeight)
	}
	if it.MinPlayers == nil || *it.MinPlayers != 3 || it.MaxPlayers == nil || *it.MaxPlayers != 4 {
		t.Errorf("players = %v-%v; want 3-4", it.MinPlayers, it.MaxPlayers)
	}
	if it.PlayingTime == nil || *it.PlayingTime != 120 {
		t.Errorf("PlayingTime = %v; want 120", it.PlayingTime)
	}
	if it.URL != boardgameURL+"13" {
		t.Errorf("URL = %q; want %q", it.URL, boardgameURL+"13")
	}
}

func TestFetchDetails_AbsentNumericsStayNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(thingsBody(minimalThing("7"))))
	}))
	defer server.Close()

	c := fastClient(server.URL, 1)
	items, _, err := c.FetchDetails(context.Background(), []string{"7"})
	if err != nil {
		t.Fatalf("FetchDetails() error = %v", err)
	}

	it := items["7"]
	if it == nil {
		t.Fatal("item 7 missing")
	}
	if it.AverageRating != nil || it.AverageWeight != nil || it.MinPlayers != nil ||
		it.MaxPlayers != nil || it.PlayingTime != nil {
		t.Errorf("absent numerics should be nil, got %+v", it)
	}
	if it.Mechanics == nil || it.Categories == nil {
		t.Error("tag slices should be empty, not nil")
	}
}

func TestFetchDetails_Batching(t *testing.T) {
	var mu sync.Mutex
	var batchSizes []int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		mu.Lock()
		batchSizes = append(batchSizes, len(ids))
		mu.Unlock()

		items := make([]string, len(ids))
		for i, id := range ids {
			items[i] = minimalThing(id)
		}
		w.Write([]byte(thingsBody(items...)))
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:   server.URL,
		RateDelay: 1,
		BatchSize: 20,
	})

	ids := make([]string, 45)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i+1)
	}

	var progress [][2]int
	c.onBatch = func(done, total int) {
		progress = append(progress, [2]int{done, total})
	}

	items, skips, err := c.FetchDetails(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchDetails() error = %v", err)
	}
	if len(items) != 45 || len(skips) != 0 {
		t.Errorf("got %d items, %d skips; want 45, 0", len(items), len(skips))
	}
	if len(batchSizes) != 3 || batchSizes[0] != 20 || batchSizes[1] != 20 || batchSizes[2] != 5 {
		t.Errorf("batch sizes = %v; want [20 20 5]", batchSizes)
	}
	if len(progress) != 3 || progress[2] != [2]int{3, 3} {
		t.Errorf("progress = %v; want final (3,3)", progress)
	}
}

func TestFetchDetails_PartialFailureIsolation(t *testing.T) {
	// 1 of 50 requested ids is absent from the response: 49 items, 1 skip.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		var items []string
		for _, id := range ids {
			if id == "13" {
				continue
			}
			items = append(items, minimalThing(id))
		}
		w.Write([]byte(thingsBody(items...)))
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:   server.URL,
		RateDelay: 1,
		BatchSize: 50,
	})

	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i+1)
	}

	items, skips, err := c.FetchDetails(context.Background(), ids)
	if err != nil {
		t.Fatalf("FetchDetails() error = %v", err)
	}
	if len(items) != 49 {
		t.Errorf("got %d items; want 49", len(items))
	}
	if len(skips) != 1 || skips[0].ID != "13" {
		t.Errorf("skips = %+v; want exactly id 13", skips)
	}
	if _, ok := items["13"]; ok {
		t.Error("skipped id 13 must not appear in result")
	}
}

func TestFetchDetails_BatchTransportFailureSkipsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := fastClient(server.URL, 2)
	items, skips, err := c.FetchDetails(context.Background(), []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("FetchDetails() error = %v; batch failures must not be fatal", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items; want 0", len(items))
	}
	if len(skips) != 3 {
		t.Errorf("got %d skips; want 3", len(skips))
	}
	for _, s := range skips {
		if s.Reason != "connection failed" {
			t.Errorf("skip reason = %q; want %q", s.Reason, "connection failed")
		}
	}
}

func TestFetchDetails_CancelWithPendingBatches(t *testing.T) {
	// More batches than workers: after cancellation the dispatch loop still
	// has sends pending, and the fetch must unwind rather than block on them.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(thingsBody(minimalThing("1"))))
	}))
	defer server.Close()

	c := New(Config{
		BaseURL:   server.URL,
		RateDelay: 1,
		BatchSize: 1,
		Workers:   1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	type fetchResult struct {
		err error
	}
	done := make(chan fetchResult, 1)
	go func() {
		_, _, err := c.FetchDetails(ctx, []string{"1", "2", "3", "4"})
		done <- fetchResult{err: err}
	}()

	select {
	case res := <-done:
		if !errors.Is(res.err, context.Canceled) {
			t.Errorf("FetchDetails() error = %v; want context.Canceled", res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("FetchDetails() did not return after context cancellation")
	}
}

// fakeCache is an in-memory DetailCache for tests.
type fakeCache struct {
	mu    sync.Mutex
	items map[string]*Item
	puts  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]*Item)}
}

func (f *fakeCache) Get(ctx context.Context, id string) (*Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[id]
	return it, ok
}

func (f *fakeCache) Put(ctx context.Context, item *Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
	f.puts++
}

func TestFetchDetails_CacheReadThrough(t *testing.T) {
	var requestedIDs []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("id"), ",")
		requestedIDs = append(requestedIDs, ids...)
		items := make([]string, len(ids))
		for i, id := range ids {
			items[i] = minimalThing(id)
		}
		w.Write([]byte(thingsBody(items...)))
	}))
	defer server.Close()

	cache := newFakeCache()
	cache.items["1"] = &Item{ID: "1", Name: "Cached Game", Mechanics: []string{}, Categories: []string{}}

	c := New(Config{
		BaseURL:   server.URL,
		RateDelay: 1,
		Cache:     cache,
	})

	items, _, err := c.FetchDetails(context.Background(), []string{"1", "2"})
	if err != nil {
		t.Fatalf("FetchDetails() error = %v", err)
	}

	if len(requestedIDs) != 1 || requestedIDs[0] != "2" {
		t.Errorf("server saw ids %v; want only the cache miss [2]", requestedIDs)
	}
	if items["1"].Name != "Cached Game" {
		t.Errorf("cached item name = %q; want Cached Game", items["1"].Name)
	}
	if cache.puts != 1 {
		t.Errorf("cache puts = %d; want 1 (the fetched item)", cache.puts)
	}
}
