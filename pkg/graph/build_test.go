package graph

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/meeplelab/boardgraph/pkg/bgg"
	"github.com/meeplelab/boardgraph/pkg/similarity"
)

func tagged(id string, mechanics ...string) *bgg.Item {
	return &bgg.Item{ID: id, Name: "Game " + id, Mechanics: mechanics, Categories: []string{"c"}}
}

func TestBuild_ThresholdInclusive(t *testing.T) {
	a := tagged("1", "x", "y")
	b := tagged("2", "y", "z")
	w := similarity.DefaultWeights()

	score := similarity.Score(a, b, w)
	if score <= 0 || score >= 1 {
		t.Fatalf("fixture score = %v; want something strictly inside (0,1)", score)
	}

	// An edge appears iff score >= threshold, boundary included.
	g := Build([]*bgg.Item{a, b}, score, w)
	if len(g.Edges) != 1 {
		t.Fatalf("threshold == score: got %d edges; want 1", len(g.Edges))
	}
	if g.Edges[0].Weight != score {
		t.Errorf("edge weight = %v; want %v", g.Edges[0].Weight, score)
	}

	g = Build([]*bgg.Item{a, b}, math.Nextafter(score, 2), w)
	if len(g.Edges) != 0 {
		t.Errorf("threshold just above score: got %d edges; want 0", len(g.Edges))
	}
}

func TestBuild_CanonicalEdgeIdentity(t *testing.T) {
	// Identical items in an order that exercises lexicographic pair sorting.
	items := []*bgg.Item{tagged("9", "x"), tagged("2", "x"), tagged("10", "x")}
	g := Build(items, 0.5, similarity.DefaultWeights())

	if len(g.Edges) != 3 {
		t.Fatalf("got %d edges; want 3", len(g.Edges))
	}

	seen := make(map[[2]string]bool)
	for _, e := range g.Edges {
		if e.Source == e.Target {
			t.Errorf("self-loop on %s", e.Source)
		}
		if e.Source >= e.Target {
			t.Errorf("edge (%s,%s) not in canonical order", e.Source, e.Target)
		}
		key := [2]string{e.Source, e.Target}
		if seen[key] {
			t.Errorf("duplicate edge (%s,%s)", e.Source, e.Target)
		}
		seen[key] = true
	}
}

func TestBuild_IsolatedNodesKept(t *testing.T) {
	items := []*bgg.Item{
		tagged("1", "x"),
		tagged("2", "x"),
		// Tags disjoint from the pair, so it stays under threshold.
		{ID: "3", Name: "Loner", Mechanics: []string{"q"}, Categories: []string{"r"}},
	}

	g := Build(items, 0.9, similarity.DefaultWeights())

	if len(g.Nodes) != 3 {
		t.Fatalf("got %d nodes; want 3 (isolated nodes are never dropped)", len(g.Nodes))
	}
	for _, e := range g.Edges {
		if e.Source == "3" || e.Target == "3" {
			t.Errorf("unexpected edge touching the isolated node: %+v", e)
		}
	}
}

func TestBuild_DuplicateAndNilItemsIgnored(t *testing.T) {
	a := tagged("1", "x")
	g := Build([]*bgg.Item{a, nil, a, {ID: ""}}, 0.0, similarity.DefaultWeights())

	if len(g.Nodes) != 1 {
		t.Errorf("got %d nodes; want 1", len(g.Nodes))
	}
	if len(g.Edges) != 0 {
		t.Errorf("got %d edges; want 0 (no self pairing through duplicates)", len(g.Edges))
	}
}

func TestBuild_Empty(t *testing.T) {
	g := Build(nil, 0.35, similarity.DefaultWeights())
	if g.Nodes == nil || g.Edges == nil {
		t.Fatal("empty graph must keep non-nil slices so JSON stays []")
	}
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Errorf("got %d nodes, %d edges; want 0, 0", len(g.Nodes), len(g.Edges))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	items := []*bgg.Item{
		tagged("5", "x", "y"),
		tagged("3", "y", "z"),
		tagged("8", "x", "z"),
	}
	w := similarity.DefaultWeights()

	first, err := json.Marshal(Build(items, 0.3, w))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(Build(items, 0.3, w))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("identical inputs produced different serialized graphs")
		}
	}
}

func TestNodeFromItem_Schema(t *testing.T) {
	rating := 7.5
	it := &bgg.Item{
		ID:            "13",
		Name:          "Catan",
		AverageRating: &rating,
		URL:           "https://boardgamegeek.com/boardgame/13",
	}

	g := Build([]*bgg.Item{it}, 0.35, similarity.DefaultWeights())
	data, err := json.Marshal(g.Nodes[0])
	if err != nil {
		t.Fatal(err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"id", "label", "name", "averagerating", "averageweight",
		"minplayers", "maxplayers", "playingtime", "mechanics", "categories", "bggUrl"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("node JSON missing key %q", key)
		}
	}
	if decoded["averageweight"] != nil {
		t.Errorf("absent numeric should serialize as null, got %v", decoded["averageweight"])
	}
	if _, ok := decoded["mechanics"].([]any); !ok {
		t.Errorf("mechanics should serialize as an array, got %T", decoded["mechanics"])
	}
}
