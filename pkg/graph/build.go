package graph

import (
	"sort"

	"github.com/meeplelab/boardgraph/pkg/bgg"
	"github.com/meeplelab/boardgraph/pkg/similarity"
)

// Build computes the similarity graph over items. Every item becomes a node
// in input order, even when no edge qualifies; an edge is retained iff its
// score is at least threshold (inclusive). Edges are emitted once per
// unordered pair under the canonical sorted key and sorted, so identical
// inputs always produce byte-identical output.
func Build(items []*bgg.Item, threshold float64, w similarity.Weights) *Graph {
	g := NewGraph()

	seen := make(map[string]bool, len(items))
	unique := make([]*bgg.Item, 0, len(items))
	for _, it := range items {
		if it == nil || it.ID == "" || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		unique = append(unique, it)
		g.Nodes = append(g.Nodes, nodeFromItem(it))
	}

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			score := similarity.Score(unique[i], unique[j], w)
			if score < threshold {
				continue
			}
			source, target := canonicalPair(unique[i].ID, unique[j].ID)
			g.Edges = append(g.Edges, Edge{Source: source, Target: target, Weight: score})
		}
	}

	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source != g.Edges[j].Source {
			return g.Edges[i].Source < g.Edges[j].Source
		}
		return g.Edges[i].Target < g.Edges[j].Target
	})

	return g
}

// canonicalPair orders an unordered id pair so it has exactly one key.
func canonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

func nodeFromItem(it *bgg.Item) Node {
	mechanics := it.Mechanics
	if mechanics == nil {
		mechanics = []string{}
	}
	categories := it.Categories
	if categories == nil {
		categories = []string{}
	}
	return Node{
		ID:            it.ID,
		Label:         it.Name,
		Name:          it.Name,
		AverageRating: it.AverageRating,
		AverageWeight: it.AverageWeight,
		MinPlayers:    it.MinPlayers,
		MaxPlayers:    it.MaxPlayers,
		PlayingTime:   it.PlayingTime,
		Mechanics:     mechanics,
		Categories:    categories,
		BGGURL:        it.URL,
	}
}
