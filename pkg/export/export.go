// Package export serializes a built graph into the JSON files the renderer
// consumes: nodes.json and edges.json, plus an optional edges.csv report.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/meeplelab/boardgraph/pkg/blob"
	"github.com/meeplelab/boardgraph/pkg/graph"
)

const (
	NodesFile = "nodes.json"
	EdgesFile = "edges.json"
	CSVFile   = "edges.csv"
)

// Exporter writes artifacts through an atomic local store.
type Exporter struct {
	store *blob.LocalStore
	csv   bool
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCSV additionally writes edges.csv next to the JSON artifacts.
func WithCSV() Option {
	return func(e *Exporter) { e.csv = true }
}

// New creates an Exporter targeting dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Exporter, error) {
	store, err := blob.NewLocalStore(dir)
	if err != nil {
		return nil, err
	}
	e := &Exporter{store: store}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Export writes the full artifact set. All files are staged before any final
// path is replaced, so a failed run leaves the previous export intact.
func (e *Exporter) Export(ctx context.Context, g *graph.Graph) error {
	nodes := g.Nodes
	if nodes == nil {
		nodes = []graph.Node{}
	}
	edges := g.Edges
	if edges == nil {
		edges = []graph.Edge{}
	}

	nodesJSON, err := json.MarshalIndent(nodes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode nodes: %w", err)
	}
	edgesJSON, err := json.MarshalIndent(edges, "", "  ")
	if err != nil {
		return fmt.Errorf("encode edges: %w", err)
	}

	artifacts := map[string][]byte{
		NodesFile: nodesJSON,
		EdgesFile: edgesJSON,
	}

	if e.csv {
		report, err := edgesCSV(edges)
		if err != nil {
			return fmt.Errorf("encode csv: %w", err)
		}
		artifacts[CSVFile] = report
	}

	return e.store.PutAll(ctx, artifacts)
}

func edgesCSV(edges []graph.Edge) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	if err := w.Write([]string{"source", "target", "weight"}); err != nil {
		return nil, err
	}
	for _, edge := range edges {
		record := []string{edge.Source, edge.Target, strconv.FormatFloat(edge.Weight, 'f', -1, 64)}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
