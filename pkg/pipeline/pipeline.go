// Package pipeline runs the full generation sequence:
// collection -> details -> similarity graph -> export.
// Stages are strictly sequential; the only shared state is the data passed
// forward.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/meeplelab/boardgraph/pkg/bgg"
	"github.com/meeplelab/boardgraph/pkg/graph"
	"github.com/meeplelab/boardgraph/pkg/metrics"
	"github.com/meeplelab/boardgraph/pkg/similarity"
)

// Stage names a pipeline phase, reported through Options.OnStage.
type Stage string

const (
	StageCollection Stage = "collection"
	StageDetails    Stage = "details"
	StageBuild      Stage = "build"
	StageExport     Stage = "export"
)

// CollectionFetcher lists a user's owned game identifiers.
type CollectionFetcher interface {
	FetchCollection(ctx context.Context, username string) ([]bgg.CollectionEntry, error)
}

// DetailFetcher resolves identifiers to detail records, reporting skips.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, ids []string) (map[string]*bgg.Item, []bgg.Skip, error)
}

// Sink persists the finished graph.
type Sink interface {
	Export(ctx context.Context, g *graph.Graph) error
}

// Deps are the pipeline's collaborators. *bgg.Client satisfies both fetcher
// interfaces.
type Deps struct {
	Collection CollectionFetcher
	Details    DetailFetcher
	Sink       Sink
}

// Options configure one run.
type Options struct {
	Username  string
	Threshold float64
	Weights   similarity.Weights
	OnStage   func(Stage) // optional progress hook
}

// Result summarizes a completed run.
type Result struct {
	NodeCount int
	EdgeCount int
	Skipped   []bgg.Skip
	Duration  time.Duration
}

// Run executes the pipeline once. Collection-level failures abort the run;
// item-level failures surface as skips in the Result. An empty collection is
// a successful run that exports empty artifacts.
func Run(ctx context.Context, deps Deps, opts Options) (Result, error) {
	start := time.Now()
	stage := func(s Stage) {
		if opts.OnStage != nil {
			opts.OnStage(s)
		}
	}
	if opts.Weights == (similarity.Weights{}) {
		opts.Weights = similarity.DefaultWeights()
	}

	stage(StageCollection)
	entries, err := deps.Collection.FetchCollection(ctx, opts.Username)
	if err != nil {
		return Result{}, fmt.Errorf("collection stage: %w", err)
	}

	var items []*bgg.Item
	var skipped []bgg.Skip
	if len(entries) > 0 {
		ids := make([]string, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
		}

		stage(StageDetails)
		details, skips, err := deps.Details.FetchDetails(ctx, ids)
		if err != nil {
			return Result{}, fmt.Errorf("detail stage: %w", err)
		}
		skipped = skips

		// Keep collection order; backfill names the detail endpoint omits.
		items = make([]*bgg.Item, 0, len(details))
		for _, e := range entries {
			it, ok := details[e.ID]
			if !ok {
				continue
			}
			if it.Name == "" {
				it.Name = e.Name
			}
			items = append(items, it)
		}
	} else {
		log.Printf("pipeline: no owned games for %q, exporting empty graph", opts.Username)
	}

	stage(StageBuild)
	g := graph.Build(items, opts.Threshold, opts.Weights)
	log.Printf("pipeline: built %d edges over %d games with threshold %g", len(g.Edges), len(g.Nodes), opts.Threshold)

	stage(StageExport)
	if err := deps.Sink.Export(ctx, g); err != nil {
		return Result{}, fmt.Errorf("export stage: %w", err)
	}

	res := Result{
		NodeCount: len(g.Nodes),
		EdgeCount: len(g.Edges),
		Skipped:   skipped,
		Duration:  time.Since(start),
	}
	metrics.RunSeconds.Set(res.Duration.Seconds())
	return res, nil
}
