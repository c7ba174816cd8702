package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/meeplelab/boardgraph/pkg/bgg"
	"github.com/meeplelab/boardgraph/pkg/export"
	"github.com/meeplelab/boardgraph/pkg/pipeline"
	"github.com/meeplelab/boardgraph/pkg/store"
	redisstore "github.com/meeplelab/boardgraph/pkg/store/redis"
)

var (
	Version   = "v1.0.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	log.SetFlags(0)

	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Printf("boardgraph: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config); err != nil {
		log.Printf("boardgraph: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config Config) error {
	cache, cleanup, err := openCache(ctx, config)
	if err != nil {
		return err
	}
	defer cleanup()

	client := bgg.New(bgg.Config{
		RateDelay:  config.RateDelay,
		MaxRetries: config.MaxRetries,
		BatchSize:  config.BatchSize,
		Workers:    config.Workers,
		Backoff: &bgg.ExponentialBackoff{
			Base:   config.BackoffBase,
			Max:    60 * config.BackoffBase,
			Factor: 2.0,
			Jitter: 0.2,
		},
		Cache: cache,
	})

	var opts []export.Option
	if config.CSV {
		opts = append(opts, export.WithCSV())
	}
	exporter, err := export.New(config.OutDir, opts...)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, pipeline.Deps{
		Collection: client,
		Details:    client,
		Sink:       exporter,
	}, pipeline.Options{
		Username:  config.Username,
		Threshold: config.Threshold,
		OnStage: func(s pipeline.Stage) {
			log.Printf("boardgraph: stage %s", s)
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d nodes and %d edges to %s in %s\n",
		res.NodeCount, res.EdgeCount, config.OutDir, res.Duration.Round(time.Millisecond))
	if len(res.Skipped) > 0 {
		fmt.Printf("Skipped %d games:\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Printf("  %s: %s\n", s.ID, s.Reason)
		}
	}
	return nil
}

// openCache returns the configured detail cache, or nil when caching is off.
func openCache(ctx context.Context, config Config) (bgg.DetailCache, func(), error) {
	switch {
	case config.CachePath != "":
		c, err := store.NewItemCache(config.CachePath, config.CacheTTL)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Close() }, nil
	case config.RedisAddr != "":
		client := goredis.NewClient(&goredis.Options{Addr: config.RedisAddr})
		c := redisstore.NewItemCache(client, config.CacheTTL)
		if err := c.Ping(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return c, func() { client.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
