package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultThreshold = 0.35
	defaultOutDir    = "data"
	defaultBatchSize = 20
	defaultRateDelay = 1500 * time.Millisecond
	defaultRetries   = 3
	defaultBackoff   = 1500 * time.Millisecond
	defaultWorkers   = 1
	defaultCacheTTL  = 24 * time.Hour
)

type Config struct {
	Username    string
	Threshold   float64
	OutDir      string
	BatchSize   int
	RateDelay   time.Duration
	MaxRetries  int
	BackoffBase time.Duration
	Workers     int
	CachePath   string
	RedisAddr   string
	CacheTTL    time.Duration
	CSV         bool
}

func LoadConfig(args []string) (Config, error) {
	username := os.Getenv("BOARDGRAPH_USERNAME")
	outDir := envOrDefault("BOARDGRAPH_OUT_DIR", defaultOutDir)
	cachePath := os.Getenv("BOARDGRAPH_CACHE_PATH")
	redisAddr := os.Getenv("BOARDGRAPH_REDIS_ADDR")

	threshold := defaultThreshold
	if thresholdEnv := os.Getenv("BOARDGRAPH_THRESHOLD"); thresholdEnv != "" {
		parsed, err := strconv.ParseFloat(thresholdEnv, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BOARDGRAPH_THRESHOLD: %w", err)
		}
		threshold = parsed
	}

	flagSet := flag.NewFlagSet("boardgraph", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagUsername := flagSet.String("username", username, "BGG username (required)")
	flagThreshold := flagSet.Float64("threshold", threshold, "minimum similarity for an edge, in [0,1]")
	flagOut := flagSet.String("out", outDir, "output directory for nodes.json and edges.json")
	flagBatch := flagSet.Int("batch-size", defaultBatchSize, "game ids per detail request")
	flagRateDelay := flagSet.Duration("rate-delay", defaultRateDelay, "minimum delay between API requests")
	flagRetries := flagSet.Int("max-retries", defaultRetries, "attempts per request before giving up")
	flagBackoff := flagSet.Duration("backoff-base", defaultBackoff, "base delay for exponential retry backoff")
	flagWorkers := flagSet.Int("workers", defaultWorkers, "concurrent detail batches (rate limit still shared)")
	flagCache := flagSet.String("cache", cachePath, "path to a SQLite detail cache (off when empty)")
	flagRedis := flagSet.String("redis", redisAddr, "redis address for a shared detail cache (off when empty)")
	flagCacheTTL := flagSet.Duration("cache-ttl", defaultCacheTTL, "how long cached details stay fresh")
	flagCSV := flagSet.Bool("csv", false, "also write edges.csv")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		Username:    strings.TrimSpace(*flagUsername),
		Threshold:   *flagThreshold,
		OutDir:      strings.TrimSpace(*flagOut),
		BatchSize:   *flagBatch,
		RateDelay:   *flagRateDelay,
		MaxRetries:  *flagRetries,
		BackoffBase: *flagBackoff,
		Workers:     *flagWorkers,
		CachePath:   strings.TrimSpace(*flagCache),
		RedisAddr:   strings.TrimSpace(*flagRedis),
		CacheTTL:    *flagCacheTTL,
		CSV:         *flagCSV,
	}

	if config.Username == "" {
		return Config{}, errors.New("username is required (flag -username or BOARDGRAPH_USERNAME)")
	}
	if config.Threshold < 0 || config.Threshold > 1 {
		return Config{}, fmt.Errorf("threshold must be in [0,1], got %g", config.Threshold)
	}
	if config.OutDir == "" {
		return Config{}, errors.New("out dir cannot be empty")
	}
	if config.BatchSize <= 0 {
		return Config{}, fmt.Errorf("batch-size must be positive, got %d", config.BatchSize)
	}
	if config.Workers <= 0 {
		return Config{}, fmt.Errorf("workers must be positive, got %d", config.Workers)
	}
	if config.CachePath != "" && config.RedisAddr != "" {
		return Config{}, errors.New("choose one of -cache or -redis, not both")
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
