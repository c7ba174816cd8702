// boardgraph-mcp exposes graph generation and BGG search to MCP clients over
// stdio.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/meeplelab/boardgraph/pkg/bgg"
	"github.com/meeplelab/boardgraph/pkg/mcp"
)

func main() {
	dataDir := flag.String("data", envOrDefault("BOARDGRAPH_OUT_DIR", "data"), "directory for exported artifacts")
	flag.Parse()

	// MCP uses stdout for the protocol; logs must stay on stderr.
	log.SetOutput(os.Stderr)

	s := mcp.NewServer(mcp.Config{
		DataDir: *dataDir,
		Client:  bgg.New(bgg.Config{}),
	})
	if err := s.Serve(); err != nil {
		log.Fatalf("boardgraph-mcp: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
