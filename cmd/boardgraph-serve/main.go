// boardgraph-serve hosts a generated data directory for the browser renderer
// and exposes Prometheus metrics. It serves files only; graph generation
// stays in the boardgraph CLI.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8091", "HTTP listen address")
	dataDir := flag.String("data", "data", "directory holding nodes.json and edges.json")
	flag.Parse()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", http.FileServer(http.Dir(*dataDir)))

	server := &http.Server{
		Addr:         *addr,
		Handler:      withLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("boardgraph-serve: serving %s on http://%s", *dataDir, *addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("boardgraph-serve: %v", err)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}
