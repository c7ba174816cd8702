// Package mcp adapts boardgraph to the Model Context Protocol, so agents can
// trigger graph generation and search BGG over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meeplelab/boardgraph/pkg/bgg"
	"github.com/meeplelab/boardgraph/pkg/export"
	"github.com/meeplelab/boardgraph/pkg/pipeline"
)

// Config wires the MCP server to a transport client and a data directory.
type Config struct {
	DataDir string
	Client  *bgg.Client
}

// Server exposes generation and search as MCP tools and the exported
// artifacts as resources.
type Server struct {
	mcpServer *server.MCPServer
	dataDir   string
	client    *bgg.Client
}

// NewServer creates a new MCP server instance.
func NewServer(cfg Config) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"boardgraph",
			"1.0.0",
		),
		dataDir: cfg.DataDir,
		client:  cfg.Client,
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		"boardgraph://nodes",
		"Collection Nodes",
		mcp.WithResourceDescription("Owned games with their attributes, as exported to nodes.json"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadArtifact)

	s.mcpServer.AddResource(mcp.NewResource(
		"boardgraph://edges",
		"Similarity Edges",
		mcp.WithResourceDescription("Threshold-filtered similarity edges, as exported to edges.json"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadArtifact)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"generate_graph",
		mcp.WithDescription("Fetch a BGG user's owned collection and export a similarity graph (nodes.json, edges.json)."),
		mcp.WithString("username", mcp.Required(), mcp.Description("BGG username whose collection to fetch")),
		mcp.WithNumber("threshold", mcp.Description("Minimum similarity for an edge, in [0,1] (default 0.35)")),
		mcp.WithString("out_dir", mcp.Description("Output directory (defaults to the configured data dir)")),
	), s.handleGenerateGraph)

	s.mcpServer.AddTool(mcp.NewTool(
		"search_games",
		mcp.WithDescription("Search BGG for games by name."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name or partial name to search for")),
	), s.handleSearchGames)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"boardgraph-aware",
		mcp.WithPromptDescription("Provides context about boardgraph concepts (collections, similarity, thresholds)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadArtifact(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var file string
	switch request.Params.URI {
	case "boardgraph://nodes":
		file = export.NodesFile
	case "boardgraph://edges":
		file = export.EdgesFile
	default:
		return nil, fmt.Errorf("resource not found: %s", request.Params.URI)
	}

	data, err := os.ReadFile(filepath.Join(s.dataDir, file))
	if err != nil {
		return nil, fmt.Errorf("no exported %s yet, run generate_graph first: %w", file, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleGenerateGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := mcp.ParseString(request, "username", "")
	threshold := mcp.ParseFloat64(request, "threshold", 0.35)
	outDir := mcp.ParseString(request, "out_dir", s.dataDir)

	if strings.TrimSpace(username) == "" {
		return mcp.NewToolResultError("username is required"), nil
	}
	if threshold < 0 || threshold > 1 {
		return mcp.NewToolResultError("threshold must be in [0,1]"), nil
	}

	exporter, err := export.New(outDir)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("output dir: %v", err)), nil
	}

	res, err := pipeline.Run(ctx, pipeline.Deps{
		Collection: s.client,
		Details:    s.client,
		Sink:       exporter,
	}, pipeline.Options{
		Username:  username,
		Threshold: threshold,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generation failed: %v", err)), nil
	}

	msg := fmt.Sprintf("Exported %d nodes and %d edges to %s (threshold %g, %d skipped, took %s)",
		res.NodeCount, res.EdgeCount, outDir, threshold, len(res.Skipped), res.Duration.Round(time.Millisecond))
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) handleSearchGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := mcp.ParseString(request, "query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	results, err := s.client.SearchGames(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal results: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "boardgraph-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with boardgraph, a tool that turns a BoardGameGeek
collection into a weighted similarity graph.

Concepts:
- Collection: the set of games a BGG user owns, fetched live from the XML API.
- Similarity: a [0,1] score blending mechanics overlap, category overlap, and
  numeric features (rating, weight, player counts, playing time).
- Threshold: the minimum score for an edge to appear in edges.json (default 0.35).
- Artifacts: nodes.json (one node per owned game) and edges.json, replaced
  atomically on each run.

Use 'generate_graph' to produce the artifacts for a username, then read the
'boardgraph://nodes' and 'boardgraph://edges' resources to inspect them. Use
'search_games' to resolve a game name to its BGG id.
`

	return mcp.NewGetPromptResult(
		"boardgraph-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
