package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mfenderov/outliner/internal/engine"
	"github.com/mfenderov/outliner/internal/memo"
	"github.com/mfenderov/outliner/internal/pipeline"
	"github.com/mfenderov/outliner/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Updater runs and inspects outlines.
type Updater interface {
	Run(ctx context.Context, outline string, onProgress engine.ProgressFunc) (*pipeline.Result, error)
	Inspect(ctx context.Context, outline string) (*memo.Cache, error)
}

// Searcher queries indexed sections.
type Searcher interface {
	HybridSearch(ctx context.Context, query, document string, queryEmbedding []float32, limit int) ([]models.Section, error)
	GetSection(ctx context.Context, id string) (*models.Section, error)
}

// QueryEmbedder embeds search queries. It may be nil.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Server exposes outline updates and section search as MCP tools.
type Server struct {
	mcpServer *server.MCPServer
	updater   Updater
	searcher  Searcher
	embedder  QueryEmbedder
}

// NewServer creates a new MCP server. Search tools are registered only when
// searcher is non-nil.
func NewServer(config Config, updater Updater, searcher Searcher, embedder QueryEmbedder) (*Server, error) {
	if updater == nil {
		return nil, fmt.Errorf("updater is required")
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		updater:   updater,
		searcher:  searcher,
		embedder:  embedder,
	}

	updateTool := mcp.NewTool("update_outline",
		mcp.WithDescription("Regenerate the output document of an outline. Unchanged outline items reuse their cached text."),
		mcp.WithString("outline",
			mcp.Required(),
			mcp.Description("Outline document name, e.g. essay.outline"),
		),
	)
	mcpServer.AddTool(updateTool, s.updateHandler)

	inspectTool := mcp.NewTool("inspect_outline",
		mcp.WithDescription("List the cached sections stored in an outline without generating anything"),
		mcp.WithString("outline",
			mcp.Required(),
			mcp.Description("Outline document name"),
		),
	)
	mcpServer.AddTool(inspectTool, s.inspectHandler)

	if searcher != nil {
		searchTool := mcp.NewTool("search_sections",
			mcp.WithDescription("Search generated sections across outlines. Returns matching sections with their outline items."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Search query string"),
			),
			mcp.WithString("document",
				mcp.Description("Restrict results to one outline document"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of results to return (default: 10)"),
			),
		)
		mcpServer.AddTool(searchTool, s.searchHandler)

		getTool := mcp.NewTool("get_section",
			mcp.WithDescription("Get a specific generated section by ID"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Section ID to retrieve"),
			),
		)
		mcpServer.AddTool(getTool, s.getSectionHandler)
	}

	return s, nil
}

// updateSummary is the update_outline tool response.
type updateSummary struct {
	RunID       string   `json:"run_id"`
	Output      string   `json:"output"`
	Sections    int      `json:"sections"`
	Cached      int      `json:"cached"`
	Generated   int      `json:"generated"`
	Passthrough int      `json:"passthrough"`
	Indexed     int      `json:"indexed"`
	Warnings    []string `json:"warnings,omitempty"`
}

// updateHandler handles the update_outline tool call.
func (s *Server) updateHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outline, err := req.RequireString("outline")
	if err != nil {
		return mcp.NewToolResultError("outline parameter is required"), nil
	}

	res, err := s.updater.Run(ctx, outline, nil)
	if err != nil {
		var genErr *engine.GenerationError
		if errors.As(err, &genErr) {
			return mcp.NewToolResultError(fmt.Sprintf("update failed, nothing was written: %v", err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("update failed: %v", err)), nil
	}

	ev := res.Event
	return jsonResult(updateSummary{
		RunID:       ev.RunID,
		Output:      ev.Output,
		Sections:    len(ev.Sections),
		Cached:      ev.Hits,
		Generated:   ev.Misses,
		Passthrough: ev.Passthrough,
		Indexed:     res.Indexed,
		Warnings:    res.Warnings,
	})
}

// cachedSection is one inspect_outline entry.
type cachedSection struct {
	Fingerprint string `json:"sha1"`
	Outline     string `json:"outline"`
	Result      string `json:"result"`
}

// inspectHandler handles the inspect_outline tool call.
func (s *Server) inspectHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	outline, err := req.RequireString("outline")
	if err != nil {
		return mcp.NewToolResultError("outline parameter is required"), nil
	}

	cache, err := s.updater.Inspect(ctx, outline)
	var corrupt *memo.CorruptStateError
	if err != nil && !errors.As(err, &corrupt) {
		return mcp.NewToolResultError(fmt.Sprintf("inspect failed: %v", err)), nil
	}

	entries := make([]cachedSection, 0, cache.Len())
	for _, e := range cache.Entries() {
		entries = append(entries, cachedSection{
			Fingerprint: e.Fingerprint,
			Outline:     e.Source.Text,
			Result:      e.Result,
		})
	}
	return jsonResult(entries)
}

// searchHandler handles the search_sections tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	document := req.GetString("document", "")
	limit := req.GetInt("limit", 10)

	sections, err := s.handleSearch(ctx, query, document, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(sections)
}

// getSectionHandler handles the get_section tool call.
func (s *Server) getSectionHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	section, err := s.searcher.GetSection(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get section failed: %v", err)), nil
	}

	if section == nil {
		return mcp.NewToolResultError(fmt.Sprintf("section not found: %s", id)), nil
	}
	return jsonResult(section)
}

// handleSearch embeds the query when possible and runs a hybrid search.
// An embedding failure degrades to text search.
func (s *Server) handleSearch(ctx context.Context, query, document string, limit int) ([]models.Section, error) {
	var vector []float32
	if s.embedder != nil {
		if v, err := s.embedder.Embed(ctx, query); err == nil {
			vector = v
		}
	}
	return s.searcher.HybridSearch(ctx, query, document, vector, limit)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
