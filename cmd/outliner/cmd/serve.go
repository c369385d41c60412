package cmd

import (
	"context"
	"fmt"

	"github.com/mfenderov/outliner/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for outline updates.

The server communicates via stdio and provides these tools:
  - update_outline:  Regenerate an outline's output document
  - inspect_outline: List the cached sections of an outline
  - search_sections: Search generated sections (index enabled only)
  - get_section:     Get a generated section by ID (index enabled only)

Example:
  outliner serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}

	var searcher mcp.Searcher
	var embedder mcp.QueryEmbedder
	if a.es != nil {
		searcher = a.es
	}
	if a.embedder != nil {
		embedder = a.embedder
	}

	server, err := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, a.pipeline, searcher, embedder)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
