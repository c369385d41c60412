package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	searchLimit    int
	searchFormat   string
	searchDocument string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search generated sections",
	Long: `Search the sections indexed by previous updates. Requires index.enabled.
When embeddings are enabled the query runs as a hybrid text and vector search.

Examples:
  # Basic search
  outliner search "memo cache"

  # Only sections of one outline
  outliner search "retry policy" --document essay.outline

  # JSON output for scripting
  outliner search "front matter" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
	searchCmd.Flags().StringVar(&searchDocument, "document", "", "Restrict results to one outline")
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	if !cfg.Index.Enabled {
		return fmt.Errorf("section index is disabled - set index.enabled")
	}

	a := &app{}
	if err := a.openIndex(cfg); err != nil {
		return err
	}

	if !a.es.Ping(ctx) {
		return fmt.Errorf("elasticsearch not reachable at %v", cfg.Elasticsearch.Addresses)
	}

	var vector []float32
	if a.embedder != nil {
		v, err := a.embedder.Embed(ctx, query)
		if err != nil {
			slog.Warn("failed to embed query, using text search", "error", err)
		} else {
			vector = v
		}
	}

	sections, err := a.es.HybridSearch(ctx, query, searchDocument, vector, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sections) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(sections, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	fmt.Fprintf(out, "Found %d results:\n\n", len(sections))
	for i, s := range sections {
		fmt.Fprintf(out, "─── Result %d ───\n", i+1)
		fmt.Fprintf(out, "Outline: %s (section %d)\n", s.Document, s.Position+1)
		fmt.Fprintf(out, "Item:    %s\n", s.Outline)
		fmt.Fprintf(out, "ID:      %s\n", s.ID)
		fmt.Fprintf(out, "Content:\n%s\n\n", truncate(s.Content, 500))
	}
	return nil
}
