package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mfenderov/outliner/internal/memo"
	"github.com/spf13/cobra"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <outline>",
	Short: "Show the cached sections stored in an outline",
	Long: `List the memo entries kept in an outline's front matter: the fingerprint
of each outline item, the item itself and a preview of its cached section.
Nothing is generated or written.

Examples:
  outliner inspect essay.outline
  outliner inspect essay.outline --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text or json")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := GetConfig()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	cache, err := a.pipeline.Inspect(ctx, args[0])
	var corrupt *memo.CorruptStateError
	if errors.As(err, &corrupt) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; the next update regenerates every section\n", err)
	} else if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if inspectFormat == "json" {
		fmt.Fprintln(out, cache.String())
		return nil
	}
	printEntries(out, cache)
	return nil
}

func printEntries(w io.Writer, cache *memo.Cache) {
	if cache.Len() == 0 {
		fmt.Fprintln(w, "No cached sections.")
		return
	}

	fmt.Fprintf(w, "%d cached sections:\n\n", cache.Len())
	for _, e := range cache.Entries() {
		fmt.Fprintf(w, "%-8s  %s\n", memo.ShortFingerprint(e.Fingerprint), strings.TrimSpace(e.Source.Text))
		fmt.Fprintf(w, "          %s\n\n", truncate(strings.ReplaceAll(e.Result, "\n", " "), 100))
	}
}
