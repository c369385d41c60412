package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/mfenderov/outliner/internal/engine"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update [outline...]",
	Short: "Regenerate the output of outlines",
	Long: `Regenerate the output document of each outline. Items whose text did not
change since the last run reuse their cached section; only new or edited items
are sent to the generator.

With no arguments every outline in the document store is updated.

Examples:
  # Update one outline (writes essay.md)
  outliner update essay.outline

  # Update every outline, showing the document as it grows
  outliner update -v`,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	names, err := a.outlines(ctx, cfg, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, name := range names {
		fmt.Fprintf(out, "Updating: %s\n", name)

		var progress engine.ProgressFunc
		if verbose {
			progress = func(partial string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "--- progress ---\n%s", partial)
			}
		}

		res, err := a.pipeline.Run(ctx, name, progress)
		if err != nil {
			failed++
			var genErr *engine.GenerationError
			if errors.As(err, &genErr) {
				fmt.Fprintf(out, "  Error: %v (nothing was written)\n", err)
			} else {
				fmt.Fprintf(out, "  Error: %v\n", err)
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		ev := res.Event
		fmt.Fprintf(out, "  Output: %s\n", ev.Output)
		fmt.Fprintf(out, "  Sections: %d (cached %d, generated %d), passthrough: %d, duration: %v\n",
			len(ev.Sections), ev.Hits, ev.Misses, ev.Passthrough, ev.Duration)
		if res.Indexed > 0 {
			fmt.Fprintf(out, "  Indexed: %d\n", res.Indexed)
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "  Warning: %s\n", w)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d outlines failed", failed, len(names))
	}
	return nil
}
