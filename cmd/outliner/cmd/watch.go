package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfenderov/outliner/internal/events"
	"github.com/mfenderov/outliner/internal/pipeline"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var watchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch [outline...]",
	Short: "Re-run updates on a schedule",
	Long: `Update outlines on a cron schedule until interrupted. A tick that fires
while the previous one is still running is skipped. With no arguments the
document store is listed on every tick, so new outlines are picked up.

Examples:
  # Update essay.outline every five minutes (the default schedule)
  outliner watch essay.outline

  # Update every outline at the top of each hour
  outliner watch --schedule "0 * * * *"`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron spec or @every duration (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()
	schedule := cfg.Watch.Schedule
	if watchSchedule != "" {
		schedule = watchSchedule
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}

	// Event channel for run results
	runEvents := make(chan any)
	done := make(chan struct{})

	// Start reporter (consumer)
	go func() {
		defer close(done)
		report(cmd.OutOrStdout(), runEvents)
	}()

	// Update outlines (producer)
	tick := func() {
		names, err := a.outlines(ctx, cfg, args)
		if err != nil {
			slog.Warn("watch tick skipped", "error", err)
			return
		}
		for _, name := range names {
			if ctx.Err() != nil {
				return
			}
			runEvents <- runOnce(ctx, a.pipeline, name)
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(schedule, tick); err != nil {
		close(runEvents)
		<-done
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching (schedule %s), press Ctrl+C to stop\n", schedule)
	tick()
	c.Start()

	<-ctx.Done()

	// Wait for an in-flight tick before closing the channel
	<-c.Stop().Done()
	close(runEvents)
	<-done
	return nil
}

// runOnce updates one outline and returns the resulting event.
func runOnce(ctx context.Context, p *pipeline.Pipeline, name string) any {
	res, err := p.Run(ctx, name, nil)
	if err != nil {
		return events.RunFailedEvent{
			Outline:   name,
			Err:       err,
			Timestamp: time.Now(),
		}
	}
	return res.Event
}

// report prints run events until the channel is closed.
func report(w io.Writer, runEvents <-chan any) {
	for ev := range runEvents {
		switch ev := ev.(type) {
		case events.RunCompleteEvent:
			generated := len(ev.Generated())
			if generated == 0 {
				slog.Debug("outline unchanged", "outline", ev.Outline)
				continue
			}
			fmt.Fprintf(w, "%s  %s -> %s: generated %d, cached %d (%v)\n",
				ev.Timestamp.Format(time.TimeOnly), ev.Outline, ev.Output, generated, ev.Hits, ev.Duration)
		case events.RunFailedEvent:
			if errors.Is(ev.Err, pipeline.ErrRunInProgress) {
				continue
			}
			fmt.Fprintf(w, "%s  %s: %v\n", ev.Timestamp.Format(time.TimeOnly), ev.Outline, ev.Err)
		}
	}
}
