package events

import (
	"time"

	"github.com/mfenderov/outliner/pkg/models"
)

// RunCompleteEvent is sent when an update run has written both documents.
type RunCompleteEvent struct {
	RunID       string           // Unique per run
	Outline     string           // Outline document name (e.g., "essay.outline")
	Output      string           // Output document name (e.g., "essay.md")
	Sections    []models.Section // Every section in output order
	Hits        int              // Sections reused from the memo cache
	Misses      int              // Sections sent to the generator
	Passthrough int              // Blocks copied unchanged
	Duration    time.Duration    // How long the run took
	Timestamp   time.Time        // When the run completed
}

// Generated returns the sections produced by the generator in this run.
func (e RunCompleteEvent) Generated() []models.Section {
	var out []models.Section
	for _, s := range e.Sections {
		if !s.Cached {
			out = append(out, s)
		}
	}
	return out
}

// RunFailedEvent is sent when an update run aborts. Nothing was written.
type RunFailedEvent struct {
	Outline   string
	Err       error
	Timestamp time.Time
}
