package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mfenderov/outliner/internal/engine"
	"github.com/mfenderov/outliner/internal/events"
	"github.com/mfenderov/outliner/internal/memo"
	"github.com/mfenderov/outliner/internal/storage"
	"github.com/mfenderov/outliner/pkg/models"
)

// ErrRunInProgress is returned when an outline already has an active run.
var ErrRunInProgress = errors.New("an update is already running for this outline")

// Store reads and writes documents.
type Store interface {
	Read(ctx context.Context, name string) (string, error)
	Write(ctx context.Context, name, content string) error
}

// SectionIndexer receives every completed run. It may be nil.
type SectionIndexer interface {
	IndexRun(ctx context.Context, run events.RunCompleteEvent) (int, error)
}

// Config holds pipeline configuration.
type Config struct {
	Extension       string // outline extension, e.g. ".outline"
	OutputExtension string // output extension, e.g. ".md"
}

// Result holds the outcome of one update run.
type Result struct {
	Event    events.RunCompleteEvent
	Indexed  int
	Warnings []string
}

// Pipeline runs the engine against stored document pairs.
// At most one run per outline is active at a time.
type Pipeline struct {
	config  Config
	store   Store
	engine  *engine.Engine
	indexer SectionIndexer

	mu     sync.Mutex
	active map[string]struct{}
}

// New creates a new Pipeline.
func New(store Store, eng *engine.Engine, indexer SectionIndexer, config Config) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if eng == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if config.Extension == "" || config.OutputExtension == "" {
		return nil, fmt.Errorf("outline and output extensions are required")
	}
	if config.Extension == config.OutputExtension {
		return nil, fmt.Errorf("outline and output extensions must differ")
	}

	return &Pipeline{
		config:  config,
		store:   store,
		engine:  eng,
		indexer: indexer,
		active:  make(map[string]struct{}),
	}, nil
}

// OutputName maps an outline name to its output document name.
func (p *Pipeline) OutputName(outline string) (string, error) {
	if !strings.HasSuffix(outline, p.config.Extension) {
		return "", fmt.Errorf("%q is not an outline (expected %s extension)", outline, p.config.Extension)
	}
	return strings.TrimSuffix(outline, p.config.Extension) + p.config.OutputExtension, nil
}

func (p *Pipeline) acquire(outline string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.active[outline]; busy {
		return false
	}
	p.active[outline] = struct{}{}
	return true
}

func (p *Pipeline) release(outline string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, outline)
}

// Run regenerates the output of one outline and persists both documents.
// Nothing is written unless the engine completes; the output is written before
// the outline so a failed outline write only costs a regeneration.
func (p *Pipeline) Run(ctx context.Context, outline string, onProgress engine.ProgressFunc) (*Result, error) {
	output, err := p.OutputName(outline)
	if err != nil {
		return nil, err
	}

	if !p.acquire(outline) {
		return nil, fmt.Errorf("%s: %w", outline, ErrRunInProgress)
	}
	defer p.release(outline)

	runID := uuid.NewString()
	log := slog.With("run_id", runID, "outline", outline)

	outlineText, err := p.store.Read(ctx, outline)
	if err != nil {
		return nil, fmt.Errorf("failed to read outline: %w", err)
	}

	outputText, err := p.store.Read(ctx, output)
	if errors.Is(err, storage.ErrNotFound) {
		log.Debug("output document does not exist yet", "output", output)
		outputText = ""
	} else if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	log.Info("starting update")

	res, err := p.engine.Run(ctx, outlineText, outputText, onProgress)
	if err != nil {
		return nil, err
	}

	if err := p.store.Write(ctx, output, res.Output); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	if err := p.store.Write(ctx, outline, res.Outline); err != nil {
		return nil, fmt.Errorf("failed to write outline: %w", err)
	}

	result := &Result{Event: newEvent(runID, outline, output, res)}

	if p.indexer != nil {
		n, err := p.indexer.IndexRun(ctx, result.Event)
		if err != nil {
			log.Warn("failed to index sections", "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("indexing: %v", err))
		}
		result.Indexed = n
	}

	log.Info("update complete",
		"sections", len(res.Sections),
		"cache_hits", res.Hits,
		"generated", res.Misses,
		"passthrough", res.Passthrough,
		"duration", res.Duration)

	return result, nil
}

// Inspect returns the memo cache stored in an outline without generating anything.
func (p *Pipeline) Inspect(ctx context.Context, outline string) (*memo.Cache, error) {
	text, err := p.store.Read(ctx, outline)
	if err != nil {
		return nil, fmt.Errorf("failed to read outline: %w", err)
	}
	return p.engine.Memo(text)
}

func newEvent(runID, outline, output string, res *engine.Result) events.RunCompleteEvent {
	now := time.Now()
	sections := make([]models.Section, len(res.Sections))
	for i, s := range res.Sections {
		sections[i] = models.Section{
			ID:          models.GenerateSectionID(outline, s.Fingerprint),
			Document:    outline,
			Fingerprint: s.Fingerprint,
			Position:    s.Index,
			Outline:     s.Outline,
			Content:     s.Block,
			Cached:      s.Cached,
			RunID:       runID,
			GeneratedAt: now,
		}
	}

	return events.RunCompleteEvent{
		RunID:       runID,
		Outline:     outline,
		Output:      output,
		Sections:    sections,
		Hits:        res.Hits,
		Misses:      res.Misses,
		Passthrough: res.Passthrough,
		Duration:    res.Duration,
		Timestamp:   now,
	}
}
