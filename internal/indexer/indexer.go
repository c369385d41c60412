package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mfenderov/outliner/internal/events"
	"github.com/mfenderov/outliner/pkg/models"
)

// SectionIndex is the search index that receives sections.
type SectionIndex interface {
	CreateIndex(ctx context.Context) error
	IndexSection(ctx context.Context, section models.Section) error
	DeleteStale(ctx context.Context, document, runID string) error
	Refresh(ctx context.Context) error
}

// Embedder produces one vector per text.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer indexes the sections of completed runs into Elasticsearch.
type Indexer struct {
	index    SectionIndex
	embedder Embedder // nil if embeddings disabled
}

// New creates a new Indexer. embedder may be nil.
func New(index SectionIndex, embedder Embedder) *Indexer {
	return &Indexer{index: index, embedder: embedder}
}

// IndexRun replaces the indexed sections of run.Outline with run.Sections.
// Sections left over from earlier runs of the same outline are removed.
func (i *Indexer) IndexRun(ctx context.Context, run events.RunCompleteEvent) (int, error) {
	start := time.Now()
	log := slog.With("run_id", run.RunID, "outline", run.Outline)

	if err := i.index.CreateIndex(ctx); err != nil {
		return 0, err
	}

	sections := i.embed(ctx, log, run.Sections)

	indexed := 0
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		if err := i.index.IndexSection(ctx, section); err != nil {
			return indexed, fmt.Errorf("index section %d: %w", section.Position, err)
		}
		indexed++
	}

	if err := i.index.DeleteStale(ctx, run.Outline, run.RunID); err != nil {
		return indexed, err
	}

	// Refresh index to make sections searchable immediately
	if err := i.index.Refresh(ctx); err != nil {
		log.Warn("failed to refresh index", "error", err)
	}

	log.Debug("run indexed", "sections", indexed, "duration", time.Since(start))
	return indexed, nil
}

// embed attaches embeddings to a copy of sections. Failures only cost the
// vectors; the sections are still indexed for text search.
func (i *Indexer) embed(ctx context.Context, log *slog.Logger, sections []models.Section) []models.Section {
	out := make([]models.Section, len(sections))
	copy(out, sections)
	if i.embedder == nil || len(out) == 0 {
		return out
	}

	texts := make([]string, len(out))
	for n, s := range out {
		texts[n] = s.Content
	}

	vectors, err := i.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Warn("failed to generate embeddings", "error", err)
		return out
	}
	for n := range out {
		out[n].Embedding = vectors[n]
	}
	return out
}
