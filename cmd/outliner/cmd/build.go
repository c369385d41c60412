package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/mfenderov/outliner/internal/config"
	"github.com/mfenderov/outliner/internal/elasticsearch"
	"github.com/mfenderov/outliner/internal/embeddings"
	"github.com/mfenderov/outliner/internal/engine"
	"github.com/mfenderov/outliner/internal/indexer"
	"github.com/mfenderov/outliner/internal/llm"
	"github.com/mfenderov/outliner/internal/markdown"
	"github.com/mfenderov/outliner/internal/pipeline"
	"github.com/mfenderov/outliner/internal/processor"
	"github.com/mfenderov/outliner/internal/storage"
)

// app bundles the components shared by the commands.
type app struct {
	store    storage.Store
	pipeline *pipeline.Pipeline
	es       *elasticsearch.Client // nil unless the index is enabled
	embedder *embeddings.Client    // nil unless embeddings are enabled
}

// newApp wires storage, the generator chain and the optional section index.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create document store: %w", err)
	}

	gen, err := llm.NewFromConfig(ctx, cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	slog.Debug("generator ready", "provider", cfg.Generator.Provider, "model", cfg.Generator.Model)

	a := &app{store: store}

	var idx pipeline.SectionIndexer
	if cfg.Index.Enabled {
		if err := a.openIndex(cfg); err != nil {
			return nil, err
		}
		if a.embedder != nil {
			idx = indexer.New(a.es, a.embedder)
		} else {
			idx = indexer.New(a.es, nil)
		}
	}

	eng := engine.New(markdown.New(), processor.NewNormalizer(gen))
	a.pipeline, err = pipeline.New(store, eng, idx, pipeline.Config{
		Extension:       cfg.Outline.Extension,
		OutputExtension: cfg.Outline.OutputExtension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return a, nil
}

// openIndex creates the Elasticsearch client and, if enabled, the embeddings client.
func (a *app) openIndex(cfg config.Config) error {
	dims := 0
	if cfg.Embeddings.Enabled {
		client, err := embeddings.New(embeddings.Config{
			SocketPath: cfg.Embeddings.SocketPath,
			Model:      cfg.Embeddings.Model,
		})
		if err != nil {
			return fmt.Errorf("failed to create embeddings client: %w", err)
		}
		a.embedder = client
		dims = embeddings.Dimensions(cfg.Embeddings.Model)
		slog.Info("embeddings enabled", "model", client.Model())
	}

	es, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Dims:      dims,
	})
	if err != nil {
		return fmt.Errorf("failed to create ES client: %w", err)
	}
	a.es = es
	return nil
}

// outlines returns args, or every outline in the store when args is empty.
func (a *app) outlines(ctx context.Context, cfg config.Config, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	names, err := a.store.List(ctx, cfg.Outline.Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to list outlines: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no %s documents found", cfg.Outline.Extension)
	}
	return names, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		return s[:n] + "..."
	}
	return s
}
