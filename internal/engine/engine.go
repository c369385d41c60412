package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mfenderov/outliner/internal/frontmatter"
	"github.com/mfenderov/outliner/internal/memo"
	"github.com/mfenderov/outliner/internal/planner"
	"github.com/mfenderov/outliner/pkg/models"
)

// MemoKey is the outline front-matter key holding the serialized memo cache.
const MemoKey = "tree"

// Codec parses and renders markdown.
type Codec interface {
	Parse(src string) (*models.Document, error)
	Serialize(blocks []models.Block) string
	FirstBlock(src string) (models.Block, bool)
}

// Generator produces the text for one section.
// prior is the output assembled so far; outline is the section's outline item.
type Generator interface {
	Generate(ctx context.Context, prior, outline string) (string, error)
}

// ProgressFunc receives the full output text assembled so far.
type ProgressFunc func(partial string)

// Section describes how one outline item was resolved.
type Section struct {
	Index       int
	Fingerprint string
	Outline     string // canonical outline item text
	Generated   string // raw generator result stored in the memo
	Block       string // block placed in the output
	Cached      bool
}

// Result holds the rewritten documents and run statistics.
type Result struct {
	Outline     string
	Output      string
	Memo        *memo.Cache
	Sections    []Section
	Passthrough int
	Hits        int
	Misses      int
	Duration    time.Duration
}

// Engine regenerates an output document from an outline, reusing memoized
// sections whose outline text has not changed.
//
// Sections are resolved one at a time in document order. Each generation sees
// everything placed before it, so the order is a data dependency.
type Engine struct {
	codec     Codec
	generator Generator
}

// New creates an Engine.
func New(codec Codec, generator Generator) *Engine {
	return &Engine{
		codec:     codec,
		generator: generator,
	}
}

// Memo returns the memo cache persisted in an outline.
// A corrupt cache is reported as *memo.CorruptStateError alongside an empty cache.
func (e *Engine) Memo(outlineText string) (*memo.Cache, error) {
	doc, err := e.codec.Parse(outlineText)
	if err != nil {
		return nil, &MalformedOutlineError{Err: err}
	}
	meta, err := frontmatter.Parse(doc.FrontMatter)
	if err != nil {
		return nil, &MalformedOutlineError{Err: err}
	}
	return loadMemo(meta)
}

func loadMemo(meta *frontmatter.Metadata) (*memo.Cache, error) {
	data, ok, err := meta.GetString(MemoKey)
	if err != nil {
		return memo.New(), &memo.CorruptStateError{Err: err}
	}
	if !ok {
		return memo.New(), nil
	}
	cache, err := memo.Parse(data)
	if err != nil {
		return memo.New(), err
	}
	return cache, nil
}

// Run resolves every section of outlineText and returns the rewritten outline
// (body untouched, memo state replaced) and output (front matter kept, body rebuilt).
//
// Nothing is returned on failure: callers must not persist the last progress value.
func (e *Engine) Run(ctx context.Context, outlineText, outputText string, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()

	doc, err := e.codec.Parse(outlineText)
	if err != nil {
		return nil, &MalformedOutlineError{Err: err}
	}
	meta, err := frontmatter.Parse(doc.FrontMatter)
	if err != nil {
		return nil, &MalformedOutlineError{Err: err}
	}

	prev, err := loadMemo(meta)
	if err != nil {
		var corrupt *memo.CorruptStateError
		if !errors.As(err, &corrupt) {
			return nil, err
		}
		slog.Warn("Ignoring corrupt memo state, all sections will be generated", "error", err)
	}

	header := e.outputHeader(outputText)
	next := memo.New()
	res := &Result{Memo: next}

	var placed []models.Block
	progress := func() {
		if onProgress != nil {
			onProgress(header + e.codec.Serialize(placed))
		}
	}

	steps := planner.Plan(doc.Blocks)
	passthrough, sections := planner.Count(steps)
	slog.Debug("Planned run", "sections", sections, "passthrough", passthrough)

	for _, step := range steps {
		if step.Kind == planner.Passthrough {
			placed = append(placed, step.Block)
			res.Passthrough++
			progress()
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled before section %d: %w", step.Section, err)
		}

		sec, block, err := e.resolve(ctx, step, placed, prev)
		if err != nil {
			return nil, err
		}

		next.Append(memo.Entry{Fingerprint: sec.Fingerprint, Source: step.Block, Result: sec.Generated})
		placed = append(placed, block)
		res.Sections = append(res.Sections, sec)
		if sec.Cached {
			res.Hits++
		} else {
			res.Misses++
		}
		progress()
	}

	meta.SetString(MemoKey, next.String())
	raw, err := meta.Encode()
	if err != nil {
		return nil, &MalformedOutlineError{Err: err}
	}

	res.Outline = frontmatter.Join(raw, doc.Body)
	res.Output = header + e.codec.Serialize(placed)
	res.Duration = time.Since(start)
	return res, nil
}

// resolve returns the memoized result for a section or generates a new one.
func (e *Engine) resolve(ctx context.Context, step planner.Step, placed []models.Block, prev *memo.Cache) (Section, models.Block, error) {
	fp := memo.Fingerprint(e.codec, step.Block)
	sec := Section{
		Index:       step.Section,
		Fingerprint: fp,
		Outline:     step.Block.Text,
	}

	if entry, ok := prev.Lookup(fp); ok {
		if block, ok := e.codec.FirstBlock(entry.Result); ok {
			slog.Debug("Cache hit", "section", step.Section, "fingerprint", memo.ShortFingerprint(fp))
			sec.Generated = entry.Result
			sec.Block = block.Text
			sec.Cached = true
			return sec, block, nil
		}
		slog.Debug("Cached result is empty, regenerating", "section", step.Section, "fingerprint", memo.ShortFingerprint(fp))
	}

	slog.Debug("Generating section", "section", step.Section, "fingerprint", memo.ShortFingerprint(fp))
	prior := e.codec.Serialize(placed)
	outline := e.codec.Serialize([]models.Block{step.Block})

	text, err := e.generator.Generate(ctx, prior, outline)
	if err != nil {
		return sec, models.Block{}, &GenerationError{Section: step.Section, Fingerprint: fp, Err: err}
	}

	block, ok := e.codec.FirstBlock(text)
	if !ok {
		return sec, models.Block{}, &GenerationError{Section: step.Section, Fingerprint: fp, Err: ErrUnusableContent}
	}

	sec.Generated = text
	sec.Block = block.Text
	return sec, block, nil
}

// outputHeader keeps the output document's front matter verbatim.
// Output text that cannot be split is treated as having none; its body is rebuilt anyway.
func (e *Engine) outputHeader(outputText string) string {
	doc, err := e.codec.Parse(outputText)
	if err != nil || !doc.HasFrontMatter {
		return ""
	}
	if strings.TrimSpace(doc.FrontMatter) == "" {
		return "---\n---\n"
	}
	return "---\n" + doc.FrontMatter + "\n---\n"
}
