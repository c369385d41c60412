package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// BlockKind names the markdown construct a Block was parsed from.
type BlockKind string

const (
	KindParagraph     BlockKind = "paragraph"
	KindHeading       BlockKind = "heading"
	KindList          BlockKind = "list"
	KindListItem      BlockKind = "listItem"
	KindCode          BlockKind = "code"
	KindQuote         BlockKind = "blockquote"
	KindThematicBreak BlockKind = "thematicBreak"
	KindHTML          BlockKind = "html"
	KindOther         BlockKind = "other"
)

// Block is one top-level markdown unit (or one list item).
// Text is the block's rendered markdown; Items is only set for lists.
type Block struct {
	Kind  BlockKind `json:"kind"`
	Text  string    `json:"text"`
	Items []Block   `json:"items,omitempty"`
}

// IsList reports whether the block is a list container.
func (b Block) IsList() bool {
	return b.Kind == KindList
}

// Document is a parsed markdown file: raw front matter plus body blocks.
type Document struct {
	FrontMatter    string  // raw YAML between the --- markers, without them
	HasFrontMatter bool    // false when the text does not open with a front-matter marker
	Body           string  // everything after the closing marker, verbatim
	Blocks         []Block // top-level blocks of Body
}

// Section is a generated section as stored in the search index.
type Section struct {
	ID          string    `json:"id"`
	Document    string    `json:"document"`    // outline name the section belongs to
	Fingerprint string    `json:"fingerprint"` // memo key of the outline item
	Position    int       `json:"position"`    // section ordinal within the run
	Outline     string    `json:"outline"`     // outline item markdown
	Content     string    `json:"content"`     // generated markdown
	Cached      bool      `json:"cached"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Embedding   []float32 `json:"embedding,omitempty"` // vector embedding of content
}

// GenerateSectionID creates a deterministic ID from document name and fingerprint.
// The ID is a SHA-256 hash (first 16 chars) of both values.
func GenerateSectionID(document, fingerprint string) string {
	hash := sha256.Sum256([]byte(document + "\x00" + fingerprint))
	return hex.EncodeToString(hash[:])[:16]
}
