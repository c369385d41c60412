package memo

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mfenderov/outliner/pkg/models"
)

// Serializer renders blocks to their canonical text form.
type Serializer interface {
	Serialize(blocks []models.Block) string
}

// Fingerprint returns the lowercase hex SHA-1 of the block's rendered text.
// Blocks with identical rendering share a fingerprint regardless of how they were parsed.
func Fingerprint(s Serializer, b models.Block) string {
	sum := sha1.Sum([]byte(s.Serialize([]models.Block{b})))
	return hex.EncodeToString(sum[:])
}

// ShortFingerprint returns the first eight characters of fp for display.
// Shorter values, as read from hand-edited front matter, are returned whole.
func ShortFingerprint(fp string) string {
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}

// Entry is one generated section keyed by the fingerprint of its outline item.
type Entry struct {
	Fingerprint string       `json:"sha1"`
	Source      models.Block `json:"md"`
	Result      string       `json:"result"`
}

// CorruptStateError reports persisted memo data that cannot be decoded.
// Callers recover by starting from an empty cache.
type CorruptStateError struct {
	Err error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt memo state: %v", e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// Cache is a flat content-addressed store of generated sections.
// Entries keep append order for serialization; lookups go through the index,
// where the latest entry for a fingerprint wins.
type Cache struct {
	entries []Entry
	index   map[string]int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: []Entry{},
		index:   make(map[string]int),
	}
}

// Parse rebuilds a cache from its serialized form.
func Parse(data string) (*Cache, error) {
	var entries []Entry
	dec := json.NewDecoder(strings.NewReader(data))
	if err := dec.Decode(&entries); err != nil {
		return nil, &CorruptStateError{Err: err}
	}
	if dec.More() {
		return nil, &CorruptStateError{Err: fmt.Errorf("unexpected data after memo entries")}
	}

	c := New()
	for i, e := range entries {
		if e.Fingerprint == "" {
			return nil, &CorruptStateError{Err: fmt.Errorf("entry %d has no fingerprint", i)}
		}
		c.Append(e)
	}
	return c, nil
}

// Append adds an entry. A repeated fingerprint shadows the earlier entry for
// lookups; both stay in the sequence.
func (c *Cache) Append(e Entry) {
	c.entries = append(c.entries, e)
	c.index[e.Fingerprint] = len(c.entries) - 1
}

// Lookup returns the latest entry stored under fingerprint.
func (c *Cache) Lookup(fingerprint string) (Entry, bool) {
	i, ok := c.index[fingerprint]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Entries returns the entries in append order.
func (c *Cache) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries, shadowed duplicates included.
func (c *Cache) Len() int {
	return len(c.entries)
}

// String serializes the cache as a JSON array in append order.
func (c *Cache) String() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Entry holds only strings and blocks; encoding cannot fail.
	_ = enc.Encode(c.entries)
	return strings.TrimSuffix(buf.String(), "\n")
}
