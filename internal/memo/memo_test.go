package memo

import (
	"errors"
	"strings"
	"testing"

	"github.com/mfenderov/outliner/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinSerializer mirrors the markdown codec's rendering.
type joinSerializer struct{}

func (joinSerializer) Serialize(blocks []models.Block) string {
	if len(blocks) == 0 {
		return ""
	}
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n\n") + "\n"
}

func item(text string) models.Block {
	return models.Block{Kind: models.KindListItem, Text: text}
}

func TestFingerprint_Deterministic(t *testing.T) {
	s := joinSerializer{}

	// sha1("- A\n")
	const want = "e241383792b215cef351f37ab5b5763eb5ed6093"

	assert.Equal(t, want, Fingerprint(s, item("- A")))
	assert.Equal(t, want, Fingerprint(s, item("- A")))
}

func TestFingerprint_DependsOnRenderedTextOnly(t *testing.T) {
	s := joinSerializer{}

	a := models.Block{Kind: models.KindListItem, Text: "- same"}
	b := models.Block{Kind: models.KindParagraph, Text: "- same"}
	assert.Equal(t, Fingerprint(s, a), Fingerprint(s, b))

	assert.NotEqual(t, Fingerprint(s, item("- A")), Fingerprint(s, item("- A ")))
	assert.NotEqual(t, Fingerprint(s, item("- A")), Fingerprint(s, item("- B")))
}

func TestShortFingerprint(t *testing.T) {
	assert.Equal(t, "0123abcd", ShortFingerprint("0123abcdef0123abcdef0123abcdef0123abcdef"))
	assert.Equal(t, "ab", ShortFingerprint("ab"))
	assert.Equal(t, "", ShortFingerprint(""))
}

func TestCache_AppendAndLookup(t *testing.T) {
	c := New()

	_, ok := c.Lookup("missing")
	assert.False(t, ok)

	c.Append(Entry{Fingerprint: "f1", Source: item("- A"), Result: "gen-A"})
	c.Append(Entry{Fingerprint: "f2", Source: item("- B"), Result: "gen-B"})

	e, ok := c.Lookup("f1")
	require.True(t, ok)
	assert.Equal(t, "gen-A", e.Result)
	assert.Equal(t, "- A", e.Source.Text)
	assert.Equal(t, 2, c.Len())
}

func TestCache_DuplicateFingerprintShadows(t *testing.T) {
	c := New()
	c.Append(Entry{Fingerprint: "f", Result: "first"})
	c.Append(Entry{Fingerprint: "f", Result: "second"})

	e, ok := c.Lookup("f")
	require.True(t, ok)
	assert.Equal(t, "second", e.Result)

	// The sequence keeps both entries.
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "first", c.Entries()[0].Result)
}

func TestCache_RoundTrip(t *testing.T) {
	s := joinSerializer{}
	c := New()
	for _, text := range []string{"- A", "- B <tag> & more", "- C\n  multi-line"} {
		b := item(text)
		c.Append(Entry{Fingerprint: Fingerprint(s, b), Source: b, Result: "gen " + text})
	}

	back, err := Parse(c.String())
	require.NoError(t, err)

	assert.Equal(t, c.Entries(), back.Entries())
	for _, e := range c.Entries() {
		got, ok := back.Lookup(e.Fingerprint)
		require.True(t, ok)
		assert.Equal(t, e, got)
	}
	assert.Equal(t, c.String(), back.String())
}

func TestCache_StringFormat(t *testing.T) {
	assert.Equal(t, "[]", New().String())

	c := New()
	c.Append(Entry{Fingerprint: "abc", Source: item("- <A>"), Result: "r"})
	assert.Equal(t, `[{"sha1":"abc","md":{"kind":"listItem","text":"- <A>"},"result":"r"}]`, c.String())
}

func TestParse_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "tree"},
		{"object instead of array", `{"sha1":"x"}`},
		{"truncated", `[{"sha1":"x",`},
		{"missing fingerprint", `[{"md":{"kind":"listItem","text":"- a"},"result":"r"}]`},
		{"trailing data", `[] []`},
		{"wrong field type", `[{"sha1":1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			require.Error(t, err)

			var corrupt *CorruptStateError
			assert.True(t, errors.As(err, &corrupt))
		})
	}
}

func TestParse_NullIsEmpty(t *testing.T) {
	c, err := Parse("null")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}
