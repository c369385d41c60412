package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantRaw  string
		wantBody string
		wantOK   bool
		wantErr  error
	}{
		{
			name:     "front matter and body",
			text:     "---\ntitle: Demo\n---\n# Heading\n",
			wantRaw:  "title: Demo",
			wantBody: "# Heading\n",
			wantOK:   true,
		},
		{
			name:     "no front matter",
			text:     "# Heading\n\ntext\n",
			wantBody: "# Heading\n\ntext\n",
		},
		{
			name:     "empty front matter",
			text:     "---\n---\nbody",
			wantBody: "body",
			wantOK:   true,
		},
		{
			name:     "closing marker at end of file",
			text:     "---\na: 1\n---",
			wantRaw:  "a: 1",
			wantBody: "",
			wantOK:   true,
		},
		{
			name:     "crlf line endings",
			text:     "---\r\na: 1\r\n---\r\nbody",
			wantRaw:  "a: 1",
			wantBody: "body",
			wantOK:   true,
		},
		{
			name:    "unterminated",
			text:    "---\ntitle: Demo\n# Heading\n",
			wantErr: ErrUnterminated,
		},
		{
			name:    "lone marker",
			text:    "---",
			wantErr: ErrUnterminated,
		},
		{
			name:     "empty text",
			text:     "",
			wantBody: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, body, ok, err := Split(tt.text)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRaw, raw)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestJoin_RoundTrip(t *testing.T) {
	text := "---\ntitle: Demo\ntags:\n  - a\n---\n# Heading\n"

	raw, body, ok, err := Split(text)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, text, Join(raw, body))
}

func TestJoin_EmptyRaw(t *testing.T) {
	assert.Equal(t, "---\n---\nbody", Join("", "body"))
}

func TestMetadata_SetPreservesKeyOrder(t *testing.T) {
	m, err := Parse("title: Demo\nauthor: someone\n")
	require.NoError(t, err)

	m.SetString("tree", "[]")
	m.SetString("title", "Renamed")

	out, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, "title: Renamed\nauthor: someone\ntree: '[]'", out)
}

func TestMetadata_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "  \n", "null"} {
		m, err := Parse(raw)
		require.NoError(t, err, "raw=%q", raw)
		_, ok, err := m.GetString("tree")
		require.NoError(t, err)
		assert.False(t, ok)

		out, err := m.Encode()
		require.NoError(t, err)
		assert.Empty(t, out)
	}
}

func TestMetadata_RejectsNonMapping(t *testing.T) {
	_, err := Parse("- a\n- b\n")
	assert.Error(t, err)

	_, err = Parse("title: [unclosed")
	assert.Error(t, err)
}

func TestMetadata_GetString(t *testing.T) {
	m, err := Parse("tree: '[{\"sha1\":\"x\"}]'\nlist:\n  - sha1: y\n    result: r\nempty:\n")
	require.NoError(t, err)

	v, ok, err := m.GetString("tree")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"sha1":"x"}]`, v)

	v, ok, err = m.GetString("list")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"sha1":"y","result":"r"}]`, v)

	_, ok, err = m.GetString("empty")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.GetString("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMetadata_StringValueSurvivesEncode(t *testing.T) {
	long := `[{"sha1":"abc","md":{"kind":"listItem","text":"- a: b # not a comment"},"result":"It's \"quoted\"\nand multi-line."}]`

	m, err := Parse("title: Demo")
	require.NoError(t, err)
	m.SetString("tree", long)

	raw, err := m.Encode()
	require.NoError(t, err)

	back, err := Parse(raw)
	require.NoError(t, err)
	v, ok, err := back.GetString("tree")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, long, v)
}
