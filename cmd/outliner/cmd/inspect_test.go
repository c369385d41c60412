package cmd

import (
	"bytes"
	"testing"

	"github.com/mfenderov/outliner/internal/memo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintEntries(t *testing.T) {
	t.Run("empty cache", func(t *testing.T) {
		var buf bytes.Buffer
		printEntries(&buf, memo.New())
		assert.Equal(t, "No cached sections.\n", buf.String())
	})

	t.Run("short and full fingerprints", func(t *testing.T) {
		cache, err := memo.Parse(`[
			{"sha1":"ab","md":{"kind":"listItem","text":"- A"},"result":"x"},
			{"sha1":"0123abcdef0123abcdef0123abcdef0123abcdef","md":{"kind":"listItem","text":"- B\n"},"result":"line one\nline two"}
		]`)
		require.NoError(t, err)

		var buf bytes.Buffer
		printEntries(&buf, cache)

		want := "2 cached sections:\n\n" +
			"ab        - A\n" +
			"          x\n\n" +
			"0123abcd  - B\n" +
			"          line one line two\n\n"
		assert.Equal(t, want, buf.String())
	})
}
