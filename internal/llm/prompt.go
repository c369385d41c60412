package llm

import (
	"fmt"
	"strings"
)

// BuildPrompt asks for the single paragraph that expands outline, written to
// follow on from prior (the document assembled so far).
func BuildPrompt(prior, outline string) string {
	return fmt.Sprintf(`You are a writer and proofreader. Write the next paragraph of a document from its outline item and the text written so far.

## Instructions

- Return only the paragraph for the outline item, no headings or commentary
- Keep it consistent with the text so far and do not repeat it
- Write clearly and concisely
- Use the same language as the outline item

## Text so far

%s

## Outline item

%s
`, fence(prior), fence(outline))
}

// fence wraps text in a code fence longer than any backtick run inside it.
func fence(text string) string {
	longest, run := 0, 0
	for _, r := range text {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	marker := strings.Repeat("`", max(3, longest+1))
	return marker + "\n" + strings.TrimRight(text, "\n") + "\n" + marker
}
