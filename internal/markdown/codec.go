package markdown

import (
	"regexp"
	"strings"

	"github.com/mfenderov/outliner/internal/frontmatter"
	"github.com/mfenderov/outliner/pkg/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Codec parses markdown into top-level blocks and renders blocks back to text.
//
// A block's Text is its source span: from the first line of the block up to the
// start of the next sibling, with trailing blank space removed. List items are
// rendered in a canonical "- " form so renumbering or a bullet change does not
// alter their text.
type Codec struct {
	md goldmark.Markdown
}

// New creates a Codec with GitHub-flavoured block syntax enabled.
func New() *Codec {
	return &Codec{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Parse splits off the front matter and parses the body into blocks.
func (c *Codec) Parse(src string) (*models.Document, error) {
	raw, body, ok, err := frontmatter.Split(src)
	if err != nil {
		return nil, err
	}
	return &models.Document{
		FrontMatter:    raw,
		HasFrontMatter: ok,
		Body:           body,
		Blocks:         c.Blocks(body),
	}, nil
}

// Blocks parses text (without front matter) into top-level blocks.
func (c *Codec) Blocks(src string) []models.Block {
	source := []byte(src)
	root := c.md.Parser().Parse(text.NewReader(source))
	return splitChildren(source, root, 0, len(source), false)
}

// Serialize renders blocks separated by one blank line, ending with a newline.
func (c *Codec) Serialize(blocks []models.Block) string {
	if len(blocks) == 0 {
		return ""
	}
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// FirstBlock returns the first non-empty block of text.
func (c *Codec) FirstBlock(src string) (models.Block, bool) {
	for _, b := range c.Blocks(src) {
		if strings.TrimSpace(b.Text) != "" {
			return b, true
		}
	}
	return models.Block{}, false
}

// splitChildren cuts src[from:end] into one block per child of parent.
func splitChildren(src []byte, parent ast.Node, from, end int, items bool) []models.Block {
	var nodes []ast.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		nodes = append(nodes, n)
	}

	starts := make([]int, len(nodes))
	cursor := from
	for i, n := range nodes {
		start := nodeStart(src, n, cursor)
		if start < from {
			start = from
		}
		if i > 0 && start < starts[i-1] {
			start = starts[i-1]
		}
		starts[i] = start
		cursor = nodeEnd(src, n, start)
	}

	blocks := make([]models.Block, 0, len(nodes))
	for i, n := range nodes {
		stop := end
		if i+1 < len(nodes) {
			stop = starts[i+1]
		}
		if stop < starts[i] {
			stop = starts[i]
		}

		raw := strings.TrimRight(string(src[starts[i]:stop]), " \t\r\n")
		b := models.Block{Kind: kindOf(n), Text: raw}
		if items {
			b.Kind = models.KindListItem
			b.Text = canonicalItem(raw)
		}
		if n.Kind() == ast.KindList {
			b.Items = splitChildren(src, n, starts[i], stop, true)
		}
		blocks = append(blocks, b)
	}
	return blocks
}

func kindOf(n ast.Node) models.BlockKind {
	switch n.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		return models.KindParagraph
	case ast.KindHeading:
		return models.KindHeading
	case ast.KindList:
		return models.KindList
	case ast.KindListItem:
		return models.KindListItem
	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		return models.KindCode
	case ast.KindBlockquote:
		return models.KindQuote
	case ast.KindThematicBreak:
		return models.KindThematicBreak
	case ast.KindHTMLBlock:
		return models.KindHTML
	default:
		return models.KindOther
	}
}

// segmentBounds returns the smallest start and largest stop of all source
// lines owned by n and its block descendants, including fence and setext
// underline lines the parser keeps no segment for.
func segmentBounds(src []byte, n ast.Node) (first, last int, ok bool) {
	first, last = -1, -1
	include := func(start, stop int) {
		if first < 0 || start < first {
			first = start
		}
		if stop > last {
			last = stop
		}
	}

	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() != ast.TypeBlock {
			return ast.WalkSkipChildren, nil
		}
		switch c := c.(type) {
		case *ast.FencedCodeBlock:
			if open, end, found := fenceLines(src, c); found {
				include(open, end)
			}
		case *ast.Heading:
			if end, found := setextUnderline(src, c); found {
				include(end, end)
			}
		case *ast.HTMLBlock:
			if c.HasClosure() {
				include(c.ClosureLine.Start, c.ClosureLine.Stop)
			}
		}
		lines := c.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			include(seg.Start, seg.Stop)
		}
		return ast.WalkContinue, nil
	})

	return first, last, first >= 0
}

// fenceLines returns the span from the opening fence line through the
// closing fence line. An empty fence without an info string has no
// segments and cannot be located this way.
func fenceLines(src []byte, fc *ast.FencedCodeBlock) (open, end int, ok bool) {
	lines := fc.Lines()
	var last int // an offset on the last owned line
	switch {
	case fc.Info != nil:
		open = lineStart(src, fc.Info.Segment.Start)
		last = open
	case lines.Len() > 0:
		first := lineStart(src, lines.At(0).Start)
		if first == 0 {
			return 0, 0, false
		}
		open = lineStart(src, first-1)
	default:
		return 0, 0, false
	}
	if lines.Len() > 0 {
		last = lineStart(src, lines.At(lines.Len()-1).Start)
	}

	end = lineEnd(src, last)
	if end < len(src) {
		_, openDepth := stripContainer(lineText(src, open))
		rest, depth := stripContainer(lineText(src, end))
		if depth == openDepth && isFence(rest) {
			end = lineEnd(src, end)
		}
	}
	return open, end, true
}

var setextBar = regexp.MustCompile(`^(=+|-+)[ \t]*$`)

// setextUnderline returns the end of the underline line of a setext heading.
func setextUnderline(src []byte, h *ast.Heading) (int, bool) {
	lines := h.Lines()
	if lines.Len() == 0 {
		return 0, false
	}
	first := lines.At(0)
	if strings.Contains(string(src[lineStart(src, first.Start):first.Start]), "#") {
		return 0, false // ATX
	}

	next := lineEnd(src, lines.At(lines.Len()-1).Start)
	if next >= len(src) {
		return 0, false
	}
	rest, _ := stripContainer(lineText(src, next))
	if !setextBar.MatchString(rest) {
		return 0, false
	}
	return lineEnd(src, next), true
}

func nodeStart(src []byte, n ast.Node, cursor int) int {
	if first, _, ok := segmentBounds(src, n); ok {
		return lineStart(src, first)
	}
	switch n.Kind() {
	case ast.KindThematicBreak:
		return scanLine(src, cursor, thematicBreak.MatchString)
	case ast.KindFencedCodeBlock:
		return scanLine(src, cursor, isFence)
	}
	return nextContentLine(src, cursor)
}

func nodeEnd(src []byte, n ast.Node, start int) int {
	if _, last, ok := segmentBounds(src, n); ok && last > start {
		return lineEnd(src, last-1)
	}
	end := lineEnd(src, start)
	if n.Kind() == ast.KindFencedCodeBlock && end < len(src) {
		// empty fence: the closing line follows the opening one
		if rest, _ := stripContainer(lineText(src, end)); isFence(rest) {
			end = lineEnd(src, end)
		}
	}
	return end
}

// lineStart returns the offset of the first byte of the line containing off.
func lineStart(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

// lineEnd returns the offset just past the newline ending the line containing off.
func lineEnd(src []byte, off int) int {
	if off < 0 {
		off = 0
	}
	for off < len(src) {
		if src[off] == '\n' {
			return off + 1
		}
		off++
	}
	return len(src)
}

// lineText returns the line starting at off without its line ending.
func lineText(src []byte, off int) string {
	return strings.TrimRight(string(src[off:lineEnd(src, off)]), "\r\n")
}

// stripContainer drops indentation and blockquote markers, returning the
// rest of the line and the blockquote depth.
func stripContainer(line string) (string, int) {
	depth := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t':
		case '>':
			depth++
		default:
			return line[i:], depth
		}
	}
	return "", depth
}

func nextContentLine(src []byte, from int) int {
	return scanLine(src, from, func(line string) bool { return line != "" })
}

// scanLine returns the start of the first line at or after from whose
// stripped text satisfies match, or the first non-blank line if none does.
func scanLine(src []byte, from int, match func(string) bool) int {
	pos := from
	if pos > len(src) {
		return len(src)
	}
	if pos > 0 && src[pos-1] != '\n' {
		pos = lineEnd(src, pos)
	}

	fallback := -1
	for pos < len(src) {
		rest, _ := stripContainer(lineText(src, pos))
		rest = strings.TrimRight(rest, " \t")
		if rest != "" && fallback < 0 {
			fallback = pos
		}
		if match(rest) {
			return pos
		}
		pos = lineEnd(src, pos)
	}
	if fallback >= 0 {
		return fallback
	}
	return pos
}

var thematicBreak = regexp.MustCompile(`^((\*[ \t]*){3,}|(-[ \t]*){3,}|(_[ \t]*){3,})$`)

func isFence(line string) bool {
	return strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~")
}

// canonicalItem rewrites a raw list item with a "- " marker and a two-space
// continuation indent.
func canonicalItem(raw string) string {
	lines := strings.Split(raw, "\n")
	col := contentColumn(lines[0])

	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(lines[0][col:])
	for _, line := range lines[1:] {
		b.WriteString("\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString("  ")
		b.WriteString(trimIndent(line, col))
	}
	return strings.TrimRight(b.String(), " \t\n")
}

// contentColumn returns the byte offset where a list item's content begins.
func contentColumn(line string) int {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	if i < len(line) && strings.ContainsRune("-*+", rune(line[i])) {
		i++
	} else {
		for i < len(line) && line[i] >= '0' && line[i] <= '9' {
			i++
		}
		if i < len(line) && (line[i] == '.' || line[i] == ')') {
			i++
		}
	}

	n := 0
	for i+n < len(line) && line[i+n] == ' ' {
		n++
	}
	if n > 4 {
		n = 1
	}
	return i + n
}

func trimIndent(line string, width int) string {
	i := 0
	for i < width && i < len(line) && line[i] == ' ' {
		i++
	}
	return line[i:]
}
