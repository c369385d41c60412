package frontmatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const marker = "---"

// ErrUnterminated is returned when a document opens a front-matter block
// but never closes it, so the start of the content cannot be located.
var ErrUnterminated = errors.New("front matter is not terminated")

// Split separates the raw front matter from the body.
// ok is false when text does not start with a front-matter marker; body is then the whole text.
func Split(text string) (raw, body string, ok bool, err error) {
	first, rest, found := strings.Cut(text, "\n")
	if strings.TrimRight(first, " \t\r") != marker || !found {
		if strings.TrimRight(first, " \t\r") == marker && !found {
			return "", "", false, ErrUnterminated
		}
		return "", text, false, nil
	}

	var lines []string
	for {
		line, next, more := strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t\r") == marker {
			return strings.Join(lines, "\n"), next, true, nil
		}
		if !more {
			return "", "", false, ErrUnterminated
		}
		lines = append(lines, strings.TrimSuffix(line, "\r"))
		rest = next
	}
}

// Join renders raw front matter and body back into one document.
func Join(raw, body string) string {
	if raw == "" {
		return marker + "\n" + marker + "\n" + body
	}
	return marker + "\n" + strings.TrimRight(raw, "\n") + "\n" + marker + "\n" + body
}

// Metadata is decoded front matter. It keeps the YAML node tree so key order
// and comments survive a rewrite.
type Metadata struct {
	doc yaml.Node
}

// Parse decodes raw front matter. Empty input yields empty metadata.
func Parse(raw string) (*Metadata, error) {
	m := &Metadata{}
	if strings.TrimSpace(raw) != "" {
		if err := yaml.Unmarshal([]byte(raw), &m.doc); err != nil {
			return nil, fmt.Errorf("failed to parse front matter: %w", err)
		}
	}

	switch {
	case m.doc.Kind == 0:
		m.doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	case len(m.doc.Content) == 0:
		m.doc.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	case m.doc.Content[0].Kind == yaml.ScalarNode && m.doc.Content[0].Tag == "!!null":
		m.doc.Content[0] = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	case m.doc.Content[0].Kind != yaml.MappingNode:
		return nil, fmt.Errorf("front matter must be a mapping, got %s", kindName(m.doc.Content[0].Kind))
	}

	return m, nil
}

func (m *Metadata) mapping() *yaml.Node {
	return m.doc.Content[0]
}

func (m *Metadata) value(key string) *yaml.Node {
	content := m.mapping().Content
	for i := 0; i+1 < len(content); i += 2 {
		if content[i].Value == key {
			return content[i+1]
		}
	}
	return nil
}

// GetString returns a top-level value as text.
// Scalars are returned as-is; sequences and mappings are re-encoded as JSON.
// ok is false when the key is absent or null.
func (m *Metadata) GetString(key string) (string, bool, error) {
	node := m.value(key)
	if node == nil || node.Tag == "!!null" {
		return "", false, nil
	}
	if node.Kind == yaml.ScalarNode {
		return node.Value, true, nil
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return "", false, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", false, fmt.Errorf("failed to re-encode %q: %w", key, err)
	}
	return string(data), true, nil
}

// SetString stores a string value, replacing an existing key in place or appending a new one.
func (m *Metadata) SetString(key, value string) {
	node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
	mapping := m.mapping()
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = node
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		node,
	)
}

// Encode renders the metadata as raw front matter (no markers, no trailing newline).
func (m *Metadata) Encode() (string, error) {
	if len(m.mapping().Content) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&m.doc); err != nil {
		return "", fmt.Errorf("failed to encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode front matter: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
