package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBlock_JSONFieldNames(t *testing.T) {
	b := Block{
		Kind: KindList,
		Text: "- a\n- b",
		Items: []Block{
			{Kind: KindListItem, Text: "- a"},
			{Kind: KindListItem, Text: "- b"},
		},
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	jsonStr := string(data)
	for _, field := range []string{`"kind"`, `"text"`, `"items"`} {
		if !strings.Contains(jsonStr, field) {
			t.Errorf("JSON should contain field %s, got: %s", field, jsonStr)
		}
	}
}

func TestBlock_ItemsOmittedForLeaves(t *testing.T) {
	data, err := json.Marshal(Block{Kind: KindParagraph, Text: "hello"})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "items") {
		t.Errorf("leaf block should omit items, got: %s", data)
	}
}

func TestBlock_IsList(t *testing.T) {
	tests := []struct {
		kind BlockKind
		want bool
	}{
		{KindList, true},
		{KindListItem, false},
		{KindParagraph, false},
		{KindHeading, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := (Block{Kind: tt.kind}).IsList(); got != tt.want {
				t.Errorf("IsList() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateSectionID(t *testing.T) {
	tests := []struct {
		name        string
		document    string
		fingerprint string
	}{
		{"simple", "notes.outline", "0beec7b5ea3f0fdbc95d0dd47f3c5bc275da8a33"},
		{"nested path", "drafts/essay.outline", "62cdb7020ff920e5aa642c3d4066950dd1f01f4d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := GenerateSectionID(tt.document, tt.fingerprint)

			if len(id) != 16 {
				t.Errorf("ID length = %d, want 16", len(id))
			}
			if id != GenerateSectionID(tt.document, tt.fingerprint) {
				t.Error("same inputs should produce same ID")
			}
		})
	}

	if GenerateSectionID("a.outline", "x") == GenerateSectionID("b.outline", "x") {
		t.Error("different documents should produce different IDs")
	}
}
