package loader

import (
	"testing"

	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
)

func TestTextCarriesProvenance(t *testing.T) {
	docs := Text("hello there", "42")
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	doc := docs[0]
	if doc.Content != "hello there" {
		t.Errorf("content = %q", doc.Content)
	}
	if doc.Metadata[knowledge.MetaSource] != "42" {
		t.Errorf("source = %q", doc.Metadata[knowledge.MetaSource])
	}
	if doc.Metadata[knowledge.MetaSourceType] != knowledge.SourceTypeMessage {
		t.Errorf("source_type = %q", doc.Metadata[knowledge.MetaSourceType])
	}
}

func TestIsURLOnly(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"https://example.com/article", true},
		{"https://example.com/a\nhttp://example.org/b", true},
		{"check this out https://example.com", false},
		{"just some text", false},
		{"", false},
		{"ftp://example.com/file", false},
	}
	for _, tc := range cases {
		if got := IsURLOnly(tc.text); got != tc.want {
			t.Errorf("IsURLOnly(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestYoutubeVideoID(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=abc123", "abc123"},
		{"https://youtu.be/xyz789", "xyz789"},
		{"https://m.youtube.com/watch?v=mob1", "mob1"},
		{"https://example.com/watch?v=abc123", ""},
		{"not a url at all", ""},
	}
	for _, tc := range cases {
		if got := youtubeVideoID(tc.url); got != tc.want {
			t.Errorf("youtubeVideoID(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestParseTimedText(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0" dur="2">Hello &amp; welcome</text>
  <text start="2" dur="3">to the channel</text>
  <text start="5" dur="1">  </text>
</transcript>`)
	got, err := parseTimedText(data)
	if err != nil {
		t.Fatalf("parseTimedText: %v", err)
	}
	if got != "Hello & welcome to the channel" {
		t.Fatalf("unexpected transcript %q", got)
	}
}
