package knowledge

import (
	"io"
	"log"
	"testing"
)

func TestSessionID(t *testing.T) {
	if got := SessionID("7", "42"); got != "7-42" {
		t.Fatalf("SessionID = %q", got)
	}
}

func TestHashContentIsStable(t *testing.T) {
	a := HashContent("same text")
	b := HashContent("same text")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if a == HashContent("other text") {
		t.Fatal("different texts must not collide")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}

func TestDetectLanguage(t *testing.T) {
	logger := log.New(io.Discard, "", 0)

	if got := DetectLanguage(logger, "The quick brown fox jumps over the lazy dog and keeps running."); got != "en" {
		t.Errorf("english text detected as %q", got)
	}
	if got := DetectLanguage(logger, ""); got != LanguageUnknown {
		t.Errorf("empty text detected as %q", got)
	}
}

func TestNewDocumentCopiesMetadata(t *testing.T) {
	meta := map[string]string{MetaSource: "10"}
	doc := NewDocument("text", meta)
	meta[MetaSource] = "changed"
	if doc.Metadata[MetaSource] != "10" {
		t.Fatal("document metadata must not alias the input map")
	}
}
