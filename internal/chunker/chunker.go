package chunker

import (
	"strings"

	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
)

// Telegram has a maximum message length of 4096 characters. A token is around
// 4 characters, so 1024-character windows leave room for a dozen snippets
// plus the user prompt inside a 4096-token context window.
const (
	DefaultChunkSize = 1024
	DefaultOverlap   = 100
)

// defaultSeparators are tried in order, so paragraph and sentence boundaries
// win over raw character cuts.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter splits documents into overlapping windows of bounded size.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	separators []string
}

// NewSplitter returns a recursive character splitter. Zero values fall back
// to the defaults.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap, separators: defaultSeparators}
}

// Split chunks every document, copying the parent metadata onto each chunk.
// Empty documents produce no chunks.
func (s *Splitter) Split(documents []knowledge.Document) []knowledge.Document {
	var out []knowledge.Document
	for _, doc := range documents {
		for _, part := range s.splitText(doc.Content) {
			out = append(out, knowledge.Document{Content: part, Metadata: doc.CloneMetadata()})
		}
	}
	return out
}

func (s *Splitter) splitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= s.ChunkSize {
		return []string{text}
	}
	pieces := s.recursiveSplit(text, 0)
	return s.merge(pieces)
}

// recursiveSplit breaks text on the coarsest separator that appears, then
// recurses into any piece that is still too large.
func (s *Splitter) recursiveSplit(text string, level int) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}
	// The hard fallback leaves room for the overlap carried into each window.
	if level >= len(s.separators) {
		return hardSplit(text, s.ChunkSize-s.Overlap)
	}
	sep := s.separators[level]
	if sep == "" {
		return hardSplit(text, s.ChunkSize-s.Overlap)
	}
	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return s.recursiveSplit(text, level+1)
	}
	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(part) > s.ChunkSize {
			out = append(out, s.recursiveSplit(part, level+1)...)
		} else {
			out = append(out, part)
		}
	}
	return out
}

// merge greedily packs pieces into windows up to ChunkSize, carrying the
// trailing Overlap characters of each window into the next one.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	current := ""
	seeded := 0 // carried overlap length, never emitted on its own
	for _, piece := range pieces {
		if current != "" && len(current)+len(piece) > s.ChunkSize {
			if len(current) > seeded {
				chunks = append(chunks, current)
				if s.Overlap > 0 && len(current) > s.Overlap {
					current = current[len(current)-s.Overlap:]
					seeded = len(current)
				} else {
					current = ""
					seeded = 0
				}
			}
			if seeded > 0 && seeded+len(piece) > s.ChunkSize {
				current = ""
				seeded = 0
			}
		}
		current += piece
	}
	if len(current) > seeded && strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func hardSplit(text string, size int) []string {
	var out []string
	for start := 0; start < len(text); start += size {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
	}
	return out
}
