package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ooocheckitout/llm-knowledge-base/internal/chunker"
	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
	"github.com/ooocheckitout/llm-knowledge-base/provider"
)

// ErrEmptyContent rejects ingestion requests whose documents carry no text.
// Nothing is written to the store when it is returned.
var ErrEmptyContent = errors.New("no content to remember")

// Pipeline turns raw documents into embedded chunks in the vector store.
// Re-ingesting a source replaces all chunks previously stored under the same
// source within the session, so ingestion is idempotent per source.
type Pipeline struct {
	splitter *chunker.Splitter
	embedder provider.Embedding
	store    vectorstore.Store
	logger   *log.Logger
}

func NewPipeline(splitter *chunker.Splitter, embedder provider.Embedding, store vectorstore.Store, logger *log.Logger) *Pipeline {
	return &Pipeline{splitter: splitter, embedder: embedder, store: store, logger: logger}
}

// Ingest stores documents under the session. Every document must carry a
// source and source_type; documents without text fail the whole batch before
// any store mutation. Returns the ids of the stored chunks.
func (p *Pipeline) Ingest(ctx context.Context, sessionID string, docs []knowledge.Document) ([]string, error) {
	if sessionID == "" {
		return nil, errors.New("session id is required")
	}

	sources := make([]string, 0, len(docs))
	for i := range docs {
		doc := &docs[i]
		if strings.TrimSpace(doc.Content) == "" {
			return nil, ErrEmptyContent
		}
		if doc.Metadata[knowledge.MetaSource] == "" || doc.Metadata[knowledge.MetaSourceType] == "" {
			return nil, fmt.Errorf("document %d is missing source provenance", i)
		}
		// The hash covers the whole source text, computed before splitting,
		// so all chunks of one source share it.
		doc.Metadata[knowledge.MetaHash] = knowledge.HashContent(doc.Content)
		sources = append(sources, doc.Metadata[knowledge.MetaSource])
	}
	if len(docs) == 0 {
		return nil, ErrEmptyContent
	}

	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}

	ingestedOn := time.Now().UTC().Format(time.RFC3339)
	texts := make([]string, len(chunks))
	records := make([]vectorstore.Record, len(chunks))
	for i, chunk := range chunks {
		meta := chunk.Metadata
		meta[knowledge.MetaSessionID] = sessionID
		meta[knowledge.MetaIngestedOn] = ingestedOn
		meta[knowledge.MetaLanguage] = knowledge.DetectLanguage(p.logger, chunk.Content)
		texts[i] = chunk.Content
		records[i] = vectorstore.Record{Content: chunk.Content, Metadata: meta}
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	// Delete-then-insert keeps re-ingestion of the same source idempotent.
	if err := p.store.Delete(ctx, vectorstore.Filter{SessionID: sessionID, Sources: sources}); err != nil {
		return nil, fmt.Errorf("failed to replace previous chunks: %w", err)
	}
	ids, err := p.store.Add(ctx, records, vectors)
	if err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	p.logger.Printf("ingested %d documents as %d chunks for session %s", len(docs), len(chunks), sessionID)
	return ids, nil
}

// Delete removes chunks matching the filter. The filter must carry the
// session id, the store enforces it.
func (p *Pipeline) Delete(ctx context.Context, filter vectorstore.Filter) error {
	return p.store.Delete(ctx, filter)
}

// Forget removes every chunk stored under the given sources in the session.
func (p *Pipeline) Forget(ctx context.Context, sessionID string, sources []string) error {
	if len(sources) == 0 {
		return errors.New("no sources to forget")
	}
	return p.store.Delete(ctx, vectorstore.Filter{SessionID: sessionID, Sources: sources})
}

// ForgetAll removes every chunk belonging to the session.
func (p *Pipeline) ForgetAll(ctx context.Context, sessionID string) error {
	return p.store.Delete(ctx, vectorstore.Filter{SessionID: sessionID})
}
