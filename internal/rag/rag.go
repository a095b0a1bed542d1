package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/ooocheckitout/llm-knowledge-base/internal/history"
	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
	"github.com/ooocheckitout/llm-knowledge-base/provider"
)

// missingContext is the fixed fallback rendered when retrieval finds nothing
// for the session.
const missingContext = `No context is available. Try adding more information to @lileg_db_bot.`

const promptTemplate = `
User Query:
"%s"

Retrieved Context:
%s

Conversation History:
%s

Response Instruction:
"Use the retrieved data to generate an accurate and contextually relevant response.
Prioritize retrieved information over general knowledge.
If multiple sources provide similar information, summarize and cite all relevant sources.
If conflicting information appears, present all perspectives naturally.
If no relevant data is found, acknowledge this and either request clarification or generate a response based on general knowledge.
Use three sentences maximum and keep the response concise, factual, and structured."

Response:
`

// Options tunes the completion pipeline.
type Options struct {
	TopK       int
	Rerank     bool
	Candidates int // vector candidates fetched when reranking
	MaxTurns   int // history turns rendered into the prompt
}

// Pipeline answers questions over the session's knowledge with retrieval
// augmentation and rolling conversation history.
type Pipeline struct {
	chat     provider.Chat
	embedder provider.Embedding
	store    vectorstore.Store
	history  history.Store
	opts     Options
	logger   *log.Logger
}

func NewPipeline(chat provider.Chat, embedder provider.Embedding, store vectorstore.Store, hist history.Store, opts Options, logger *log.Logger) *Pipeline {
	if opts.TopK <= 0 {
		opts.TopK = 12
	}
	if opts.Candidates <= 0 {
		opts.Candidates = 25
	}
	if opts.Candidates < opts.TopK {
		opts.Candidates = opts.TopK
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 20
	}
	return &Pipeline{chat: chat, embedder: embedder, store: store, history: hist, opts: opts, logger: logger}
}

// Complete answers the question for the session and records both turns in
// the history. The history is only updated after a successful completion.
func (p *Pipeline) Complete(ctx context.Context, sessionID, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("question is empty")
	}

	turns, err := p.history.Recent(ctx, sessionID, p.opts.MaxTurns)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}

	hits, err := p.retrieve(ctx, sessionID, question, p.opts.TopK, nil)
	if err != nil {
		return "", err
	}
	p.logger.Printf("retrieved %d chunks for session %s", len(hits), sessionID)

	prompt := fmt.Sprintf(promptTemplate, question, renderContext(hits), renderHistory(turns))

	answer, err := p.chat.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	err = p.history.Append(ctx, sessionID,
		history.Turn{Role: history.RoleUser, Content: question},
		history.Turn{Role: history.RoleAssistant, Content: answer},
	)
	if err != nil {
		return "", fmt.Errorf("failed to save history: %w", err)
	}
	return answer, nil
}

// Similarity runs a plain retrieval without the LLM, for the /similarity
// route and the bot's raw search.
func (p *Pipeline) Similarity(ctx context.Context, sessionID, query string, k int, extra map[string]string) ([]vectorstore.ScoredRecord, error) {
	if k <= 0 {
		k = p.opts.TopK
	}
	return p.retrieve(ctx, sessionID, query, k, extra)
}

func (p *Pipeline) retrieve(ctx context.Context, sessionID, query string, k int, extra map[string]string) ([]vectorstore.ScoredRecord, error) {
	vecs, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vecs))
	}

	filter := vectorstore.Filter{SessionID: sessionID, Extra: extra}
	limit := k
	if p.opts.Rerank {
		limit = p.opts.Candidates
	}
	hits, err := p.store.Search(ctx, vecs[0], limit, filter)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	if !p.opts.Rerank || len(hits) <= k {
		if len(hits) > k {
			hits = hits[:k]
		}
		return hits, nil
	}

	fused, err := rerank(query, hits, k)
	if err != nil {
		// Reranking is an accuracy refinement; the vector order is fine.
		p.logger.Printf("rerank failed, keeping vector order: %v", err)
		return hits[:k], nil
	}
	return fused, nil
}

func renderContext(hits []vectorstore.ScoredRecord) string {
	if len(hits) == 0 {
		return missingContext
	}
	blocks := make([]string, len(hits))
	for i, hit := range hits {
		blocks[i] = fmt.Sprintf("The source for the following context is %s %s:\n%q",
			hit.Metadata[knowledge.MetaSourceType], hit.Metadata[knowledge.MetaSource], hit.Content)
	}
	return strings.Join(blocks, "\n")
}

func renderHistory(turns []history.Turn) string {
	lines := make([]string, len(turns))
	for i, turn := range turns {
		lines[i] = fmt.Sprintf("%s: %q", turn.Role, turn.Content)
	}
	return strings.Join(lines, "\n")
}
