package vectorstore

import "context"

// Record is one stored chunk: content plus provenance metadata.
type Record struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// ScoredRecord is a search hit with its similarity score.
type ScoredRecord struct {
	Record
	Score float64
}

// Filter narrows deletes and searches. SessionID is mandatory for both so a
// session can never touch another session's data; Sources matches any of the
// listed source ids; Extra adds exact-match metadata clauses.
type Filter struct {
	SessionID string
	Sources   []string
	Extra     map[string]string
}

// Store is the vector similarity index. Add does not embed; callers pass
// vectors aligned with records.
type Store interface {
	EnsureCollection(ctx context.Context, dimension int) error
	Add(ctx context.Context, records []Record, vectors [][]float32) ([]string, error)
	Search(ctx context.Context, vector []float32, k int, filter Filter) ([]ScoredRecord, error)
	Delete(ctx context.Context, filter Filter) error
	Drop(ctx context.Context) error
}
