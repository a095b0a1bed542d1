package rag

import (
	"fmt"
	"sort"

	"github.com/blevesearch/bleve"

	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
)

const rrfK = 60 // reciprocal-rank-fusion constant

// rerank fuses the vector ranking with a BM25 ranking over the same
// candidates. The candidates are indexed into a transient in-memory bleve
// index per query; candidate sets are small so this stays cheap.
func rerank(query string, candidates []vectorstore.ScoredRecord, k int) ([]vectorstore.ScoredRecord, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to build rerank index: %w", err)
	}
	defer index.Close()

	byID := make(map[string]vectorstore.ScoredRecord, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
		if err := index.Index(c.ID, map[string]string{"content": c.Content}); err != nil {
			return nil, fmt.Errorf("failed to index candidate: %w", err)
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), len(candidates), 0, false)
	res, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bm25 search failed: %w", err)
	}

	bmRanks := make(map[string]int, len(res.Hits))
	for i, hit := range res.Hits {
		bmRanks[hit.ID] = i + 1
	}

	fusedScores := make(map[string]float64, len(candidates))
	for i, c := range candidates {
		fusedScores[c.ID] = 1.0 / float64(rrfK+i+1)
		if rank, ok := bmRanks[c.ID]; ok {
			fusedScores[c.ID] += 1.0 / float64(rrfK+rank)
		}
	}

	fused := make([]vectorstore.ScoredRecord, 0, len(candidates))
	for id, score := range fusedScores {
		rec := byID[id]
		rec.Score = score
		fused = append(fused, rec)
	}
	sort.Slice(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}
