package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection if missing. All chunks live in one collection;
// session isolation comes from the mandatory session_id filter clause.
type Storage struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant returns 200 OK if the collection already exists with the same
	// schema; a real conflict propagates.
	return s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

func (s *Storage) Add(ctx context.Context, records []vectorstore.Record, vectors [][]float32) ([]string, error) {
	if len(records) != len(vectors) {
		return nil, errors.New("records and vectors length mismatch")
	}
	ids := make([]string, len(records))
	points := make([]map[string]any, len(records))
	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		ids[i] = id
		points[i] = map[string]any{
			"id":     id,
			"vector": vectors[i],
			"payload": map[string]any{
				"content":  rec.Content,
				"metadata": rec.Metadata,
			},
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection)
	if err := s.putJSON(ctx, url, body); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, k int, filter vectorstore.Filter) ([]vectorstore.ScoredRecord, error) {
	if k <= 0 {
		k = 5
	}
	clauses, err := filterClauses(filter)
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"filter":       map[string]any{"must": clauses},
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}
	results := make([]vectorstore.ScoredRecord, 0, len(resp.Result))
	for _, r := range resp.Result {
		rec := vectorstore.Record{ID: fmt.Sprintf("%v", r.ID), Metadata: map[string]string{}}
		if v, ok := r.Payload["content"].(string); ok {
			rec.Content = v
		}
		if meta, ok := r.Payload["metadata"].(map[string]any); ok {
			for key, value := range meta {
				if str, ok := value.(string); ok {
					rec.Metadata[key] = str
				}
			}
		}
		results = append(results, vectorstore.ScoredRecord{Record: rec, Score: r.Score})
	}
	return results, nil
}

func (s *Storage) Delete(ctx context.Context, filter vectorstore.Filter) error {
	clauses, err := filterClauses(filter)
	if err != nil {
		return err
	}
	body := map[string]any{
		"filter": map[string]any{"must": clauses},
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection)
	return s.postJSON(ctx, url, body, nil)
}

func (s *Storage) Drop(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant DELETE collection failed: %s", resp.Status)
	}
	return nil
}

// filterClauses builds the qdrant must clauses. An empty session id is an
// error, never a wildcard.
func filterClauses(filter vectorstore.Filter) ([]map[string]any, error) {
	if filter.SessionID == "" {
		return nil, errors.New("filter requires a session id")
	}
	clauses := []map[string]any{
		{"key": "metadata.session_id", "match": map[string]any{"value": filter.SessionID}},
	}
	if len(filter.Sources) > 0 {
		clauses = append(clauses, map[string]any{
			"key": "metadata.source", "match": map[string]any{"any": filter.Sources},
		})
	}
	for key, value := range filter.Extra {
		clauses = append(clauses, map[string]any{
			"key": "metadata." + key, "match": map[string]any{"value": value},
		})
	}
	return clauses, nil
}

func (s *Storage) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Storage) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
