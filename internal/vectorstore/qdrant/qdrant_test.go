package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
)

func newTestStorage(t *testing.T, handler http.HandlerFunc) *Storage {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL, Collection: "knowledge"})
}

func TestSearchSendsSessionFilter(t *testing.T) {
	var got map[string]any
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[{"id":"p1","score":0.9,"payload":{"content":"hello","metadata":{"session_id":"1-2","source":"10"}}}]}`))
	})

	hits, err := storage.Search(context.Background(), []float32{0.1, 0.2}, 3, vectorstore.Filter{SessionID: "1-2"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Content != "hello" || hits[0].Metadata["source"] != "10" {
		t.Fatalf("unexpected hits: %+v", hits)
	}

	filter := got["filter"].(map[string]any)
	must := filter["must"].([]any)
	if len(must) != 1 {
		t.Fatalf("expected 1 must clause, got %d", len(must))
	}
	clause := must[0].(map[string]any)
	if clause["key"] != "metadata.session_id" {
		t.Fatalf("wrong filter key: %v", clause["key"])
	}
	if clause["match"].(map[string]any)["value"] != "1-2" {
		t.Fatalf("wrong filter value: %v", clause["match"])
	}
}

func TestSearchRequiresSessionID(t *testing.T) {
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty session filter")
	})
	if _, err := storage.Search(context.Background(), []float32{0.1}, 3, vectorstore.Filter{}); err == nil {
		t.Fatal("expected error for missing session id")
	}
}

func TestDeleteBySources(t *testing.T) {
	var got map[string]any
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge/points/delete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	err := storage.Delete(context.Background(), vectorstore.Filter{SessionID: "1-2", Sources: []string{"10", "11"}})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	must := got["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("expected 2 must clauses, got %d", len(must))
	}
	sources := must[1].(map[string]any)
	if sources["key"] != "metadata.source" {
		t.Fatalf("wrong source clause key: %v", sources["key"])
	}
	anyList := sources["match"].(map[string]any)["any"].([]any)
	if len(anyList) != 2 || anyList[0] != "10" {
		t.Fatalf("wrong source list: %v", anyList)
	}
}

func TestAddAssignsIDsAndPayload(t *testing.T) {
	var got map[string]any
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	records := []vectorstore.Record{
		{Content: "chunk one", Metadata: map[string]string{"session_id": "1-2", "source": "10"}},
	}
	ids, err := storage.Add(context.Background(), records, [][]float32{{0.1, 0.2}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(ids) != 1 || ids[0] == "" {
		t.Fatalf("expected generated id, got %v", ids)
	}
	points := got["points"].([]any)
	payload := points[0].(map[string]any)["payload"].(map[string]any)
	if payload["content"] != "chunk one" {
		t.Fatalf("wrong payload content: %v", payload)
	}
	meta := payload["metadata"].(map[string]any)
	if meta["session_id"] != "1-2" {
		t.Fatalf("wrong payload metadata: %v", meta)
	}
}

func TestAddLengthMismatch(t *testing.T) {
	storage := newTestStorage(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := storage.Add(context.Background(), []vectorstore.Record{{Content: "x"}}, nil)
	if err == nil {
		t.Fatal("expected length mismatch error")
	}
}
