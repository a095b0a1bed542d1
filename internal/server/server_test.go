package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ooocheckitout/llm-knowledge-base/internal/chunker"
	"github.com/ooocheckitout/llm-knowledge-base/internal/history/inmemory"
	"github.com/ooocheckitout/llm-knowledge-base/internal/ingest"
	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
	"github.com/ooocheckitout/llm-knowledge-base/internal/rag"
	"github.com/ooocheckitout/llm-knowledge-base/internal/telemetry"
	"github.com/ooocheckitout/llm-knowledge-base/internal/vectorstore"
)

// Collectors register against the default prometheus registry, once per
// process.
var testMetrics = telemetry.NewMetrics()

type fakeChat struct{ answer string }

func (f *fakeChat) Complete(context.Context, string) (string, error) { return f.answer, nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Model() string { return "fake" }

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1}
	}
	return vecs, nil
}

type fakeStore struct {
	records map[string][]vectorstore.Record
	deletes []vectorstore.Filter
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string][]vectorstore.Record)}
}

func (f *fakeStore) EnsureCollection(context.Context, int) error { return nil }

func (f *fakeStore) Add(_ context.Context, records []vectorstore.Record, _ [][]float32) ([]string, error) {
	ids := make([]string, len(records))
	for i, rec := range records {
		session := rec.Metadata[knowledge.MetaSessionID]
		f.records[session] = append(f.records[session], rec)
		ids[i] = "id-1"
	}
	return ids, nil
}

func (f *fakeStore) Search(_ context.Context, _ []float32, _ int, filter vectorstore.Filter) ([]vectorstore.ScoredRecord, error) {
	var hits []vectorstore.ScoredRecord
	for _, rec := range f.records[filter.SessionID] {
		hits = append(hits, vectorstore.ScoredRecord{Record: rec, Score: 1})
	}
	return hits, nil
}

func (f *fakeStore) Delete(_ context.Context, filter vectorstore.Filter) error {
	f.deletes = append(f.deletes, filter)
	if len(filter.Sources) == 0 && len(filter.Extra) == 0 {
		delete(f.records, filter.SessionID)
	}
	return nil
}

func (f *fakeStore) Drop(context.Context) error { return nil }

func newTestServer(store *fakeStore) *httptest.Server {
	logger := log.New(io.Discard, "", 0)
	ingestPipeline := ingest.NewPipeline(chunker.NewSplitter(0, 0), fakeEmbedder{}, store, logger)
	ragPipeline := rag.NewPipeline(&fakeChat{answer: "the answer"}, fakeEmbedder{}, store, inmemory.NewStore(), rag.Options{}, logger)
	srv := New(ingestPipeline, ragPipeline, testMetrics, logger)
	return httptest.NewServer(srv.Echo())
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestRememberThenComplete(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/users/1/chats/2/remember",
		`[{"content": "Oleh lives in Kyiv.", "metadata": {"source": "10", "source_type": "message"}}]`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remember status %d", resp.StatusCode)
	}
	var ids []map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		t.Fatalf("decode ids: %v", err)
	}
	if len(ids) == 0 || ids[0]["id"] == "" {
		t.Fatalf("expected chunk ids, got %v", ids)
	}

	resp = postJSON(t, ts.URL+"/users/1/chats/2/complete", `{"question": "Where does Oleh live?"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status %d", resp.StatusCode)
	}
	var completion map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		t.Fatalf("decode completion: %v", err)
	}
	if completion["answer"] != "the answer" {
		t.Fatalf("unexpected answer %q", completion["answer"])
	}
}

func TestRememberEmptyContentReturns400(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/users/1/chats/2/remember",
		`[{"content": "", "metadata": {"source": "10", "source_type": "message"}}]`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] == "" {
		t.Fatal("expected error message in body")
	}
	if len(store.records) != 0 {
		t.Fatal("empty ingestion must not touch the store")
	}
}

func TestSimilarityScopedToSession(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/users/1/chats/2/remember",
		`[{"content": "facts about cats", "metadata": {"source": "10", "source_type": "message"}}]`)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/users/9/chats/9/similarity", `{"query": "cats", "n_results": 5}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("similarity status %d", resp.StatusCode)
	}
	var hits []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		t.Fatalf("decode hits: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("foreign session must see no documents, got %v", hits)
	}
}

func TestForgetBySource(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/users/1/chats/2/forget", `{"filter": {"source": "10"}}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	last := store.deletes[len(store.deletes)-1]
	if last.SessionID != "1-2" || len(last.Sources) != 1 || last.Sources[0] != "10" {
		t.Fatalf("unexpected delete filter: %+v", last)
	}
}

func TestForgetAll(t *testing.T) {
	store := newFakeStore()
	ts := newTestServer(store)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/users/1/chats/2/remember",
		`[{"content": "something", "metadata": {"source": "10", "source_type": "message"}}]`)
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/users/1/chats/2/forgetAll", ``)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if len(store.records["1-2"]) != 0 {
		t.Fatal("session records not removed")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(newFakeStore())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}
