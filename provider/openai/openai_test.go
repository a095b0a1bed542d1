package openai_provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello back"}}]}`))
	}))
	defer srv.Close()

	chat := NewChat(srv.URL, "secret", "gpt-4o-mini", 0.2, 256, 5*time.Second)
	answer, err := chat.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "hello back" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if got["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v", got["model"])
	}
	messages := got["messages"].([]any)
	if len(messages) != 1 || messages[0].(map[string]any)["content"] != "hello" {
		t.Errorf("unexpected messages: %v", messages)
	}
}

func TestChatCompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	chat := NewChat(srv.URL, "secret", "gpt-4o-mini", 0, 0, 5*time.Second)
	if _, err := chat.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestEmbedPreservesOrderByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// Out-of-order data entries must still land at their index.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	}))
	defer srv.Close()

	emb := NewEmbedding(srv.URL, "secret", "text-embedding-3-small", 5*time.Second)
	vecs, err := emb.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][0] != 2 {
		t.Fatalf("unexpected vectors: %v", vecs)
	}
}
