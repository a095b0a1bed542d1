package huggingface_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api-inference.huggingface.co"

// Embedding calls the hosted feature-extraction pipeline for
// sentence-transformers style models. Hugging Face only serves embeddings
// here; chat stays with ollama or openai.
type Embedding struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewEmbedding creates a Hugging Face inference API embedding client.
func NewEmbedding(baseURL, apiKey, model string, timeout time.Duration) *Embedding {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Embedding{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e *Embedding) Model() string { return e.model }

func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	requestBody := map[string]interface{}{
		"inputs": texts,
		"options": map[string]bool{
			"wait_for_model": true,
		},
	}
	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/pipeline/feature-extraction/%s", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vecs))
	}
	return vecs, nil
}
