package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ooocheckitout/llm-knowledge-base/provider"
)

// Cache is a content-addressed file cache wrapped around an embedding
// provider. Identical text for the same model is embedded once; repeated
// ingestions and queries hit the disk instead of the model.
type Cache struct {
	inner  provider.Embedding
	dir    string
	logger *log.Logger
}

// New creates the cache directory if missing and returns the wrapper.
func New(inner provider.Embedding, dir string, logger *log.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Cache{inner: inner, dir: dir, logger: logger}, nil
}

func (c *Cache) Model() string { return c.inner.Model() }

// Embed returns cached vectors where available and embeds the misses in a
// single batch through the wrapped provider.
func (c *Cache) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vecs := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := c.read(c.key(text)); ok {
			vecs[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return vecs, nil
	}

	c.logger.Printf("embedding %d texts (%d cached)", len(missing), len(texts)-len(missing))
	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(fresh))
	}
	for j, vec := range fresh {
		vecs[missingIdx[j]] = vec
		if err := c.write(c.key(missing[j]), vec); err != nil {
			// Cache writes are advisory, the vector is already in hand.
			c.logger.Printf("failed to cache embedding: %v", err)
		}
	}
	return vecs, nil
}

// key namespaces entries by model so switching models never serves stale
// vectors of the wrong dimension.
func (c *Cache) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.Model() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) read(key string) ([]float32, bool) {
	data, err := os.ReadFile(filepath.Join(c.dir, key+".json"))
	if err != nil {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func (c *Cache) write(key string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, key+".json"), data, 0o644)
}
