package embedcache

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gorhill/cronexpr"
)

// Janitor prunes cache entries past the retention window on a cron schedule.
type Janitor struct {
	dir       string
	schedule  *cronexpr.Expression
	retention time.Duration
	logger    *log.Logger
}

// NewJanitor parses the cron expression and returns the janitor. An empty
// schedule disables pruning and returns nil.
func NewJanitor(dir, schedule string, retention time.Duration, logger *log.Logger) (*Janitor, error) {
	if schedule == "" {
		return nil, nil
	}
	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return nil, err
	}
	return &Janitor{dir: dir, schedule: expr, retention: retention, logger: logger}, nil
}

// Run blocks until ctx is cancelled, pruning at each scheduled tick.
func (j *Janitor) Run(ctx context.Context) {
	for {
		next := j.schedule.Next(time.Now())
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			if n, err := j.Prune(time.Now().Add(-j.retention)); err != nil {
				j.logger.Printf("prune failed: %v", err)
			} else if n > 0 {
				j.logger.Printf("pruned %d cached embeddings", n)
			}
		}
	}
}

// Prune removes cache files whose modification time is before cutoff.
func (j *Janitor) Prune(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(j.dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
