package redis_history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ooocheckitout/llm-knowledge-base/internal/history"
)

// maxStoredTurns caps each session list so an immortal chat cannot grow a
// key without bound. The prompt window is narrower still.
const maxStoredTurns = 200

// Store keeps session histories in redis lists, one key per session, with a
// sliding TTL. Survives process restarts, unlike the in-memory store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(addr, password string, db int, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: rdb, ttl: ttl}
}

func key(sessionID string) string {
	return fmt.Sprintf("history:%s", sessionID)
}

func (s *Store) Recent(ctx context.Context, sessionID string, n int) ([]history.Turn, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	values, err := s.client.LRange(ctx, key(sessionID), start, -1).Result()
	if err != nil {
		return nil, err
	}
	turns := make([]history.Turn, 0, len(values))
	for _, value := range values {
		var turn history.Turn
		if err := json.Unmarshal([]byte(value), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *Store) Append(ctx context.Context, sessionID string, turns ...history.Turn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key(sessionID), values...)
	pipe.LTrim(ctx, key(sessionID), -maxStoredTurns, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key(sessionID), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, key(sessionID)).Err()
}
