package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Feedback types saved from the Good/Bad response buttons.
const (
	FeedbackGood = "good"
	FeedbackBad  = "bad"
)

// Store persists answer feedback in postgres. The vector data lives in
// qdrant; postgres only holds who reviewed which answer.
type Store struct {
	DB *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

// Review is one Good/Bad vote on an answered message.
type Review struct {
	UserID       int64
	UserName     string
	MessageID    int64
	FeedbackType string
}

// SaveReview records a vote. The user and message rows are upserted first so
// a vote from a user seen for the first time still lands.
func (s *Store) SaveReview(ctx context.Context, review Review) error {
	if review.FeedbackType != FeedbackGood && review.FeedbackType != FeedbackBad {
		return fmt.Errorf("unknown feedback type %q", review.FeedbackType)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO users (id, name) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
`, review.UserID, review.UserName)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO messages (id, user_id) VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING
`, review.MessageID, review.UserID)
	if err != nil {
		return fmt.Errorf("failed to upsert message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO reviews (user_id, message_id, feedback_type) VALUES ($1, $2, $3)
`, review.UserID, review.MessageID, review.FeedbackType)
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}

	return tx.Commit()
}

// ReviewCounts returns per-type vote totals, for the analytics command.
func (s *Store) ReviewCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT feedback_type, COUNT(*) FROM reviews GROUP BY feedback_type
`)
	if err != nil {
		return nil, fmt.Errorf("failed to count reviews: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var feedbackType string
		var count int
		if err := rows.Scan(&feedbackType, &count); err != nil {
			return nil, err
		}
		counts[feedbackType] = count
	}
	return counts, rows.Err()
}
