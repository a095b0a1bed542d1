package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ooocheckitout/llm-knowledge-base/internal/store"
)

func TestSaveReviewRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("lileg"),
		tcPostgres.WithUsername("lileg"),
		tcPostgres.WithPassword("lileg"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://lileg:lileg@%s:%s/lileg?sslmode=disable", host, port.Port())

	if err := store.Migrate("file://../../migrations", dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st, err := store.New(dsn)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer st.Close()

	review := store.Review{UserID: 7, UserName: "oleh", MessageID: 100, FeedbackType: store.FeedbackGood}
	if err := st.SaveReview(ctx, review); err != nil {
		t.Fatalf("SaveReview: %v", err)
	}
	review.FeedbackType = store.FeedbackBad
	if err := st.SaveReview(ctx, review); err != nil {
		t.Fatalf("SaveReview: %v", err)
	}

	counts, err := st.ReviewCounts(ctx)
	if err != nil {
		t.Fatalf("ReviewCounts: %v", err)
	}
	if counts[store.FeedbackGood] != 1 || counts[store.FeedbackBad] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
