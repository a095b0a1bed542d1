package inmemory

import (
	"context"
	"testing"

	"github.com/ooocheckitout/llm-knowledge-base/internal/history"
)

func TestAppendAccumulatesInOrder(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := store.Append(ctx, "1-2",
			history.Turn{Role: history.RoleUser, Content: "question"},
			history.Turn{Role: history.RoleAssistant, Content: "answer"},
		)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	turns, err := store.Recent(ctx, "1-2", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 6 {
		t.Fatalf("expected 6 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := history.RoleUser
		if i%2 == 1 {
			want = history.RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d role = %s, want %s", i, turn.Role, want)
		}
	}
}

func TestRecentReturnsLastN(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for _, content := range []string{"a", "b", "c", "d"} {
		if err := store.Append(ctx, "s", history.Turn{Role: history.RoleUser, Content: content}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	turns, err := store.Recent(ctx, "s", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 2 || turns[0].Content != "c" || turns[1].Content != "d" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Append(ctx, "1-2", history.Turn{Role: history.RoleUser, Content: "mine"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	turns, err := store.Recent(ctx, "3-4", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty history for other session, got %+v", turns)
	}
}

func TestClearForgetsSession(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if err := store.Append(ctx, "1-2", history.Turn{Role: history.RoleUser, Content: "bye"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Clear(ctx, "1-2"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	turns, err := store.Recent(ctx, "1-2", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected cleared history, got %+v", turns)
	}
}
