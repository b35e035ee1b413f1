package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/askarihq/patrolbot/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return repo
}

func TestSaveAndHistory(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := "+1555030001"

	msgs := []domain.StoredMessage{
		{Role: domain.RoleUser, Content: "find site alpha"},
		{Role: domain.RoleAssistant, Content: "2 sites found."},
		{Role: domain.RoleUser, Content: "show patrols"},
	}
	for _, m := range msgs {
		if err := repo.SaveMessage(ctx, id, m.Role, m.Content); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	history, err := repo.History(ctx, id, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(history))
	}
	for i, m := range msgs {
		if history[i] != m {
			t.Errorf("Message %d = %+v, want %+v", i, history[i], m)
		}
	}
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := "+1555030002"

	for _, content := range []string{"one", "two", "three", "four"} {
		if err := repo.SaveMessage(ctx, id, domain.RoleUser, content); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	history, err := repo.History(ctx, id, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "three" || history[1].Content != "four" {
		t.Errorf("Expected the newest messages in order, got %+v", history)
	}
}

func TestHistoryIsolatedPerConversation(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.SaveMessage(ctx, "a", domain.RoleUser, "for a"); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if err := repo.SaveMessage(ctx, "b", domain.RoleUser, "for b"); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	history, err := repo.History(ctx, "a", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Content != "for a" {
		t.Errorf("Expected only conversation a's messages, got %+v", history)
	}
}

func TestClearHistory(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	id := "+1555030003"

	for i := 0; i < 3; i++ {
		if err := repo.SaveMessage(ctx, id, domain.RoleUser, "message"); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	deleted, err := repo.ClearHistory(ctx, id)
	if err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if deleted != 3 {
		t.Errorf("Expected 3 deleted rows, got %d", deleted)
	}

	history, err := repo.History(ctx, id, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected empty history after clear, got %d messages", len(history))
	}
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
