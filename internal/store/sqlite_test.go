package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/scotthnguyen/cf-ai-study-planner-agent/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "planner.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoadMemoryMissingSessionReturnsDefault(t *testing.T) {
	repo := newTestStore(t)

	mem, err := repo.LoadMemory(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("LoadMemory failed: %v", err)
	}
	if len(mem.Goals) != 0 || len(mem.Plan) != 0 || len(mem.Chat) != 0 {
		t.Errorf("Expected all-empty default, got %+v", mem)
	}
	if mem.Goals == nil || mem.Plan == nil || mem.Chat == nil {
		t.Error("Expected non-nil containers in default record")
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	mem := domain.NewMemory()
	mem.Goals = []string{"pass calculus"}
	mem.Constraints = []string{"evenings only"}
	mem.Deadlines = []string{"June 3"}
	mem.Plan = map[string][]string{"Day 1": {"read ch.1", "do problems"}}
	mem.AppendTurn(domain.RoleUser, "help me")
	mem.AppendTurn(domain.RoleAssistant, "sure")

	if err := repo.SaveMemory(ctx, "s1", mem); err != nil {
		t.Fatalf("SaveMemory failed: %v", err)
	}

	loaded, err := repo.LoadMemory(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadMemory failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, mem) {
		t.Errorf("Roundtrip mismatch:\nsaved  %+v\nloaded %+v", mem, loaded)
	}
}

func TestSaveMemoryOverwrites(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	first := domain.NewMemory()
	first.Goals = []string{"old"}
	if err := repo.SaveMemory(ctx, "s1", first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	second := domain.NewMemory()
	second.Goals = []string{"new"}
	if err := repo.SaveMemory(ctx, "s1", second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := repo.LoadMemory(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadMemory failed: %v", err)
	}
	if !reflect.DeepEqual(loaded.Goals, []string{"new"}) {
		t.Errorf("Expected overwrite, got %v", loaded.Goals)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	a := domain.NewMemory()
	a.Goals = []string{"goal a"}
	b := domain.NewMemory()
	b.Goals = []string{"goal b"}

	if err := repo.SaveMemory(ctx, "a", a); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveMemory(ctx, "b", b); err != nil {
		t.Fatal(err)
	}

	loadedA, _ := repo.LoadMemory(ctx, "a")
	loadedB, _ := repo.LoadMemory(ctx, "b")
	if reflect.DeepEqual(loadedA.Goals, loadedB.Goals) {
		t.Errorf("Sessions bled into each other: %v vs %v", loadedA.Goals, loadedB.Goals)
	}
}

func TestCleanupIdleSessions(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.SaveMemory(ctx, "fresh", domain.NewMemory()); err != nil {
		t.Fatal(err)
	}

	// A generous retention deletes nothing.
	deleted, err := repo.CleanupIdleSessions(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupIdleSessions failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 deletions with long retention, got %d", deleted)
	}

	// A negative retention puts the threshold in the future, sweeping
	// everything. Stands in for waiting out a real idle period.
	deleted, err = repo.CleanupIdleSessions(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("CleanupIdleSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deletion, got %d", deleted)
	}

	mem, err := repo.LoadMemory(ctx, "fresh")
	if err != nil {
		t.Fatalf("LoadMemory failed: %v", err)
	}
	if len(mem.Chat) != 0 || len(mem.Goals) != 0 {
		t.Errorf("Expected default record after sweep, got %+v", mem)
	}
}
