package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func exerciseSlots(t *testing.T, s Slots) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "travel_plans"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	if err := s.Set(ctx, "travel_plans", `[{"id":1}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "travel_plans", `[]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get(ctx, "travel_plans")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `[]` {
		t.Fatalf("expected overwritten value, got %q", got)
	}
	if err := s.Remove(ctx, "travel_plans"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := s.Get(ctx, "travel_plans"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
	if err := s.Remove(ctx, "travel_plans"); err != nil {
		t.Fatalf("removing a missing slot should succeed, got %v", err)
	}
}

func TestMemorySlots(t *testing.T) {
	exerciseSlots(t, NewMemorySlots())
}

func TestFileSlots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewFileSlots(dir)
	if err != nil {
		t.Fatalf("new file slots: %v", err)
	}
	exerciseSlots(t, s)
}

func TestFileSlotsRejectsPathKeys(t *testing.T) {
	s, err := NewFileSlots(t.TempDir())
	if err != nil {
		t.Fatalf("new file slots: %v", err)
	}
	if err := s.Set(context.Background(), "../escape", "x"); err == nil {
		t.Fatalf("expected error for key with path separators")
	}
}

func TestSQLiteSlots(t *testing.T) {
	s, err := NewSQLiteSlots(filepath.Join(t.TempDir(), "shiori.db"))
	if err != nil {
		t.Fatalf("new sqlite slots: %v", err)
	}
	defer s.Close()
	exerciseSlots(t, s)
}

func TestSQLiteSlotsReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shiori.db")
	s, err := NewSQLiteSlots(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(context.Background(), "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	s, err = NewSQLiteSlots(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v := s.SchemaVersion(); v != 1 {
		t.Errorf("schema version = %d, want 1", v)
	}
	if got, err := s.Get(context.Background(), "k"); err != nil || got != "v" {
		t.Fatalf("expected persisted value, got %q, %v", got, err)
	}
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "shiori.txt")
	if err := WriteFileAtomic(p, []byte("one")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(p, []byte("two")); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected a single file, found %d", len(entries))
	}
	b, _ := os.ReadFile(p)
	if string(b) != "two" {
		t.Fatalf("unexpected content %q", b)
	}
}
