package itinerary

import (
	"reflect"
	"testing"
	"time"

	"shiori/internal/core"
)

func newTestStore() *Store {
	var ms int64 = 1000
	return New(&core.ClockIDs{Now: func() time.Time { return time.UnixMilli(ms) }})
}

type recorder struct {
	calls [][]core.Entry
}

func (r *recorder) OnChange(entries []core.Entry) {
	r.calls = append(r.calls, entries)
}

func TestAddAssignsUniqueIDs(t *testing.T) {
	s := newTestStore()
	a, ok := s.Add(core.Draft{Title: core.Str("A")})
	if !ok {
		t.Fatalf("expected add to succeed")
	}
	b, _ := s.Add(core.Draft{Title: core.Str("B")})
	if a.ID == b.ID {
		t.Fatalf("ids collide: %d", a.ID)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}
}

func TestAddRejectedDraftIsNoOp(t *testing.T) {
	s := newTestStore()
	rec := &recorder{}
	s.Subscribe(rec)

	if _, ok := s.Add(core.Draft{Title: core.Str("")}); ok {
		t.Fatalf("expected rejection")
	}
	if s.Len() != 0 {
		t.Fatalf("store size changed: %d", s.Len())
	}
	if len(rec.calls) != 0 {
		t.Fatalf("observer notified on rejected add")
	}
}

func TestUpdateMissingIDLeavesStoreUnchanged(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]core.Entry{
		{ID: 1, Date: "2024-05-01", Time: "10:00", Title: "A", Cost: 1000},
		{ID: 2, Date: "2024-05-01", Time: "09:00", Title: "B", Cost: 500},
	})
	before := s.Entries()
	rec := &recorder{}
	s.Subscribe(rec)

	if _, ok := s.Update(99, core.Draft{Title: core.Str("Z"), Cost: core.Str("1")}); ok {
		t.Fatalf("expected update of unknown id to report false")
	}
	if !reflect.DeepEqual(before, s.Entries()) {
		t.Fatalf("store changed: %+v", s.Entries())
	}
	if len(rec.calls) != 0 {
		t.Fatalf("observer notified on no-op update")
	}
}

func TestUpdateMergesInPlace(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]core.Entry{
		{ID: 1, Title: "A", Cost: 1000},
		{ID: 2, Title: "B", Cost: 500, Memo: "keep"},
		{ID: 3, Title: "C"},
	})

	got, ok := s.Update(2, core.Draft{Title: core.Str("B2"), Cost: core.Str("-1")})
	if !ok {
		t.Fatalf("expected update to succeed")
	}
	want := core.Entry{ID: 2, Title: "B2", Cost: 0, Memo: "keep"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if e := s.Entries()[1]; e != want {
		t.Fatalf("position changed or not stored: %+v", s.Entries())
	}
}

func TestUpdateRejectsEmptyTitle(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]core.Entry{{ID: 1, Title: "A"}})
	if _, ok := s.Update(1, core.Draft{Title: core.Str(" ")}); ok {
		t.Fatalf("expected empty title update to be rejected")
	}
	if e, _ := s.Get(1); e.Title != "A" {
		t.Fatalf("title changed: %q", e.Title)
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore()
	s.ReplaceAll([]core.Entry{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 1, Title: "dup"}})

	if s.Remove(42) {
		t.Fatalf("expected removing unknown id to report false")
	}
	if !s.Remove(1) {
		t.Fatalf("expected remove to succeed")
	}
	if got := s.Entries(); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("unexpected entries after remove: %+v", got)
	}
}

func TestReplaceAllAndClear(t *testing.T) {
	s := newTestStore()
	rec := &recorder{}
	s.Subscribe(rec)

	in := []core.Entry{{ID: 50000, Title: "imported"}}
	s.ReplaceAll(in)
	in[0].Title = "mutated by caller"
	if e, _ := s.Get(50000); e.Title != "imported" {
		t.Fatalf("store aliases caller slice")
	}

	added, _ := s.Add(core.Draft{Title: core.Str("next")})
	if added.ID <= 50000 {
		t.Fatalf("expected id past installed ones, got %d", added.ID)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after clear")
	}
	if len(rec.calls) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(rec.calls))
	}
	if last := rec.calls[2]; len(last) != 0 {
		t.Fatalf("clear notified with %d entries", len(last))
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	s := newTestStore()
	s.Add(core.Draft{Title: core.Str("A")})
	got := s.Entries()
	got[0].Title = "changed"
	if e := s.Entries()[0]; e.Title != "A" {
		t.Fatalf("Entries exposed internal slice")
	}
}

func TestObserverFunc(t *testing.T) {
	s := newTestStore()
	var seen int
	s.Subscribe(ObserverFunc(func(entries []core.Entry) { seen = len(entries) }))
	s.Add(core.Draft{Title: core.Str("A")})
	if seen != 1 {
		t.Fatalf("expected observer to see 1 entry, got %d", seen)
	}
}
