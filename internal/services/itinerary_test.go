package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"shiori/internal/adapters"
	"shiori/internal/amqp"
	"shiori/internal/core"
	"shiori/internal/storage"
	"shiori/internal/transfer"
)

type fakePublisher struct {
	msgs []*amqp.SnapshotMessage
	err  error
}

func (f *fakePublisher) PublishSnapshot(_ context.Context, msg *amqp.SnapshotMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fixedClock struct{ ms int64 }

func (c *fixedClock) now() time.Time { return time.UnixMilli(c.ms) }

func newTestService(t *testing.T, opts ...Option) (*Itinerary, *storage.MemorySlots) {
	t.Helper()
	slots := storage.NewMemorySlots()
	clock := &fixedClock{ms: 1714000000000}
	opts = append([]Option{WithIDSource(&core.ClockIDs{Now: clock.now})}, opts...)
	s := NewItinerary(adapters.NewPersistence(slots, "", nil), opts...)
	return s, slots
}

func persisted(t *testing.T, slots *storage.MemorySlots) []core.Entry {
	t.Helper()
	raw, err := slots.Get(context.Background(), adapters.DefaultKey)
	if err != nil {
		t.Fatalf("read slot: %v", err)
	}
	entries, err := core.ParseEntries([]byte(raw))
	if err != nil {
		t.Fatalf("parse slot: %v", err)
	}
	return entries
}

func TestSeedPrefersTransfer(t *testing.T) {
	ctx := context.Background()
	s, slots := newTestService(t)
	_ = slots.Set(ctx, adapters.DefaultKey, `[{"id":1,"title":"local"}]`)

	token, _ := transfer.Encode([]core.Entry{{ID: 9, Title: "remote", Cost: 300}})
	in := &transfer.StaticInbound{Value: token}

	res := s.Seed(ctx, in)
	if res.Source != SourceTransfer || res.Count != 1 || res.ImportErr != nil {
		t.Fatalf("unexpected seed result %+v", res)
	}
	if !in.Consumed {
		t.Fatalf("inbound token should be consumed after a successful decode")
	}
	if got := persisted(t, slots); len(got) != 1 || got[0].Title != "remote" {
		t.Fatalf("persistence not overwritten: %+v", got)
	}
}

func TestSeedEmptyTokenReplacesLocalData(t *testing.T) {
	ctx := context.Background()
	s, slots := newTestService(t)
	_ = slots.Set(ctx, adapters.DefaultKey, `[{"id":1,"title":"local"}]`)

	token, _ := transfer.Encode(nil)
	s.Seed(ctx, &transfer.StaticInbound{Value: token})

	if n := len(s.Entries()); n != 0 {
		t.Fatalf("expected empty store, got %d entries", n)
	}
	if got := persisted(t, slots); len(got) != 0 {
		t.Fatalf("expected persisted empty array, got %+v", got)
	}
}

func TestSeedCorruptTokenFallsBack(t *testing.T) {
	ctx := context.Background()
	s, slots := newTestService(t)
	_ = slots.Set(ctx, adapters.DefaultKey, `[{"id":1,"title":"local"}]`)
	in := &transfer.StaticInbound{Value: "%%%corrupt"}

	res := s.Seed(ctx, in)
	if res.Source != SourcePersistence || !errors.Is(res.ImportErr, transfer.ErrDecode) {
		t.Fatalf("unexpected seed result %+v", res)
	}
	if in.Consumed {
		t.Fatalf("corrupt token must be left untouched")
	}
	if got := s.Entries(); len(got) != 1 || got[0].Title != "local" {
		t.Fatalf("expected persisted entries, got %+v", got)
	}
}

func TestSeedWithoutAnythingMirrorsEmptyArray(t *testing.T) {
	ctx := context.Background()
	s, slots := newTestService(t)
	res := s.Seed(ctx, nil)
	if res.Source != SourcePersistence || res.Count != 0 {
		t.Fatalf("unexpected seed result %+v", res)
	}
	if raw, _ := slots.Get(ctx, adapters.DefaultKey); raw != "[]" {
		t.Fatalf("expected [] mirrored on startup, got %q", raw)
	}
}

// flakySlots fails the first read, as a busy SQLite file does.
type flakySlots struct {
	*storage.MemorySlots
	reads int
}

func (f *flakySlots) Get(ctx context.Context, key string) (string, error) {
	f.reads++
	if f.reads == 1 {
		return "", errors.New("database is locked")
	}
	return f.MemorySlots.Get(ctx, key)
}

func TestSeedReadFailureKeepsSlot(t *testing.T) {
	ctx := context.Background()
	const saved = `[{"id":1,"title":"keep me","cost":100}]`
	slots := &flakySlots{MemorySlots: storage.NewMemorySlots()}
	_ = slots.Set(ctx, adapters.DefaultKey, saved)
	s := NewItinerary(adapters.NewPersistence(slots, "", nil))

	res := s.Seed(ctx, nil)
	if res.Source != SourcePersistence || res.Count != 0 {
		t.Fatalf("unexpected seed result %+v", res)
	}
	if raw, _ := slots.Get(ctx, adapters.DefaultKey); raw != saved {
		t.Fatalf("unreadable slot was overwritten with %q", raw)
	}

	// A fresh start reads it again.
	again := NewItinerary(adapters.NewPersistence(slots, "", nil))
	if res := again.Seed(ctx, nil); res.Count != 1 {
		t.Fatalf("expected the saved entry on the next start, got %+v", res)
	}
	if e, ok := again.Get(1); !ok || e.Title != "keep me" || e.Cost != 100 {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestMutationsAreMirrored(t *testing.T) {
	ctx := context.Background()
	s, slots := newTestService(t)
	s.Seed(ctx, nil)

	a, err := s.Add(ctx, core.Draft{Title: core.Str("A"), Date: core.Str("2024-05-01"), Cost: core.Str("1000")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.LastDate() != "2024-05-01" {
		t.Fatalf("last date not remembered: %q", s.LastDate())
	}
	if _, err := s.Update(ctx, a.ID, core.Draft{Memo: core.Str("note")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := persisted(t, slots); !reflect.DeepEqual(got, s.Entries()) {
		t.Fatalf("persistence out of sync:\n%+v\n%+v", got, s.Entries())
	}
	if err := s.Remove(ctx, a.ID, Confirmed(true)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := persisted(t, slots); len(got) != 0 {
		t.Fatalf("expected empty persisted list, got %+v", got)
	}
}

func TestAddEmptyTitle(t *testing.T) {
	s, _ := newTestService(t)
	if _, err := s.Add(context.Background(), core.Draft{Title: core.Str("  ")}); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if len(s.Entries()) != 0 {
		t.Fatalf("store size changed")
	}
}

func TestUpdateAndRemoveMissing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	s.Add(ctx, core.Draft{Title: core.Str("A")})
	before := s.Entries()

	if _, err := s.Update(ctx, 99, core.Draft{Title: core.Str("Z")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Remove(ctx, 99, Confirmed(true)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Update(ctx, before[0].ID, core.Draft{Title: core.Str("")}); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if !reflect.DeepEqual(before, s.Entries()) {
		t.Fatalf("store changed")
	}
}

func TestClearAllRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	s, slots := newTestService(t)
	s.Add(ctx, core.Draft{Title: core.Str("A")})

	if err := s.ClearAll(ctx, nil); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if err := s.ClearAll(ctx, Confirmed(false)); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if len(s.Entries()) != 1 {
		t.Fatalf("entries cleared without confirmation")
	}

	var prompt string
	err := s.ClearAll(ctx, ConfirmFunc(func(_ context.Context, p string) bool {
		prompt = p
		return true
	}))
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if prompt != ClearPrompt {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if len(s.Entries()) != 0 {
		t.Fatalf("expected empty itinerary")
	}
	if _, err := slots.Get(ctx, adapters.DefaultKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected slot removed, got %v", err)
	}
}

func TestRemoveRequiresConfirmation(t *testing.T) {
	ctx := context.Background()
	s, slots := newTestService(t)
	a, _ := s.Add(ctx, core.Draft{Title: core.Str("A")})

	if err := s.Remove(ctx, a.ID, nil); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if err := s.Remove(ctx, a.ID, Confirmed(false)); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
	if _, ok := s.Get(a.ID); !ok {
		t.Fatalf("entry removed without confirmation")
	}

	asked := 0
	if err := s.Remove(ctx, 99, ConfirmFunc(func(context.Context, string) bool {
		asked++
		return true
	})); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if asked != 0 {
		t.Fatalf("missing entry should not be confirmed")
	}

	var prompt string
	err := s.Remove(ctx, a.ID, ConfirmFunc(func(_ context.Context, p string) bool {
		prompt = p
		return true
	}))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if prompt != RemovePrompt {
		t.Fatalf("unexpected prompt %q", prompt)
	}
	if got := persisted(t, slots); len(got) != 0 {
		t.Fatalf("expected empty persisted list, got %+v", got)
	}
}

// stuckSlots cannot remove keys.
type stuckSlots struct{ *storage.MemorySlots }

func (stuckSlots) Remove(context.Context, string) error {
	return errors.New("read-only file system")
}

func TestClearAllSucceedsWhenSlotStays(t *testing.T) {
	ctx := context.Background()
	slots := stuckSlots{storage.NewMemorySlots()}
	s := NewItinerary(adapters.NewPersistence(slots, "", nil))
	s.Add(ctx, core.Draft{Title: core.Str("A"), Date: core.Str("2024-05-01")})

	if err := s.ClearAll(ctx, Confirmed(true)); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(s.Entries()) != 0 || s.LastDate() != "" {
		t.Fatalf("itinerary not cleared")
	}
	if raw, _ := slots.Get(ctx, adapters.DefaultKey); raw != "[]" {
		t.Fatalf("expected the slot to hold an empty list, got %q", raw)
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	s.Add(ctx, core.Draft{Title: core.Str("old")})

	if _, err := s.Import(ctx, "not-a-token!"); !errors.Is(err, transfer.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if got := s.Entries(); len(got) != 1 || got[0].Title != "old" {
		t.Fatalf("failed import changed the store: %+v", got)
	}

	want := []core.Entry{{ID: 1, Title: "x"}, {ID: 2, Title: "y", Cost: 20}}
	token, _ := transfer.Encode(want)
	n, err := s.Import(ctx, token)
	if err != nil || n != 2 {
		t.Fatalf("import: %d, %v", n, err)
	}
	if !reflect.DeepEqual(s.Entries(), want) {
		t.Fatalf("import mismatch: %+v", s.Entries())
	}
}

func TestShareLinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)
	s.Add(ctx, core.Draft{Title: core.Str("A"), Time: core.Str("10:00"), Cost: core.Str("1000")})
	s.Add(ctx, core.Draft{Title: core.Str("B"), Time: core.Str("09:00"), Cost: core.Str("500")})

	link, err := s.ShareLink("http://localhost:8081/")
	if err != nil {
		t.Fatalf("share link: %v", err)
	}
	token, _ := transfer.TokenFromLink(link)
	other, _ := newTestService(t)
	if _, err := other.Import(ctx, token); err != nil {
		t.Fatalf("import on second device: %v", err)
	}
	if !reflect.DeepEqual(other.Entries(), s.Entries()) {
		t.Fatalf("devices disagree")
	}
	if v := other.View(); v.Total != 1500 {
		t.Fatalf("expected total 1500, got %d", v.Total)
	}
}

func TestPublishesSnapshots(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{err: errors.New("broker down")}
	s, _ := newTestService(t, WithPublisher(pub))

	if _, err := s.Add(ctx, core.Draft{Title: core.Str("A"), Cost: core.Str("700")}); err != nil {
		t.Fatalf("publisher failure must not fail the mutation: %v", err)
	}
	s.Add(ctx, core.Draft{Title: core.Str("B")})
	s.Update(ctx, 99, core.Draft{Title: core.Str("none")})

	if len(pub.msgs) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(pub.msgs))
	}
	first, second := pub.msgs[0], pub.msgs[1]
	if second.Version <= first.Version {
		t.Fatalf("versions not increasing: %d then %d", first.Version, second.Version)
	}
	if second.Count != 2 || second.Total != 700 {
		t.Fatalf("unexpected snapshot %+v", second)
	}
	entries, err := transfer.Decode(second.Token)
	if err != nil || !reflect.DeepEqual(entries, s.Entries()) {
		t.Fatalf("snapshot token does not match store: %v", err)
	}
}
