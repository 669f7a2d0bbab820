// Package services orchestrates the itinerary: it seeds the Store at startup,
// serializes mutations, mirrors every change into persistence and announces
// snapshots to an optional publisher.
package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"shiori/internal/adapters"
	"shiori/internal/amqp"
	"shiori/internal/core"
	"shiori/internal/itinerary"
	"shiori/internal/log"
	"shiori/internal/projection"
	"shiori/internal/transfer"
)

var (
	ErrNotFound     = errors.New("entry not found")
	ErrNotConfirmed = errors.New("deletion not confirmed")
)

const publishTimeout = 2 * time.Second

// Publisher announces itinerary snapshots.
type Publisher interface {
	PublishSnapshot(ctx context.Context, msg *amqp.SnapshotMessage) error
}

// Confirmer gates destructive operations.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// Confirmed is a Confirmer with a fixed answer, e.g. from a --yes flag or form field.
type Confirmed bool

func (c Confirmed) Confirm(context.Context, string) bool { return bool(c) }

const (
	// ClearPrompt is shown before clearing the itinerary.
	ClearPrompt = "すべての予定を削除しますか？"
	// RemovePrompt is shown before deleting a single entry.
	RemovePrompt = "削除しますか？"
)

// Source tells where the Store was seeded from.
type Source string

const (
	SourceTransfer    Source = "transfer"
	SourcePersistence Source = "persistence"
)

// SeedResult describes the outcome of Seed. ImportErr is set when an inbound
// token was present but could not be decoded.
type SeedResult struct {
	Source    Source
	Count     int
	ImportErr error
}

// Itinerary is the single writer of the Store. Every exported method runs to
// completion under one lock, so concurrent callers observe discrete events.
type Itinerary struct {
	mu          sync.Mutex
	store       *itinerary.Store
	persistence *adapters.Persistence
	publisher   Publisher
	logger      *slog.Logger

	pending  []core.Entry
	changed  bool
	version  int64
	lastDate string
	now      func() time.Time
}

// Option configures an Itinerary.
type Option func(*Itinerary)

func WithPublisher(p Publisher) Option {
	return func(s *Itinerary) { s.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Itinerary) { s.logger = l }
}

func WithIDSource(ids core.IDSource) Option {
	return func(s *Itinerary) { s.store = itinerary.New(ids) }
}

func NewItinerary(persistence *adapters.Persistence, opts ...Option) *Itinerary {
	s := &Itinerary{persistence: persistence, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = itinerary.New(nil)
	}
	s.logger = log.OrDefault(s.logger)
	s.store.Subscribe(itinerary.ObserverFunc(func(entries []core.Entry) {
		s.pending = entries
		s.changed = true
	}))
	return s
}

// Seed initializes the Store. A decodable token on inbound wins over the
// persisted copy and is consumed; otherwise the persisted copy is loaded. The
// result is mirrored back into persistence, except when the persisted copy
// could not be read, in which case the slot is not written.
func (s *Itinerary) Seed(ctx context.Context, inbound transfer.Inbound) SeedResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res SeedResult
	if inbound != nil {
		if token, ok := inbound.Token(); ok {
			entries, err := transfer.Decode(token)
			if err == nil {
				s.store.ReplaceAll(entries)
				inbound.Consume()
				s.flush(ctx)
				s.logger.InfoContext(ctx, "Itinerary seeded from transfer",
					log.FieldOperation, log.OpSeed, log.FieldCount, len(entries))
				return SeedResult{Source: SourceTransfer, Count: len(entries)}
			}
			res.ImportErr = err
			s.logger.WarnContext(ctx, "Inbound transfer rejected, using persisted itinerary",
				log.FieldOperation, log.OpSeed, log.FieldError, err)
		}
	}

	entries, err := s.persistence.Read(ctx)
	if err != nil {
		// The slot is left as it is: a later mutation overwrites it, a
		// restart gets another chance to read it.
		s.logger.WarnContext(ctx, "Persisted itinerary unreadable, starting empty",
			log.FieldOperation, log.OpSeed, log.FieldError, err)
		entries = []core.Entry{}
		s.store.ReplaceAll(entries)
		s.discard()
	} else {
		s.store.ReplaceAll(entries)
		s.flush(ctx)
	}
	res.Source = SourcePersistence
	res.Count = len(entries)
	s.logger.InfoContext(ctx, "Itinerary seeded from persistence",
		log.FieldOperation, log.OpSeed, log.FieldCount, len(entries))
	return res
}

// Import replaces the whole itinerary with the entries carried by token.
// On failure nothing changes and the error matches transfer.ErrDecode.
func (s *Itinerary) Import(ctx context.Context, token string) (int, error) {
	entries, err := transfer.Decode(token)
	if err != nil {
		s.logger.WarnContext(ctx, "Import rejected", log.FieldOperation, log.OpImport, log.FieldError, err)
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ReplaceAll(entries)
	s.flush(ctx)
	s.logger.InfoContext(ctx, "Itinerary imported", log.FieldOperation, log.OpImport, log.FieldCount, len(entries))
	return len(entries), nil
}

// Add appends a new entry. Drafts without a title fail with core.ErrEmptyTitle.
func (s *Itinerary) Add(ctx context.Context, d core.Draft) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.store.Add(d)
	if !ok {
		return core.Entry{}, core.ErrEmptyTitle
	}
	s.lastDate = e.Date
	s.flush(ctx)
	s.logger.InfoContext(ctx, "Entry added",
		log.NewFields().WithEntry(e.ID, e.Title, e.Cost).WithOperation(log.OpCreate).ToSlice()...)
	return e, nil
}

// Update merges d over the entry with id.
func (s *Itinerary) Update(ctx context.Context, id int64, d core.Draft) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.store.Get(id); !ok {
		return core.Entry{}, ErrNotFound
	}
	if d.RejectsTitle() {
		return core.Entry{}, core.ErrEmptyTitle
	}
	e, _ := s.store.Update(id, d)
	s.flush(ctx)
	s.logger.InfoContext(ctx, "Entry updated",
		log.NewFields().WithEntry(e.ID, e.Title, e.Cost).WithOperation(log.OpUpdate).ToSlice()...)
	return e, nil
}

// Remove deletes every entry with id once c confirms. A missing id fails
// with ErrNotFound before c is asked.
func (s *Itinerary) Remove(ctx context.Context, id int64, c Confirmer) error {
	if _, ok := s.Get(id); !ok {
		return ErrNotFound
	}
	if c == nil || !c.Confirm(ctx, RemovePrompt) {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Remove(id) {
		return ErrNotFound
	}
	s.flush(ctx)
	s.logger.InfoContext(ctx, "Entry removed", log.FieldEntryID, id, log.FieldOperation, log.OpDelete)
	return nil
}

// ClearAll empties the itinerary and removes the persisted slot, but only
// after c confirms. Once confirmed it does not fail.
func (s *Itinerary) ClearAll(ctx context.Context, c Confirmer) error {
	if c == nil || !c.Confirm(ctx, ClearPrompt) {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Clear()
	s.flush(ctx)
	// The slot already holds an empty list; failing to remove it loses nothing.
	if err := s.persistence.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to remove persisted itinerary",
			log.FieldOperation, log.OpClear, log.FieldError, err)
	}
	s.lastDate = ""
	s.logger.InfoContext(ctx, "Itinerary cleared", log.FieldOperation, log.OpClear)
	return nil
}

// Entries returns the current sequence in insertion order.
func (s *Itinerary) Entries() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Entries()
}

func (s *Itinerary) Get(id int64) (core.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// View projects the current sequence.
func (s *Itinerary) View() projection.View {
	return projection.Build(s.Entries())
}

// LastDate is the date of the most recently added entry, used to prefill the form.
func (s *Itinerary) LastDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDate
}

// Token encodes the current sequence for transfer.
func (s *Itinerary) Token() (string, error) {
	return transfer.Encode(s.Entries())
}

// ShareLink builds a share link under base for the current sequence.
func (s *Itinerary) ShareLink(base string) (string, error) {
	return transfer.ShareLink(base, s.Entries())
}

// flush mirrors a pending change. Callers hold s.mu.
func (s *Itinerary) flush(ctx context.Context) {
	if !s.changed {
		return
	}
	entries := s.pending
	s.pending, s.changed = nil, false

	if err := s.persistence.Save(ctx, entries); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mirror itinerary",
			log.FieldOperation, log.OpSave, log.FieldError, err)
	}
	s.publish(ctx, entries)
}

// discard drops a pending change without mirroring it. Callers hold s.mu.
func (s *Itinerary) discard() {
	s.pending, s.changed = nil, false
}

func (s *Itinerary) publish(ctx context.Context, entries []core.Entry) {
	if s.publisher == nil {
		return
	}

	version := s.now().UnixMilli()
	if version <= s.version {
		version = s.version + 1
	}
	s.version = version

	token, err := transfer.Encode(entries)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode snapshot", log.FieldError, err)
		return
	}
	view := projection.Build(entries)
	msg := amqp.NewSnapshotMessage(version, token, len(entries), view.Total)

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.PublishSnapshot(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish snapshot",
			log.FieldOperation, log.OpPublish, log.FieldVersion, version, log.FieldError, err)
	}
}
