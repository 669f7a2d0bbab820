// Package itinerary holds the in-memory ordered collection of entries.
//
// The Store is the single source of truth for the current session. It is a
// plain owned value without locking: callers that share it across goroutines
// must serialize access (services.Itinerary does).
package itinerary

import "shiori/internal/core"

// Observer is notified synchronously after every mutation that changed the Store.
type Observer interface {
	OnChange(entries []core.Entry)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(entries []core.Entry)

func (f ObserverFunc) OnChange(entries []core.Entry) { f(entries) }

type Store struct {
	entries   []core.Entry
	ids       core.IDSource
	observers []Observer
}

// New returns an empty Store drawing identifiers from ids.
func New(ids core.IDSource) *Store {
	if ids == nil {
		ids = core.NewClockIDs()
	}
	return &Store{ids: ids}
}

// Subscribe registers an observer for subsequent mutations.
func (s *Store) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// Add creates an entry from d and appends it. It reports false, leaving the
// Store untouched, when the draft is rejected.
func (s *Store) Add(d core.Draft) (core.Entry, bool) {
	e, err := core.Create(d, s.ids)
	if err != nil {
		return core.Entry{}, false
	}
	s.entries = append(s.entries, e)
	s.notify()
	return e, true
}

// Update merges d over the entry with the given id, keeping its position.
// Unknown ids and drafts that would clear the title are no-ops.
func (s *Store) Update(id int64, d core.Draft) (core.Entry, bool) {
	i := s.index(id)
	if i < 0 || d.RejectsTitle() {
		return core.Entry{}, false
	}
	merged := core.Merge(s.entries[i], d)
	if merged == s.entries[i] {
		return merged, true
	}
	s.entries[i] = merged
	s.notify()
	return merged, true
}

// Remove drops every entry carrying id. It reports whether anything was removed.
func (s *Store) Remove(id int64) bool {
	kept := make([]core.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(s.entries) {
		return false
	}
	s.entries = kept
	s.notify()
	return true
}

// ReplaceAll discards the current sequence and installs entries verbatim.
func (s *Store) ReplaceAll(entries []core.Entry) {
	s.entries = append([]core.Entry(nil), entries...)
	for _, e := range s.entries {
		s.ids.Observe(e.ID)
	}
	s.notify()
}

// Clear is ReplaceAll with an empty sequence.
func (s *Store) Clear() {
	s.ReplaceAll(nil)
}

// Entries returns a copy of the sequence in insertion order.
func (s *Store) Entries() []core.Entry {
	out := make([]core.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the first entry with the given id.
func (s *Store) Get(id int64) (core.Entry, bool) {
	if i := s.index(id); i >= 0 {
		return s.entries[i], true
	}
	return core.Entry{}, false
}

func (s *Store) Len() int {
	return len(s.entries)
}

func (s *Store) index(id int64) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) notify() {
	if len(s.observers) == 0 {
		return
	}
	snapshot := s.Entries()
	for _, o := range s.observers {
		o.OnChange(snapshot)
	}
}
