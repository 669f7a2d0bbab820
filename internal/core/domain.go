package core

import (
	"errors"
	"strings"
)

type (
	// Entry is one itinerary line item. The JSON field order is the canonical
	// order used by both the persisted slot and the transfer payload.
	Entry struct {
		ID    int64  `json:"id"`
		Date  string `json:"date"` // YYYY-MM-DD, empty when undecided
		Time  string `json:"time"` // HH:MM, empty when unspecified
		Title string `json:"title"`
		Cost  int64  `json:"cost"`
		Memo  string `json:"memo"`
		URL   string `json:"url"`
	}

	// Draft carries user input for creating or updating an Entry.
	// A nil field means "not present" and is left untouched by Merge.
	Draft struct {
		Date  *string
		Time  *string
		Title *string
		Cost  *string // raw input, coerced with ParseCost
		Memo  *string
		URL   *string
	}
)

var (
	ErrEmptyTitle   = errors.New("empty title")
	ErrNegativeCost = errors.New("negative cost")
)

// Str returns a pointer to s, for building drafts.
func Str(s string) *string {
	return &s
}

// RejectsTitle reports whether applying d would leave an entry without a title.
func (d Draft) RejectsTitle() bool {
	return d.Title != nil && strings.TrimSpace(*d.Title) == ""
}

// Validate checks the invariants every stored entry must hold.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if e.Cost < 0 {
		return ErrNegativeCost
	}
	return nil
}

// Create builds a new Entry from a draft, taking its id from ids.
// The draft is rejected with ErrEmptyTitle when the trimmed title is empty.
func Create(d Draft, ids IDSource) (Entry, error) {
	if d.Title == nil || strings.TrimSpace(*d.Title) == "" {
		return Entry{}, ErrEmptyTitle
	}
	e := Entry{
		ID:    ids.Next(),
		Title: *d.Title,
		Date:  value(d.Date),
		Time:  value(d.Time),
		Memo:  value(d.Memo),
		URL:   value(d.URL),
	}
	if d.Cost != nil {
		e.Cost = ParseCost(*d.Cost)
	}
	return e, nil
}

// Merge overlays the fields present in d onto existing. The id is never replaced.
func Merge(existing Entry, d Draft) Entry {
	out := existing
	if d.Date != nil {
		out.Date = *d.Date
	}
	if d.Time != nil {
		out.Time = *d.Time
	}
	if d.Title != nil {
		out.Title = *d.Title
	}
	if d.Cost != nil {
		out.Cost = ParseCost(*d.Cost)
	}
	if d.Memo != nil {
		out.Memo = *d.Memo
	}
	if d.URL != nil {
		out.URL = *d.URL
	}
	if out.Cost < 0 {
		out.Cost = 0
	}
	return out
}

// DraftOf returns a draft that carries every field of e, used to prefill edit forms.
func DraftOf(e Entry) Draft {
	cost := ""
	if e.Cost > 0 {
		cost = formatInt(e.Cost)
	}
	return Draft{
		Date:  Str(e.Date),
		Time:  Str(e.Time),
		Title: Str(e.Title),
		Cost:  Str(cost),
		Memo:  Str(e.Memo),
		URL:   Str(e.URL),
	}
}

func value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
