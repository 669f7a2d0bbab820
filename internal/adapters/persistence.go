// Package adapters connects the in-memory itinerary to its durable mirror.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"shiori/internal/core"
	"shiori/internal/log"
	"shiori/internal/storage"
)

// DefaultKey is the slot the itinerary is stored under.
const DefaultKey = "travel_plans"

// Persistence mirrors the full entry sequence into one slot as a JSON array.
type Persistence struct {
	slots  storage.Slots
	key    string
	logger *slog.Logger
}

func NewPersistence(slots storage.Slots, key string, logger *slog.Logger) *Persistence {
	if key == "" {
		key = DefaultKey
	}
	return &Persistence{slots: slots, key: key, logger: log.OrDefault(logger)}
}

func (p *Persistence) Key() string {
	return p.key
}

// Load returns the persisted entries. Absent, unreadable or malformed slots
// all yield an empty sequence; the last two are logged.
func (p *Persistence) Load(ctx context.Context) []core.Entry {
	entries, err := p.Read(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "Persisted itinerary unreadable, starting empty",
			log.FieldSlotKey, p.key, log.FieldError, err)
		return []core.Entry{}
	}
	return entries
}

// Read is Load without the recovery: an absent slot is an empty sequence,
// while read and parse failures are returned so callers can avoid writing
// over a slot they could not read.
func (p *Persistence) Read(ctx context.Context) ([]core.Entry, error) {
	raw, err := p.slots.Get(ctx, p.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []core.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read itinerary: %w", err)
	}

	entries, err := core.ParseEntries([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse itinerary: %w", err)
	}
	return entries, nil
}

// Save overwrites the slot with the full sequence.
func (p *Persistence) Save(ctx context.Context, entries []core.Entry) error {
	if entries == nil {
		entries = []core.Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	if err := p.slots.Set(ctx, p.key, string(b)); err != nil {
		return fmt.Errorf("save itinerary: %w", err)
	}
	p.logger.DebugContext(ctx, "Itinerary saved", log.FieldSlotKey, p.key, log.FieldCount, len(entries))
	return nil
}

// Clear removes the slot entirely.
func (p *Persistence) Clear(ctx context.Context) error {
	if err := p.slots.Remove(ctx, p.key); err != nil {
		return fmt.Errorf("clear itinerary: %w", err)
	}
	return nil
}
