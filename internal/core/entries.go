package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParseEntries decodes a JSON array of entries. Anything other than an array
// (including null) is rejected. Costs may be any JSON number and are coerced
// to non-negative whole units.
func ParseEntries(data []byte) ([]Entry, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, errors.New("not a json array")
	}

	var raw []wireEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	if dec.More() {
		return nil, errors.New("trailing data after array")
	}

	out := make([]Entry, 0, len(raw))
	for i, w := range raw {
		e, err := w.entry()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

type wireEntry struct {
	ID    *json.Number `json:"id"`
	Date  string       `json:"date"`
	Time  string       `json:"time"`
	Title string       `json:"title"`
	Cost  json.Number  `json:"cost"`
	Memo  string       `json:"memo"`
	URL   string       `json:"url"`
}

func (w wireEntry) entry() (Entry, error) {
	if w.ID == nil {
		return Entry{}, errors.New("missing id")
	}
	id, err := w.ID.Int64()
	if err != nil {
		return Entry{}, fmt.Errorf("id: %w", err)
	}
	e := Entry{
		ID:    id,
		Date:  w.Date,
		Time:  w.Time,
		Title: w.Title,
		Cost:  ParseCost(w.Cost.String()),
		Memo:  w.Memo,
		URL:   w.URL,
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}
