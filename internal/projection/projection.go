// Package projection derives the read-only grouped view of an itinerary.
//
// Everything here is a pure function of the entry sequence and is recomputed
// on every read; nothing is cached.
package projection

import (
	"slices"
	"strings"

	"shiori/internal/core"
)

const (
	// UndecidedKey groups entries without a date.
	UndecidedKey = "undecided"
	// AllKey is the tab sentinel that disables filtering.
	AllKey = "ALL"
)

// Group is one date bucket, entries ordered by time.
type Group struct {
	Key      string
	Entries  []core.Entry
	Subtotal int64
}

// Undecided reports whether the group holds entries without a date.
func (g Group) Undecided() bool {
	return g.Key == UndecidedKey
}

// View is the grouped projection of a whole itinerary.
type View struct {
	Groups []Group
	Total  int64
}

// Build groups entries by date, orders the groups and their entries, and totals costs.
func Build(entries []core.Entry) View {
	byKey := make(map[string]*Group)
	var keys []string
	var total int64
	for _, e := range entries {
		key := e.Date
		if key == "" {
			key = UndecidedKey
		}
		g, ok := byKey[key]
		if !ok {
			g = &Group{Key: key}
			byKey[key] = g
			keys = append(keys, key)
		}
		g.Entries = append(g.Entries, e)
		g.Subtotal += e.Cost
		total += e.Cost
	}

	slices.SortFunc(keys, compareKeys)

	view := View{Groups: make([]Group, 0, len(keys)), Total: total}
	for _, k := range keys {
		g := byKey[k]
		slices.SortStableFunc(g.Entries, func(a, b core.Entry) int {
			return compareTimes(a.Time, b.Time)
		})
		view.Groups = append(view.Groups, *g)
	}
	return view
}

// Keys lists the group keys in display order.
func (v View) Keys() []string {
	keys := make([]string, len(v.Groups))
	for i, g := range v.Groups {
		keys[i] = g.Key
	}
	return keys
}

// Filter restricts the view to one group key. AllKey, or a key that no longer
// exists, yields every group.
func Filter(v View, key string) []Group {
	key = ResolveTab(v, key)
	if key == AllKey {
		return v.Groups
	}
	for _, g := range v.Groups {
		if g.Key == key {
			return []Group{g}
		}
	}
	return v.Groups
}

// ResolveTab returns selected when it names a group of v, AllKey otherwise.
func ResolveTab(v View, selected string) string {
	for _, g := range v.Groups {
		if g.Key == selected {
			return selected
		}
	}
	return AllKey
}

// Tab is a selectable filter shown above the list.
type Tab struct {
	Key   string
	Label string
}

// Tabs lists AllKey followed by one tab per group. It is empty for an empty view.
func Tabs(v View) []Tab {
	if len(v.Groups) == 0 {
		return nil
	}
	tabs := make([]Tab, 0, len(v.Groups)+1)
	tabs = append(tabs, Tab{Key: AllKey, Label: AllLabel})
	for _, g := range v.Groups {
		tabs = append(tabs, Tab{Key: g.Key, Label: TabLabel(g.Key)})
	}
	return tabs
}

const (
	AllLabel       = "全て"
	UndecidedLabel = "未定"
)

// TabLabel shortens an ISO date key to "MM/DD".
func TabLabel(key string) string {
	if key == UndecidedKey {
		return UndecidedLabel
	}
	if len(key) >= 10 && key[4] == '-' && key[7] == '-' {
		return strings.Replace(key[5:10], "-", "/", 1)
	}
	return key
}

// compareKeys orders dates lexicographically, which is chronological for ISO
// dates, and always places the undecided group last.
func compareKeys(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == UndecidedKey:
		return 1
	case b == UndecidedKey:
		return -1
	}
	return strings.Compare(a, b)
}

// compareTimes orders HH:MM strings with an empty time after every populated one.
func compareTimes(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return strings.Compare(a, b)
}
