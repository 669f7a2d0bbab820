package projection

import (
	"reflect"
	"testing"

	"shiori/internal/core"
)

func titles(entries []core.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}

func TestBuildScenario(t *testing.T) {
	v := Build([]core.Entry{
		{ID: 1, Date: "2024-05-01", Time: "10:00", Title: "A", Cost: 1000},
		{ID: 2, Date: "2024-05-01", Time: "09:00", Title: "B", Cost: 500},
	})
	if v.Total != 1500 {
		t.Fatalf("total = %d, want 1500", v.Total)
	}
	if len(v.Groups) != 1 || v.Groups[0].Key != "2024-05-01" {
		t.Fatalf("unexpected groups: %+v", v.Groups)
	}
	if v.Groups[0].Subtotal != 1500 {
		t.Fatalf("subtotal = %d, want 1500", v.Groups[0].Subtotal)
	}
	if got := titles(v.Groups[0].Entries); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Fatalf("order = %v, want [B A]", got)
	}
}

func TestUndecidedGroupLast(t *testing.T) {
	tests := []struct {
		name  string
		dates []string
		want  []string
	}{
		{"undecided after dated", []string{"2024-05-01", "", "2024-05-01"}, []string{"2024-05-01", UndecidedKey}},
		{"undecided first in input", []string{"", "2024-06-02", "2024-05-30"}, []string{"2024-05-30", "2024-06-02", UndecidedKey}},
		{"date sorting after letter u", []string{"", "zzzz"}, []string{"zzzz", UndecidedKey}},
		{"only undecided", []string{"", ""}, []string{UndecidedKey}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []core.Entry
			for i, d := range tt.dates {
				entries = append(entries, core.Entry{ID: int64(i + 1), Date: d, Title: "x"})
			}
			if got := Build(entries).Keys(); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("keys = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyTimeSortsLast(t *testing.T) {
	v := Build([]core.Entry{
		{ID: 1, Date: "2024-05-01", Time: "09:00", Title: "nine"},
		{ID: 2, Date: "2024-05-01", Time: "", Title: "none"},
		{ID: 3, Date: "2024-05-01", Time: "07:30", Title: "seven"},
	})
	if got := titles(v.Groups[0].Entries); !reflect.DeepEqual(got, []string{"seven", "nine", "none"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestEqualTimesKeepInsertionOrder(t *testing.T) {
	v := Build([]core.Entry{
		{ID: 1, Time: "", Title: "first"},
		{ID: 2, Time: "12:00", Title: "noon"},
		{ID: 3, Time: "", Title: "second"},
	})
	if got := titles(v.Groups[0].Entries); !reflect.DeepEqual(got, []string{"noon", "first", "second"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestSubtotals(t *testing.T) {
	v := Build([]core.Entry{
		{ID: 1, Date: "2024-05-02", Title: "a", Cost: 300},
		{ID: 2, Date: "", Title: "b", Cost: 200},
		{ID: 3, Date: "2024-05-02", Title: "c", Cost: 100},
	})
	if v.Total != 600 {
		t.Fatalf("total = %d", v.Total)
	}
	if v.Groups[0].Subtotal != 400 || v.Groups[1].Subtotal != 200 {
		t.Fatalf("subtotals = %d, %d", v.Groups[0].Subtotal, v.Groups[1].Subtotal)
	}
	if !v.Groups[1].Undecided() {
		t.Fatalf("expected second group to be undecided")
	}
}

func TestFilterAndResolveTab(t *testing.T) {
	v := Build([]core.Entry{
		{ID: 1, Date: "2024-05-01", Title: "a"},
		{ID: 2, Date: "", Title: "b"},
	})

	if got := Filter(v, AllKey); len(got) != 2 {
		t.Fatalf("ALL should pass through, got %d groups", len(got))
	}
	if got := Filter(v, UndecidedKey); len(got) != 1 || got[0].Key != UndecidedKey {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if got := ResolveTab(v, "2024-12-31"); got != AllKey {
		t.Fatalf("vanished key should fall back to ALL, got %q", got)
	}
	if got := Filter(v, "2024-12-31"); len(got) != 2 {
		t.Fatalf("vanished key should show everything, got %d groups", len(got))
	}
}

func TestTabs(t *testing.T) {
	if tabs := Tabs(Build(nil)); tabs != nil {
		t.Fatalf("expected no tabs for empty view, got %+v", tabs)
	}
	v := Build([]core.Entry{
		{ID: 1, Date: "2024-05-01", Title: "a"},
		{ID: 2, Date: "", Title: "b"},
	})
	want := []Tab{
		{Key: AllKey, Label: AllLabel},
		{Key: "2024-05-01", Label: "05/01"},
		{Key: UndecidedKey, Label: UndecidedLabel},
	}
	if got := Tabs(v); !reflect.DeepEqual(got, want) {
		t.Fatalf("tabs = %+v, want %+v", got, want)
	}
}

func TestBuildDoesNotReorderInput(t *testing.T) {
	in := []core.Entry{
		{ID: 1, Time: "10:00", Title: "A"},
		{ID: 2, Time: "09:00", Title: "B"},
	}
	Build(in)
	if in[0].Title != "A" {
		t.Fatalf("Build mutated its input")
	}
}
