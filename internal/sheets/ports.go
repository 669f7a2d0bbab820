// Package sheets mirrors the itinerary into spreadsheet-shaped outputs.
package sheets

import (
	"context"

	"shiori/internal/core"
	"shiori/internal/projection"
)

// Exporter replaces the whole mirrored copy with the rows of a view.
type Exporter interface {
	ExportItinerary(ctx context.Context, view projection.View) error
}

// Header is the first row of every export.
var Header = []string{"日付", "時間", "タイトル", "費用", "メモ", "URL"}

// Rows flattens a view into spreadsheet rows in projection order, header first.
// Undecided dates are written as the undecided tab label.
func Rows(view projection.View) [][]any {
	rows := make([][]any, 0, 1+len(view.Groups))
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, g := range view.Groups {
		date := g.Key
		if g.Undecided() {
			date = projection.UndecidedLabel
		}
		for _, e := range g.Entries {
			rows = append(rows, row(date, e))
		}
	}
	return rows
}

func row(date string, e core.Entry) []any {
	return []any{date, e.Time, e.Title, e.Cost, e.Memo, e.URL}
}
