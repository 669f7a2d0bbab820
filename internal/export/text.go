// Package export renders the itinerary as a plain-text booklet.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"shiori/internal/core"
	"shiori/internal/projection"
)

const (
	// Filename is the suggested name for downloads.
	Filename = "旅のしおり.txt"

	title          = "✈️ 旅のしおり"
	rule           = "===================================="
	groupRule      = "------------------------"
	undecidedLabel = "日付未定"
	noTime         = "--:--"
)

// Write renders every group of v, in projection order, to w.
func Write(w io.Writer, v projection.View) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, title)
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "💰 合計予算: %s\n", core.FormatYen(v.Total))
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)

	for _, g := range v.Groups {
		label := g.Key
		if g.Undecided() {
			label = undecidedLabel
		}
		fmt.Fprintf(bw, "■ %s (%s)\n", label, core.FormatYen(g.Subtotal))
		fmt.Fprintln(bw, groupRule)
		for _, e := range g.Entries {
			writeEntry(bw, e)
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func writeEntry(w io.Writer, e core.Entry) {
	t := e.Time
	if t == "" {
		t = noTime
	}
	line := t + " | " + e.Title
	if e.Cost > 0 {
		line += " (" + core.FormatYen(e.Cost) + ")"
	}
	fmt.Fprintln(w, line)
	if e.Memo != "" {
		fmt.Fprintf(w, "   📝 %s\n", e.Memo)
	}
	if e.URL != "" {
		fmt.Fprintf(w, "   🔗 %s\n", e.URL)
	}
	fmt.Fprintln(w)
}

// Text is Write into a string.
func Text(v projection.View) string {
	var sb strings.Builder
	_ = Write(&sb, v)
	return sb.String()
}
