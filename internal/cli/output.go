package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"shiori/internal/core"
	"shiori/internal/projection"
)

const (
	heading      = "✈️ 旅のしおり"
	emptyMessage = "予定はまだありません"
	noTime       = "--:--"
)

// printView writes the filtered groups of v with tabs and totals.
func printView(w io.Writer, v projection.View, tab string) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	dim := color.New(color.Faint)

	cyan.Fprintln(w, heading)
	if len(v.Groups) == 0 {
		dim.Fprintln(w, emptyMessage)
		return
	}

	selected := projection.ResolveTab(v, tab)
	labels := make([]string, 0, len(v.Groups)+1)
	for _, t := range projection.Tabs(v) {
		if t.Key == selected {
			labels = append(labels, "["+t.Label+"]")
		} else {
			labels = append(labels, t.Label)
		}
	}
	dim.Fprintln(w, strings.Join(labels, "  "))
	fmt.Fprintln(w)

	for _, g := range projection.Filter(v, selected) {
		label := "📅 " + g.Key
		if g.Undecided() {
			label = "📅 日付未定"
		}
		yellow.Fprintf(w, "%s", label)
		fmt.Fprintf(w, "  計 %s\n", core.FormatYen(g.Subtotal))
		for _, e := range g.Entries {
			printEntry(w, e, dim)
		}
		fmt.Fprintln(w)
	}

	green.Fprintf(w, "TOTAL BUDGET %s\n", core.FormatYen(v.Total))
}

func printEntry(w io.Writer, e core.Entry, dim *color.Color) {
	t := e.Time
	if t == "" {
		t = noTime
	}
	fmt.Fprintf(w, "  %s  %s  %s", t, e.Title, core.FormatYen(e.Cost))
	dim.Fprintf(w, "  #%d\n", e.ID)
	if e.Memo != "" {
		dim.Fprintf(w, "         %s\n", e.Memo)
	}
	if e.URL != "" {
		dim.Fprintf(w, "         🔗 %s\n", e.URL)
	}
}

func printSuccess(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, "! "+format+"\n", args...)
}
