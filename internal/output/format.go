// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"shoplist/internal/list"
	"shoplist/internal/store"
)

const (
	// ListSeparator is the separator line between the items and the stats.
	ListSeparator = "------------"
)

// FormatItem formats an item line.
// Format: "{N:>4}  [x] {TEXT}\n" (4-wide right-aligned number, checkbox, text)
func FormatItem(w io.Writer, num int, item store.Item) {
	box := "[ ]"
	if item.Completed {
		box = "[x]"
	}
	fmt.Fprintf(w, "%4d  %s %s\n", num, box, normalizeText(item.Text))
}

// FormatSelectedItem formats an item line marked for deletion.
// Format: "{N:>4}  *   {TEXT}\n"
func FormatSelectedItem(w io.Writer, num int, item store.Item) {
	fmt.Fprintf(w, "%4d  *   %s\n", num, normalizeText(item.Text))
}

// FormatStats formats the counts line.
func FormatStats(w io.Writer, stats list.Stats) {
	fmt.Fprintf(w, "%d %s, %d pending, %d completed\n",
		stats.Total, plural(stats.Total, "item", "items"), stats.Pending, stats.Completed)
}

// EmptyMessage returns what to show when the filtered view has no items.
func EmptyMessage(filter list.Filter) string {
	switch filter {
	case list.FilterPending:
		return "Nothing left to buy. Everything is done!"
	case list.FilterCompleted:
		return "No completed items."
	default:
		return "The list is empty. Add something with: shoplist add <item>"
	}
}

// FormatList writes the numbered items of a view, or its empty message.
func FormatList(w io.Writer, items []store.Item, filter list.Filter) {
	if len(items) == 0 {
		fmt.Fprintln(w, EmptyMessage(filter))
		return
	}
	for i, item := range items {
		FormatItem(w, i+1, item)
	}
}

// FormatIdentity formats the whoami line.
func FormatIdentity(w io.Writer, mode list.Mode, s list.Session) {
	if !s.Authenticated {
		fmt.Fprintln(w, "not logged in")
		return
	}
	fmt.Fprintf(w, "%s (%s mode)\n", s.Identity.String(), mode)
}

// normalizeText normalizes item text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
