package channels

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chrisedwards/slack-history/internal/slack"
)

// Bounds of the name column in conversation listings.
const (
	minNameWidth = 10
	maxNameWidth = 40
)

// SortForDisplay returns a copy of conversations ordered by display name,
// case-insensitively, with the ID breaking ties.
func SortForDisplay(conversations []slack.Conversation) []slack.Conversation {
	sorted := slices.Clone(conversations)
	slices.SortStableFunc(sorted, func(a, b slack.Conversation) int {
		if c := strings.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return sorted
}

// NameWidth is the padded width of the name column: the longest display
// name, clamped to 10..40.
func NameWidth(conversations []slack.Conversation) int {
	width := 0
	for _, c := range conversations {
		width = max(width, len(c.DisplayName()))
	}
	return min(max(width, minNameWidth), maxNameWidth)
}

// FormatLine renders one listing row.
func FormatLine(c slack.Conversation, width int, showIDs bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  [%s]  Private=%t IM=%t", width, c.DisplayName(), c.TypeLabel(), c.IsPrivate, c.IsIM)
	if showIDs {
		fmt.Fprintf(&b, " (ID=%s)", c.ID)
	}
	return b.String()
}

// WriteList prints conversations sorted for display, one per line.
func WriteList(w io.Writer, conversations []slack.Conversation, showIDs bool) error {
	sorted := SortForDisplay(conversations)
	width := NameWidth(sorted)
	for _, c := range sorted {
		if _, err := fmt.Fprintln(w, FormatLine(c, width, showIDs)); err != nil {
			return err
		}
	}
	return nil
}
