// Package channels selects and orders Slack conversations for listing and
// export, based on glob patterns.
package channels

import (
	"path/filepath"
	"strings"

	"github.com/chrisedwards/slack-history/internal/slack"
)

// Filter applies include/exclude patterns to a list of conversations.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a Filter with the given include and exclude patterns.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{
		include: include,
		exclude: exclude,
	}
}

// Apply filters the given conversations based on include/exclude patterns.
func (f *Filter) Apply(conversations []slack.Conversation) []slack.Conversation {
	return FilterConversations(conversations, f.include, f.exclude)
}

// Empty reports whether the filter keeps every conversation.
func (f *Filter) Empty() bool {
	return len(f.include) == 0 && len(f.exclude) == 0
}

// FilterConversations keeps conversations whose name or ID matches an include
// pattern (or all, when include is empty) and matches no exclude pattern.
// Exclude wins over include. Input order is preserved.
func FilterConversations(conversations []slack.Conversation, include, exclude []string) []slack.Conversation {
	result := make([]slack.Conversation, 0, len(conversations))
	for _, c := range conversations {
		if len(include) > 0 && !matchConversation(include, c) {
			continue
		}
		if matchConversation(exclude, c) {
			continue
		}
		result = append(result, c)
	}
	return result
}

func matchConversation(patterns []string, c slack.Conversation) bool {
	if c.Name != "" && MatchAny(patterns, c.Name) {
		return true
	}
	return MatchAny(patterns, c.ID)
}

// MatchAny checks if a value matches any pattern in a list.
// Returns true if any pattern matches, false for empty pattern list.
// Short-circuits on first match.
func MatchAny(patterns []string, value string) bool {
	for _, pattern := range patterns {
		if MatchPattern(pattern, value) {
			return true
		}
	}
	return false
}

// MatchPattern matches a value against a glob pattern.
// Supports glob patterns (* matches any sequence, ? matches single character).
// Matching is case-insensitive. Returns false for invalid patterns.
func MatchPattern(pattern, value string) bool {
	matched, err := filepath.Match(strings.ToLower(pattern), strings.ToLower(value))
	if err != nil {
		return false
	}
	return matched
}
