package slack

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// ConversationTypes is the fixed filter sent as a single types parameter.
var ConversationTypes = []string{"public_channel", "private_channel", "im", "mpim"}

// conversationsPage fetches one page of users.conversations.
func (c *Client) conversationsPage(ctx context.Context, cursor string) ([]Conversation, string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(PageSize))
	params.Set("types", strings.Join(ConversationTypes, ","))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var resp ConversationsResponse
	if err := c.get(ctx, "users.conversations", params, &resp); err != nil {
		return nil, "", err
	}
	return resp.Channels, resp.ResponseMetadata.NextCursor, nil
}

// ListConversations returns every conversation the token can see, across all
// four conversation types. Pages are accumulated first and then deduplicated
// by ID, keeping the first occurrence. Order is not significant.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var all []Conversation
	for conv, err := range Paginate(ctx, c.conversationsPage) {
		if err != nil {
			return nil, err
		}
		all = append(all, conv)
	}

	conversations := DedupeConversations(all)
	c.logger.Info("listed conversations",
		"fetched", len(all),
		"unique", len(conversations),
	)
	return conversations, nil
}

// DedupeConversations drops conversations whose ID has already been seen.
func DedupeConversations(conversations []Conversation) []Conversation {
	seen := make(map[string]struct{}, len(conversations))
	out := make([]Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if _, ok := seen[conv.ID]; ok {
			continue
		}
		seen[conv.ID] = struct{}{}
		out = append(out, conv)
	}
	return out
}
