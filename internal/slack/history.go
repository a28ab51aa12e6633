package slack

import (
	"context"
	"iter"
	"net/url"
	"strconv"
)

// historyPage returns the PageFunc for conversations.history of one channel.
func (c *Client) historyPage(channelID string) PageFunc[Message] {
	return func(ctx context.Context, cursor string) ([]Message, string, error) {
		params := url.Values{}
		params.Set("channel", channelID)
		params.Set("limit", strconv.Itoa(PageSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp HistoryResponse
		if err := c.get(ctx, "conversations.history", params, &resp); err != nil {
			return nil, "", err
		}
		return resp.Messages, resp.ResponseMetadata.NextCursor, nil
	}
}

// StreamHistory lazily yields the messages of a conversation in the order
// Slack returns them. When maxMessages is positive the sequence ends as soon
// as that many messages have been yielded, without fetching another page.
// A maxMessages of zero or less means no limit.
func (c *Client) StreamHistory(ctx context.Context, channelID string, maxMessages int) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		count := 0
		for msg, err := range Paginate(ctx, c.historyPage(channelID)) {
			if err != nil {
				yield(Message{}, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
			count++
			if maxMessages > 0 && count >= maxMessages {
				return
			}
		}
	}
}

// History collects StreamHistory into a slice.
func (c *Client) History(ctx context.Context, channelID string, maxMessages int) ([]Message, error) {
	var messages []Message
	for msg, err := range c.StreamHistory(ctx, channelID, maxMessages) {
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
