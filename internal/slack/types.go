package slack

// Conversation type labels, in priority order.
const (
	LabelDM             = "DM"
	LabelGroupDM        = "Group DM"
	LabelPrivateChannel = "Private Channel"
	LabelPublicChannel  = "Public Channel"
)

// Conversation is a channel, private group, DM or group DM returned by
// users.conversations.
type Conversation struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	IsPrivate bool   `json:"is_private"`
	IsIM      bool   `json:"is_im"`
	IsMPIM    bool   `json:"is_mpim"`
	IsChannel bool   `json:"is_channel"`
	IsGroup   bool   `json:"is_group"`
	Creator   string `json:"creator,omitempty"`
}

// TypeLabel derives a display label from the conversation flags.
// is_im wins over is_mpim, which wins over is_private.
func (c Conversation) TypeLabel() string {
	switch {
	case c.IsIM:
		return LabelDM
	case c.IsMPIM:
		return LabelGroupDM
	case c.IsPrivate:
		return LabelPrivateChannel
	default:
		return LabelPublicChannel
	}
}

// DisplayName returns the conversation name, falling back to its ID.
func (c Conversation) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID
}

// Message is a single entry from conversations.history.
type Message struct {
	Type         string       `json:"type,omitempty"`
	User         string       `json:"user,omitempty"`
	Text         string       `json:"text,omitempty"`
	Timestamp    string       `json:"ts"`
	ThreadTS     string       `json:"thread_ts,omitempty"`
	ParentUserID string       `json:"parent_user_id,omitempty"`
	Subtype      string       `json:"subtype,omitempty"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	Blocks       []Block      `json:"blocks,omitempty"`
}

// Attachment is the legacy attachment payload of a message.
type Attachment struct {
	Fallback string `json:"fallback,omitempty"`
	Text     string `json:"text,omitempty"`
	Color    string `json:"color,omitempty"`
}

// Block keeps only the block kind; block content is not exported.
type Block struct {
	Type string `json:"type"`
}

// ResponseMetadata carries the pagination cursor of a page envelope.
type ResponseMetadata struct {
	NextCursor string `json:"next_cursor,omitempty"`
}

// ConversationsResponse is the response from users.conversations.
type ConversationsResponse struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error,omitempty"`
	Channels         []Conversation   `json:"channels"`
	ResponseMetadata ResponseMetadata `json:"response_metadata"`
}

// HistoryResponse is the response from conversations.history.
type HistoryResponse struct {
	OK               bool             `json:"ok"`
	Error            string           `json:"error,omitempty"`
	Messages         []Message        `json:"messages"`
	HasMore          bool             `json:"has_more"`
	ResponseMetadata ResponseMetadata `json:"response_metadata"`
}
