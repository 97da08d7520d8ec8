package groupme

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Chats manages the authenticated user's direct-message conversations.
type Chats struct {
	session *Session
}

// NewChats creates a chat manager.
func NewChats(s *Session) *Chats {
	return &Chats{session: s}
}

// List returns a page of the user's direct-message conversations.
func (c *Chats) List(ctx context.Context, page, perPage int) ([]*Chat, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}

	chats, err := get[[]*Chat](ctx, c.session, "chats", query)
	if err != nil {
		return nil, err
	}
	for _, chat := range *chats {
		if err := chat.bind(c.session); err != nil {
			return nil, err
		}
	}
	return *chats, nil
}

// ChatUser is the counterpart in a direct conversation.
type ChatUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// chatFields are the JSON keys with a typed counterpart on Chat.
var chatFields = []string{
	"created_at", "updated_at", "messages_count", "other_user", "last_message",
}

// Chat is a direct conversation with one other user.
type Chat struct {
	CreatedAt     int64    `json:"created_at"`
	UpdatedAt     int64    `json:"updated_at"`
	MessagesCount int      `json:"messages_count"`
	OtherUser     ChatUser `json:"other_user"`
	LastMessage   *Message `json:"last_message"`
	Extra         Fields   `json:"-"`

	// Messages is scoped to the conversation. Set by bind.
	Messages *DirectMessages `json:"-"`

	session *Session
}

// UnmarshalJSON decodes the typed fields and preserves everything else in
// Extra.
func (c *Chat) UnmarshalJSON(data []byte) error {
	type alias Chat
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, chatFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*c = Chat(a)
	return nil
}

// bind attaches the session and constructs the scoped message manager.
func (c *Chat) bind(s *Session) error {
	c.session = s
	c.Messages = NewDirectMessages(s, c.OtherUser.ID)
	if c.LastMessage != nil {
		if err := c.LastMessage.bind(s); err != nil {
			return err
		}
	}
	return nil
}

// String implements fmt.Stringer.
func (c *Chat) String() string {
	return fmt.Sprintf("Chat(other_user=%q)", c.OtherUser.Name)
}

// Post sends a direct message to the conversation's other user.
func (c *Chat) Post(ctx context.Context, text string, attachments ...Attachment) (*Message, error) {
	return c.Messages.Create(ctx, text, attachments...)
}

// DirectMessages manages the direct-message feed with one other user.
type DirectMessages struct {
	session     *Session
	otherUserID string
}

// NewDirectMessages creates a direct-message manager for conversations
// with the given user.
func NewDirectMessages(s *Session, otherUserID string) *DirectMessages {
	return &DirectMessages{session: s, otherUserID: otherUserID}
}

type listDirectMessagesResponse struct {
	Count          int        `json:"count"`
	DirectMessages []*Message `json:"direct_messages"`
}

// List returns a page of direct messages, newest first. BeforeID and
// SinceID page through history; AfterID is not supported for direct
// messages.
func (d *DirectMessages) List(ctx context.Context, opts ListMessagesOptions) ([]*Message, error) {
	query := url.Values{}
	query.Set("other_user_id", d.otherUserID)
	if opts.BeforeID != "" {
		query.Set("before_id", opts.BeforeID)
	}
	if opts.SinceID != "" {
		query.Set("since_id", opts.SinceID)
	}

	result, err := get[listDirectMessagesResponse](ctx, d.session, "direct_messages", query)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.DirectMessages {
		if err := msg.bind(d.session); err != nil {
			return nil, err
		}
	}
	return result.DirectMessages, nil
}

type createDirectMessageRequest struct {
	DirectMessage directMessagePayload `json:"direct_message"`
}

type directMessagePayload struct {
	SourceGUID  string       `json:"source_guid"`
	RecipientID string       `json:"recipient_id"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type createDirectMessageResponse struct {
	DirectMessage *Message `json:"direct_message"`
	Message       *Message `json:"message"`
}

// Create sends a direct message to the other user. The create response
// omits the conversation id, so it is derived from the participant ids.
func (d *DirectMessages) Create(ctx context.Context, text string, attachments ...Attachment) (*Message, error) {
	guid, err := newGUID()
	if err != nil {
		return nil, err
	}

	result, err := post[createDirectMessageResponse](ctx, d.session, "direct_messages", createDirectMessageRequest{
		DirectMessage: directMessagePayload{
			SourceGUID:  guid,
			RecipientID: d.otherUserID,
			Text:        text,
			Attachments: attachments,
		},
	})
	if err != nil {
		return nil, err
	}

	msg := result.DirectMessage
	if msg == nil {
		msg = result.Message
	}
	if msg == nil {
		return nil, fmt.Errorf("groupme: direct message to %s: response carried no message", d.otherUserID)
	}
	if msg.ConversationID == "" && msg.RecipientID != "" && msg.SenderID != "" {
		msg.ConversationID = deriveConversationID(msg.RecipientID, msg.SenderID)
	}
	if err := msg.bind(d.session); err != nil {
		return nil, err
	}
	return msg, nil
}
