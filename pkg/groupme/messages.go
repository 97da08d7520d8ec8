package groupme

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Messages manages the message feed of a single group.
type Messages struct {
	session *Session
	groupID string
}

// NewMessages creates a message manager scoped to the given group.
func NewMessages(s *Session, groupID string) *Messages {
	return &Messages{session: s, groupID: groupID}
}

// ListMessagesOptions control message listing. BeforeID, SinceID, and
// AfterID are mutually exclusive cursors; the API returns up to Limit
// messages (default 20, max 100).
type ListMessagesOptions struct {
	BeforeID string
	SinceID  string
	AfterID  string
	Limit    int
}

type listMessagesResponse struct {
	Count    int        `json:"count"`
	Messages []*Message `json:"messages"`
}

// List returns a page of the group's messages, newest first unless AfterID
// is used.
func (m *Messages) List(ctx context.Context, opts ListMessagesOptions) ([]*Message, error) {
	query := url.Values{}
	if opts.BeforeID != "" {
		query.Set("before_id", opts.BeforeID)
	}
	if opts.SinceID != "" {
		query.Set("since_id", opts.SinceID)
	}
	if opts.AfterID != "" {
		query.Set("after_id", opts.AfterID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := fmt.Sprintf("groups/%s/messages", m.groupID)
	result, err := get[listMessagesResponse](ctx, m.session, path, query)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Messages {
		if err := msg.bind(m.session); err != nil {
			return nil, err
		}
	}
	return result.Messages, nil
}

type createMessageRequest struct {
	Message messagePayload `json:"message"`
}

type messagePayload struct {
	SourceGUID  string       `json:"source_guid"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type createMessageResponse struct {
	Message *Message `json:"message"`
}

// Create posts a message to the group.
func (m *Messages) Create(ctx context.Context, text string, attachments ...Attachment) (*Message, error) {
	guid, err := newGUID()
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("groups/%s/messages", m.groupID)
	result, err := post[createMessageResponse](ctx, m.session, path, createMessageRequest{
		Message: messagePayload{
			SourceGUID:  guid,
			Text:        text,
			Attachments: attachments,
		},
	})
	if err != nil {
		return nil, err
	}
	if result.Message == nil {
		return nil, fmt.Errorf("groupme: post to group %s: response carried no message", m.groupID)
	}
	if err := result.Message.bind(m.session); err != nil {
		return nil, err
	}
	return result.Message, nil
}

// Likes manages the like state of a single message within a conversation.
type Likes struct {
	session        *Session
	conversationID string
	messageID      string
}

// NewLikes creates a like manager for one message.
func NewLikes(s *Session, conversationID, messageID string) *Likes {
	return &Likes{session: s, conversationID: conversationID, messageID: messageID}
}

// Like marks the message as liked by the authenticated user.
func (l *Likes) Like(ctx context.Context) error {
	path := fmt.Sprintf("messages/%s/%s/like", l.conversationID, l.messageID)
	_, err := post[json.RawMessage](ctx, l.session, path, nil)
	return err
}

// Unlike removes the authenticated user's like from the message.
func (l *Likes) Unlike(ctx context.Context) error {
	path := fmt.Sprintf("messages/%s/%s/unlike", l.conversationID, l.messageID)
	_, err := post[json.RawMessage](ctx, l.session, path, nil)
	return err
}

// messageFields are the JSON keys with a typed counterpart on Message.
var messageFields = []string{
	"id", "source_guid", "created_at", "group_id", "conversation_id",
	"user_id", "recipient_id", "sender_id", "sender_type", "name",
	"avatar_url", "text", "system", "favorited_by", "attachments",
}

// messagePreviewLength bounds the text shown by String.
const messagePreviewLength = 42

// Message is a message in a group or a direct conversation. Attachments is
// populated by decoding RawAttachments through the session's registry when
// a manager constructs the message.
type Message struct {
	ID             string   `json:"id"`
	SourceGUID     string   `json:"source_guid"`
	CreatedAt      int64    `json:"created_at"`
	GroupID        string   `json:"group_id"`
	ConversationID string   `json:"conversation_id"`
	UserID         string   `json:"user_id"`
	RecipientID    string   `json:"recipient_id"`
	SenderID       string   `json:"sender_id"`
	SenderType     string   `json:"sender_type"`
	Name           string   `json:"name"`
	AvatarURL      string   `json:"avatar_url"`
	Text           string   `json:"text"`
	System         bool     `json:"system"`
	FavoritedBy    []string `json:"favorited_by"`

	RawAttachments []json.RawMessage `json:"attachments"`
	Attachments    []Attachment      `json:"-"`
	Extra          Fields            `json:"-"`

	session *Session
}

// UnmarshalJSON decodes the typed fields and preserves everything else in
// Extra. Attachments stay raw until bind runs them through a registry.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, messageFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*m = Message(a)
	return nil
}

// bind attaches the session and decodes the raw attachments through the
// session's registry.
func (m *Message) bind(s *Session) error {
	m.session = s
	attachments, err := s.Attachments.DecodeAll(m.RawAttachments)
	if err != nil {
		return err
	}
	m.Attachments = attachments
	return nil
}

// String implements fmt.Stringer.
func (m *Message) String() string {
	text := m.Text
	if len(text) > messagePreviewLength {
		text = text[:messagePreviewLength-3] + "..."
	}
	return fmt.Sprintf("Message(name=%q, text=%q, attachments=%d)", m.Name, text, len(m.Attachments))
}

// Created returns the message's creation time.
func (m *Message) Created() time.Time { return time.Unix(m.CreatedAt, 0) }

// conversationID returns the conversation the message belongs to: the
// explicit conversation id for direct messages, the group id for group
// messages, and the derived participant pair otherwise. The create-DM
// response omits the conversation id, so it is reconstructed from the
// participants when needed.
func (m *Message) conversationID() string {
	if m.ConversationID != "" {
		return m.ConversationID
	}
	if m.GroupID != "" {
		return m.GroupID
	}
	return deriveConversationID(m.RecipientID, m.SenderID)
}

// deriveConversationID builds a direct-conversation id from its two
// participants: the sorted ids joined with "+".
func deriveConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "+" + b
}

// Like marks the message as liked by the authenticated user.
func (m *Message) Like(ctx context.Context) error {
	return NewLikes(m.session, m.conversationID(), m.ID).Like(ctx)
}

// Unlike removes the authenticated user's like from the message.
func (m *Message) Unlike(ctx context.Context) error {
	return NewLikes(m.session, m.conversationID(), m.ID).Unlike(ctx)
}
