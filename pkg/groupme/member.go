package groupme

import (
	"context"
	"encoding/json"
	"fmt"
)

// memberFields are the JSON keys with a typed counterpart on Member.
var memberFields = []string{
	"id", "group_id", "user_id", "nickname", "muted", "image_url",
	"autokicked", "roles",
}

// Member is a user's membership in a group. ID identifies the membership
// itself; UserID identifies the user across groups.
type Member struct {
	ID         string   `json:"id"`
	GroupID    string   `json:"group_id"`
	UserID     string   `json:"user_id"`
	Nickname   string   `json:"nickname"`
	Muted      bool     `json:"muted"`
	ImageURL   string   `json:"image_url"`
	AutoKicked bool     `json:"autokicked"`
	Roles      []string `json:"roles"`
	Extra      Fields   `json:"-"`

	session *Session
}

// UnmarshalJSON decodes the typed fields and preserves everything else in
// Extra.
func (m *Member) UnmarshalJSON(data []byte) error {
	type alias Member
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, memberFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*m = Member(a)
	return nil
}

// bind attaches the session used for follow-up operations. Managers call
// it on every member they construct.
func (m *Member) bind(s *Session) *Member {
	m.session = s
	return m
}

// String implements fmt.Stringer.
func (m *Member) String() string {
	return fmt.Sprintf("Member(user_id=%q, nickname=%q)", m.UserID, m.Nickname)
}

// blocks builds a block manager acting as the authenticated user.
func (m *Member) blocks(ctx context.Context) (*Blocks, error) {
	return NewCurrentUser(m.session).Blocks(ctx)
}

// IsBlocked reports whether a block exists between the authenticated user
// and this member.
func (m *Member) IsBlocked(ctx context.Context) (bool, error) {
	blocks, err := m.blocks(ctx)
	if err != nil {
		return false, err
	}
	return blocks.Between(ctx, m.UserID)
}

// Block blocks this member's user.
func (m *Member) Block(ctx context.Context) (*Block, error) {
	blocks, err := m.blocks(ctx)
	if err != nil {
		return nil, err
	}
	return blocks.Block(ctx, m.UserID)
}

// Unblock unblocks this member's user.
func (m *Member) Unblock(ctx context.Context) (bool, error) {
	blocks, err := m.blocks(ctx)
	if err != nil {
		return false, err
	}
	return blocks.Unblock(ctx, m.UserID)
}

// Remove removes this member from its group.
func (m *Member) Remove(ctx context.Context) (bool, error) {
	return NewMemberships(m.session, m.GroupID).Remove(ctx, m.ID)
}

// Messages returns a direct-message manager for conversations with this
// member's user.
func (m *Member) Messages() *DirectMessages {
	return NewDirectMessages(m.session, m.UserID)
}
