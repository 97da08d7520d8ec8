package groupme

import (
	"context"
	"encoding/json"
	"fmt"
)

// CurrentUser manages the authenticated user's own profile. The profile is
// fetched once and cached for the manager's lifetime.
type CurrentUser struct {
	session *Session
	me      *User
}

// NewCurrentUser creates a manager for the authenticated user.
func NewCurrentUser(s *Session) *CurrentUser {
	return &CurrentUser{session: s}
}

// Me returns the authenticated user's profile, fetching it on first use.
func (c *CurrentUser) Me(ctx context.Context) (*User, error) {
	if c.me != nil {
		return c.me, nil
	}
	user, err := get[User](ctx, c.session, "users/me", nil)
	if err != nil {
		return nil, err
	}
	c.me = user
	return user, nil
}

// UserUpdate carries the mutable profile fields. Empty fields are left
// unchanged.
type UserUpdate struct {
	AvatarURL string `json:"avatar_url,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	ZipCode   string `json:"zip_code,omitempty"`
}

// Update changes the authenticated user's profile and refreshes the cached
// copy.
func (c *CurrentUser) Update(ctx context.Context, req UserUpdate) (*User, error) {
	user, err := post[User](ctx, c.session, "users/update", req)
	if err != nil {
		return nil, err
	}
	c.me = user
	return user, nil
}

// Blocks returns a block manager acting as the authenticated user.
func (c *CurrentUser) Blocks(ctx context.Context) (*Blocks, error) {
	me, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	return NewBlocks(c.session, me.ID), nil
}

// userFields are the JSON keys with a typed counterpart on User.
var userFields = []string{
	"id", "user_id", "name", "email", "phone_number", "image_url",
	"created_at", "updated_at", "sms",
}

// User is a GroupMe account.
type User struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	ImageURL    string `json:"image_url"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	SMS         bool   `json:"sms"`
	Extra       Fields `json:"-"`
}

// UnmarshalJSON decodes the typed fields and preserves everything else in
// Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, userFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*u = User(a)
	return nil
}

// String implements fmt.Stringer.
func (u *User) String() string {
	return fmt.Sprintf("User(name=%q)", u.Name)
}
