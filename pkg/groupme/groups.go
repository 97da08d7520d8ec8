package groupme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Groups manages the authenticated user's groups.
type Groups struct {
	session *Session
}

// NewGroups creates a group manager.
func NewGroups(s *Session) *Groups {
	return &Groups{session: s}
}

// ListGroupsOptions control group list pagination. Zero values are omitted.
type ListGroupsOptions struct {
	Page    int
	PerPage int
	Omit    string // comma-separated fields the server may omit, e.g. "memberships"
}

// GroupRequest carries the mutable group fields for Create and Update.
type GroupRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Share       bool   `json:"share,omitempty"`
	OfficeMode  bool   `json:"office_mode,omitempty"`
}

// List returns a page of the user's active groups.
func (g *Groups) List(ctx context.Context, opts ListGroupsOptions) ([]*Group, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(opts.PerPage))
	}
	if opts.Omit != "" {
		query.Set("omit", opts.Omit)
	}

	groups, err := get[[]*Group](ctx, g.session, "groups", query)
	if err != nil {
		return nil, err
	}
	for _, grp := range *groups {
		grp.bind(g.session)
	}
	return *groups, nil
}

// Former returns groups the user has left but can rejoin.
func (g *Groups) Former(ctx context.Context) ([]*Group, error) {
	groups, err := get[[]*Group](ctx, g.session, "groups/former", nil)
	if err != nil {
		return nil, err
	}
	for _, grp := range *groups {
		grp.bind(g.session)
	}
	return *groups, nil
}

// Get fetches a single group by id.
func (g *Groups) Get(ctx context.Context, id string) (*Group, error) {
	group, err := get[Group](ctx, g.session, "groups/"+id, nil)
	if err != nil {
		return nil, err
	}
	return group.bind(g.session), nil
}

// Create creates a new group.
func (g *Groups) Create(ctx context.Context, req GroupRequest) (*Group, error) {
	group, err := post[Group](ctx, g.session, "groups", req)
	if err != nil {
		return nil, err
	}
	return group.bind(g.session), nil
}

// Update changes a group's details.
func (g *Groups) Update(ctx context.Context, id string, req GroupRequest) (*Group, error) {
	group, err := post[Group](ctx, g.session, fmt.Sprintf("groups/%s/update", id), req)
	if err != nil {
		return nil, err
	}
	return group.bind(g.session), nil
}

// Destroy disbands a group. Only the owner may do this.
func (g *Groups) Destroy(ctx context.Context, id string) (bool, error) {
	_, err := post[json.RawMessage](ctx, g.session, fmt.Sprintf("groups/%s/destroy", id), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type joinResponse struct {
	Group *Group `json:"group"`
}

// Join joins a shared group using its share token.
func (g *Groups) Join(ctx context.Context, id, shareToken string) (*Group, error) {
	path := fmt.Sprintf("groups/%s/join/%s", id, shareToken)
	result, err := post[joinResponse](ctx, g.session, path, nil)
	if err != nil {
		return nil, err
	}
	if result.Group == nil {
		return nil, fmt.Errorf("groupme: join %s: response carried no group", id)
	}
	return result.Group.bind(g.session), nil
}

// Rejoin rejoins a group the user previously left.
func (g *Groups) Rejoin(ctx context.Context, id string) (*Group, error) {
	payload := map[string]string{"group_id": id}
	group, err := post[Group](ctx, g.session, "groups/join", payload)
	if err != nil {
		return nil, err
	}
	return group.bind(g.session), nil
}

// OwnerChange names a group and the member to hand ownership to.
type OwnerChange struct {
	GroupID string `json:"group_id"`
	OwnerID string `json:"owner_id"`
}

// OwnerChangeResult reports the per-group outcome of ChangeOwners. Status
// "200" means the transfer happened; anything else is a rejection code.
type OwnerChangeResult struct {
	GroupID string `json:"group_id"`
	OwnerID string `json:"owner_id"`
	Status  string `json:"status"`
}

type changeOwnersRequest struct {
	Requests []OwnerChange `json:"requests"`
}

type changeOwnersResponse struct {
	Results []OwnerChangeResult `json:"results"`
}

// ChangeOwners transfers ownership of one or more groups. Partial success
// is normal; inspect each result's Status.
func (g *Groups) ChangeOwners(ctx context.Context, changes ...OwnerChange) ([]OwnerChangeResult, error) {
	result, err := post[changeOwnersResponse](ctx, g.session, "groups/change_owners", changeOwnersRequest{Requests: changes})
	if err != nil {
		return nil, err
	}
	return result.Results, nil
}

// groupFields are the JSON keys with a typed counterpart on Group.
var groupFields = []string{
	"id", "group_id", "name", "type", "description", "image_url",
	"creator_user_id", "created_at", "updated_at", "share_url", "members",
	"max_members", "office_mode", "phone_number",
}

// Group is a group chat. Fetching a group binds scoped Messages and
// Memberships managers for follow-up operations.
type Group struct {
	ID            string    `json:"id"`
	GroupID       string    `json:"group_id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"image_url"`
	CreatorUserID string    `json:"creator_user_id"`
	CreatedAt     int64     `json:"created_at"`
	UpdatedAt     int64     `json:"updated_at"`
	ShareURL      string    `json:"share_url"`
	Members       []*Member `json:"members"`
	MaxMembers    int       `json:"max_members"`
	OfficeMode    bool      `json:"office_mode"`
	PhoneNumber   string    `json:"phone_number"`
	Extra         Fields    `json:"-"`

	// Messages, Memberships, and Leaderboard are scoped to this group.
	// Set by bind.
	Messages    *Messages    `json:"-"`
	Memberships *Memberships `json:"-"`
	Leaderboard *Leaderboard `json:"-"`

	session *Session
}

// UnmarshalJSON decodes the typed fields and preserves everything else in
// Extra.
func (g *Group) UnmarshalJSON(data []byte) error {
	type alias Group
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, groupFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*g = Group(a)
	return nil
}

// bind attaches the session and constructs the scoped sub-managers.
func (g *Group) bind(s *Session) *Group {
	g.session = s
	g.Messages = NewMessages(s, g.ID)
	g.Memberships = NewMemberships(s, g.ID)
	g.Leaderboard = NewLeaderboard(s, g.ID)
	for _, m := range g.Members {
		m.bind(s)
	}
	return g
}

// String implements fmt.Stringer.
func (g *Group) String() string {
	return fmt.Sprintf("Group(name=%q)", g.Name)
}

// Created returns the group's creation time.
func (g *Group) Created() time.Time { return time.Unix(g.CreatedAt, 0) }

// Updated returns the group's last update time.
func (g *Group) Updated() time.Time { return time.Unix(g.UpdatedAt, 0) }

// Post sends a message to the group.
func (g *Group) Post(ctx context.Context, text string, attachments ...Attachment) (*Message, error) {
	return g.Messages.Create(ctx, text, attachments...)
}

// Update changes the group's details and returns the updated group.
func (g *Group) Update(ctx context.Context, req GroupRequest) (*Group, error) {
	return NewGroups(g.session).Update(ctx, g.ID, req)
}

// Destroy disbands the group.
func (g *Group) Destroy(ctx context.Context) (bool, error) {
	return NewGroups(g.session).Destroy(ctx, g.ID)
}

// Join joins the group using a share token.
func (g *Group) Join(ctx context.Context, shareToken string) (*Group, error) {
	return NewGroups(g.session).Join(ctx, g.ID, shareToken)
}

// Rejoin rejoins the group after having left it.
func (g *Group) Rejoin(ctx context.Context) (*Group, error) {
	return NewGroups(g.session).Rejoin(ctx, g.ID)
}

// Refresh re-fetches the group and replaces its data in place.
func (g *Group) Refresh(ctx context.Context) error {
	fresh, err := NewGroups(g.session).Get(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = *fresh
	return nil
}
