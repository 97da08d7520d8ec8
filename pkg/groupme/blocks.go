package groupme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// Blocks manages the block list of one user (normally the authenticated
// user; see CurrentUser.Blocks).
type Blocks struct {
	session *Session
	userID  string
}

// NewBlocks creates a block manager acting as the given user.
func NewBlocks(s *Session, userID string) *Blocks {
	return &Blocks{session: s, userID: userID}
}

type listBlocksResponse struct {
	Blocks []*Block `json:"blocks"`
}

// List returns every block the user has in place.
func (b *Blocks) List(ctx context.Context) ([]*Block, error) {
	query := url.Values{}
	query.Set("user", b.userID)

	result, err := get[listBlocksResponse](ctx, b.session, "blocks", query)
	if err != nil {
		return nil, err
	}
	for _, blk := range result.Blocks {
		blk.bind(b.session)
	}
	return result.Blocks, nil
}

type betweenResponse struct {
	Between bool `json:"between"`
}

// Between reports whether a block exists between the user and otherUserID.
func (b *Blocks) Between(ctx context.Context, otherUserID string) (bool, error) {
	query := url.Values{}
	query.Set("user", b.userID)
	query.Set("otherUser", otherUserID)

	result, err := get[betweenResponse](ctx, b.session, "blocks/between", query)
	if err != nil {
		return false, err
	}
	return result.Between, nil
}

type blockResponse struct {
	Block *Block `json:"block"`
}

// Block blocks the given user.
func (b *Blocks) Block(ctx context.Context, otherUserID string) (*Block, error) {
	query := url.Values{}
	query.Set("user", b.userID)
	query.Set("otherUser", otherUserID)

	result, err := postQuery[blockResponse](ctx, b.session, "blocks", query)
	if err != nil {
		return nil, err
	}
	if result.Block == nil {
		return nil, fmt.Errorf("groupme: block %s: response carried no block", otherUserID)
	}
	return result.Block.bind(b.session), nil
}

// Unblock removes the block on the given user. It reports the server's
// verdict; transport failures are returned as errors.
func (b *Blocks) Unblock(ctx context.Context, otherUserID string) (bool, error) {
	query := url.Values{}
	query.Set("user", b.userID)
	query.Set("otherUser", otherUserID)

	_, err := postQuery[json.RawMessage](ctx, b.session, "blocks/delete", query)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// blockFields are the JSON keys with a typed counterpart on Block.
var blockFields = []string{"user_id", "blocked_user_id", "created_at"}

// Block records that UserID has blocked BlockedUserID.
type Block struct {
	UserID        string `json:"user_id"`
	BlockedUserID string `json:"blocked_user_id"`
	CreatedAt     int64  `json:"created_at"`
	Extra         Fields `json:"-"`

	session *Session
}

// UnmarshalJSON decodes the typed fields and preserves everything else in
// Extra.
func (b *Block) UnmarshalJSON(data []byte) error {
	type alias Block
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := splitExtra(data, blockFields)
	if err != nil {
		return err
	}
	a.Extra = extra
	*b = Block(a)
	return nil
}

// bind attaches the session used for follow-up operations.
func (b *Block) bind(s *Session) *Block {
	b.session = s
	return b
}

// String implements fmt.Stringer.
func (b *Block) String() string {
	return fmt.Sprintf("Block(blocked_user_id=%q)", b.BlockedUserID)
}

// Exists reports whether the block is still in place.
func (b *Block) Exists(ctx context.Context) (bool, error) {
	return NewBlocks(b.session, b.UserID).Between(ctx, b.BlockedUserID)
}

// Unblock removes the block.
func (b *Block) Unblock(ctx context.Context) (bool, error) {
	return NewBlocks(b.session, b.UserID).Unblock(ctx, b.BlockedUserID)
}
