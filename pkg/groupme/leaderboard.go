package groupme

import (
	"context"
	"fmt"
	"net/url"
)

// LikesPeriod selects the window a leaderboard covers.
type LikesPeriod string

const (
	PeriodDay   LikesPeriod = "day"
	PeriodWeek  LikesPeriod = "week"
	PeriodMonth LikesPeriod = "month"
)

// Leaderboard ranks a group's messages by likes.
type Leaderboard struct {
	session *Session
	groupID string
}

// NewLeaderboard creates a leaderboard manager scoped to the given group.
func NewLeaderboard(s *Session, groupID string) *Leaderboard {
	return &Leaderboard{session: s, groupID: groupID}
}

type leaderboardResponse struct {
	Messages []*Message `json:"messages"`
}

func (l *Leaderboard) list(ctx context.Context, path string, query url.Values) ([]*Message, error) {
	result, err := get[leaderboardResponse](ctx, l.session, path, query)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Messages {
		if err := msg.bind(l.session); err != nil {
			return nil, err
		}
	}
	return result.Messages, nil
}

// Likes returns the group's most-liked messages within the period.
func (l *Leaderboard) Likes(ctx context.Context, period LikesPeriod) ([]*Message, error) {
	query := url.Values{}
	query.Set("period", string(period))
	return l.list(ctx, fmt.Sprintf("groups/%s/likes", l.groupID), query)
}

// MyLikes returns the messages the authenticated user has liked in the group.
func (l *Leaderboard) MyLikes(ctx context.Context) ([]*Message, error) {
	return l.list(ctx, fmt.Sprintf("groups/%s/likes/mine", l.groupID), nil)
}

// MyHits returns the authenticated user's own messages that others liked.
func (l *Leaderboard) MyHits(ctx context.Context) ([]*Message, error) {
	return l.list(ctx, fmt.Sprintf("groups/%s/likes/for_me", l.groupID), nil)
}
