package archive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/flemzord/groupme/pkg/groupme"
)

const syncPageSize = 100

// Lister fetches pages of group messages. *groupme.Messages satisfies it.
type Lister interface {
	List(ctx context.Context, opts groupme.ListMessagesOptions) ([]*groupme.Message, error)
}

// Sync fetches every message newer than the archive's sync point and stores
// it, paging forward until the feed is exhausted. It returns the number of
// messages stored. Sync state is advanced after each stored page, so an
// interrupted sync resumes where it left off.
func (s *Store) Sync(ctx context.Context, lister Lister, groupID string) (int, error) {
	last, err := s.LastMessageID(ctx, groupID)
	if err != nil {
		return 0, err
	}

	var total int
	for {
		msgs, err := lister.List(ctx, groupme.ListMessagesOptions{
			AfterID: last,
			Limit:   syncPageSize,
		})
		if err != nil {
			// The API answers 304 when nothing is newer than after_id.
			var apiErr *groupme.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotModified {
				break
			}
			return total, fmt.Errorf("archive: list messages after %q: %w", last, err)
		}
		if len(msgs) == 0 {
			break
		}

		if err := s.Insert(ctx, groupID, msgs...); err != nil {
			return total, err
		}
		total += len(msgs)

		last = msgs[len(msgs)-1].ID
		if err := s.setLastMessageID(ctx, groupID, last); err != nil {
			return total, err
		}

		if len(msgs) < syncPageSize {
			break
		}
	}

	s.logger.Info("archive synced", "group_id", groupID, "messages", total)
	return total, nil
}
