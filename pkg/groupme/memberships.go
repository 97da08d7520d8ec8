package groupme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Default pacing for MembershipRequest.Poll.
const (
	DefaultPollTimeout  = 30 * time.Second
	DefaultPollInterval = 2 * time.Second
)

// Memberships manages the members of a single group.
type Memberships struct {
	session *Session
	groupID string
}

// NewMemberships creates a membership manager scoped to the given group.
func NewMemberships(s *Session, groupID string) *Memberships {
	return &Memberships{session: s, groupID: groupID}
}

// MemberRequest describes one member to add to a group. Exactly one of
// UserID, PhoneNumber, or Email identifies the user. GUID is an idempotency
// key used to match the record against the server's results; Add assigns one
// when it is empty.
type MemberRequest struct {
	GUID        string `json:"guid,omitempty"`
	Nickname    string `json:"nickname"`
	UserID      string `json:"user_id,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`
}

type addMembersRequest struct {
	Members []MemberRequest `json:"members"`
}

type addMembersResponse struct {
	ResultsID string `json:"results_id"`
}

type checkResultsResponse struct {
	Members []json.RawMessage `json:"members"`
}

// Add submits a batch of members to add to the group. The backend processes
// the batch asynchronously; the returned MembershipRequest polls for the
// outcome. Records without a GUID get a random one before submission.
func (m *Memberships) Add(ctx context.Context, reqs ...MemberRequest) (*MembershipRequest, error) {
	batch := make([]MemberRequest, len(reqs))
	copy(batch, reqs)
	for i := range batch {
		if batch[i].GUID == "" {
			guid, err := newGUID()
			if err != nil {
				return nil, err
			}
			batch[i].GUID = guid
		}
	}

	path := fmt.Sprintf("groups/%s/members/add", m.groupID)
	result, err := post[addMembersResponse](ctx, m.session, path, addMembersRequest{Members: batch})
	if err != nil {
		return nil, err
	}

	return &MembershipRequest{
		manager:   m,
		requests:  batch,
		resultsID: result.ResultsID,
	}, nil
}

// Check fetches the raw member records produced by a bulk add. It fails
// with ErrResultsNotReady while the server is still processing (503) and
// with ErrResultsExpired once the server has purged the job (404). Any
// other non-2xx status propagates as a *APIError, unclassified.
func (m *Memberships) Check(ctx context.Context, resultsID string) ([]json.RawMessage, error) {
	path := fmt.Sprintf("groups/%s/members/results/%s", m.groupID, resultsID)
	result, err := get[checkResultsResponse](ctx, m.session, path, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			switch apiErr.StatusCode {
			case http.StatusServiceUnavailable:
				return nil, fmt.Errorf("groupme: results %s: %w", resultsID, ErrResultsNotReady)
			case http.StatusNotFound:
				return nil, fmt.Errorf("groupme: results %s: %w", resultsID, ErrResultsExpired)
			}
		}
		return nil, err
	}
	return result.Members, nil
}

// Remove removes a member from the group by membership id. It reports the
// server's verdict: true on success, false when the server rejected the
// removal. Transport failures are returned as errors.
func (m *Memberships) Remove(ctx context.Context, membershipID string) (bool, error) {
	path := fmt.Sprintf("groups/%s/members/%s/remove", m.groupID, membershipID)
	_, err := post[json.RawMessage](ctx, m.session, path, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Update changes the caller's own nickname in the group.
func (m *Memberships) Update(ctx context.Context, nickname string) (*Member, error) {
	path := fmt.Sprintf("groups/%s/memberships/update", m.groupID)
	payload := map[string]map[string]string{
		"membership": {"nickname": nickname},
	}
	member, err := post[Member](ctx, m.session, path, payload)
	if err != nil {
		return nil, err
	}
	member.bind(m.session)
	return member, nil
}

// MembershipResults partitions a processed add batch. Members holds the
// records the server confirmed, Failures the submitted records it did not,
// both in original submission order.
type MembershipResults struct {
	Members  []*Member
	Failures []MemberRequest
}

// MembershipRequest tracks an in-flight bulk add of members to a group.
//
// The request starts pending. Each IsReady call performs one status check
// until the server either returns results (ready) or reports the job purged
// (expired); neither state is ever left again. "Ready" means polling is
// finished — it does not mean the add succeeded. Call Get for the outcome.
//
// A MembershipRequest is owned by its creating caller and is not safe for
// concurrent use.
type MembershipRequest struct {
	manager   *Memberships
	requests  []MemberRequest
	resultsID string

	ready       bool
	notReadyErr error
	expiredErr  error
	results     *MembershipResults
}

// ResultsID returns the server-issued handle used to poll for results.
func (r *MembershipRequest) ResultsID() string { return r.resultsID }

// IsReady reports whether polling is finished, performing one status check
// when the outcome is not yet known. Expiry counts as ready: Get has a
// definitive (failing) answer. The returned error is non-nil only for
// generic transport failures, which never change the request's state.
func (r *MembershipRequest) IsReady(ctx context.Context) (bool, error) {
	if r.ready {
		return true, nil
	}

	records, err := r.manager.Check(ctx, r.resultsID)
	switch {
	case err == nil:
		results, err := r.reconcile(records)
		if err != nil {
			return false, err
		}
		r.results = results
		r.ready = true
		r.notReadyErr = nil
	case errors.Is(err, ErrResultsNotReady):
		r.notReadyErr = err
	case errors.Is(err, ErrResultsExpired):
		r.ready = true
		r.expiredErr = err
	default:
		return false, err
	}
	return r.ready, nil
}

// reconcile partitions the requested batch against the server's records.
// Records are indexed by guid; each requested record either matches one
// (guid stripped, remaining fields become a Member) or is appended to the
// failures unchanged. Returned records with an unknown guid are ignored.
func (r *MembershipRequest) reconcile(records []json.RawMessage) (*MembershipResults, error) {
	byGUID := make(map[string]map[string]json.RawMessage, len(records))
	for _, rec := range records {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rec, &fields); err != nil {
			return nil, fmt.Errorf("groupme: decode member record: %w", err)
		}
		var guid string
		if raw, ok := fields["guid"]; ok {
			if err := json.Unmarshal(raw, &guid); err != nil {
				return nil, fmt.Errorf("groupme: decode member record guid: %w", err)
			}
		}
		if guid == "" {
			continue
		}
		delete(fields, "guid")
		byGUID[guid] = fields
	}

	results := &MembershipResults{}
	for _, req := range r.requests {
		fields, ok := byGUID[req.GUID]
		if !ok {
			results.Failures = append(results.Failures, req)
			continue
		}
		data, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("groupme: reassemble member record: %w", err)
		}
		member := new(Member)
		if err := json.Unmarshal(data, member); err != nil {
			return nil, fmt.Errorf("groupme: decode member: %w", err)
		}
		member.bind(r.manager.session)
		results.Members = append(results.Members, member)
	}
	return results, nil
}

// Get returns the reconciled results. Expiry is sticky: once recorded it
// always wins, regardless of anything fetched before or after. Before the
// first successful reconciliation Get fails with ErrResultsNotReady.
func (r *MembershipRequest) Get() (*MembershipResults, error) {
	if r.expiredErr != nil {
		return nil, r.expiredErr
	}
	if r.results == nil {
		if r.notReadyErr != nil {
			return nil, r.notReadyErr
		}
		return nil, ErrResultsNotReady
	}
	return r.results, nil
}

// Poll blocks until the request is ready or timeout elapses, sleeping
// interval between checks, then returns Get. A timeout of zero (or less)
// performs a single check and returns immediately; a non-positive interval
// falls back to DefaultPollInterval. Hitting the timeout surfaces
// ErrResultsNotReady — an expected outcome, distinguishable from
// ErrResultsExpired. Checks are strictly sequential; ctx cancels the wait.
func (r *MembershipRequest) Poll(ctx context.Context, timeout, interval time.Duration) (*MembershipResults, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		ready, err := r.IsReady(ctx)
		if err != nil {
			return nil, err
		}
		if ready || !time.Now().Before(deadline) {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return r.Get()
}
