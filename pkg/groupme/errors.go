package groupme

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the membership results lifecycle and the typed field
// accessor. Match with errors.Is.
var (
	// ErrResultsNotReady signals that the server is still processing a bulk
	// member add. Transient: retry the check or keep polling.
	ErrResultsNotReady = errors.New("membership results not ready")

	// ErrResultsExpired signals that the server has purged the results of a
	// bulk member add. Terminal: resubmit the add to retry.
	ErrResultsExpired = errors.New("membership results expired")

	// ErrUnknownField is returned by Fields.Field for names the server did
	// not send.
	ErrUnknownField = errors.New("unknown field")
)

// APIError represents a non-2xx response from the GroupMe API. The status
// code and any error strings from the response's meta block are attached
// unmodified; the client never reclassifies generic failures.
type APIError struct {
	StatusCode int
	Errors     []string
	Body       []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("groupme: HTTP %d: %s", e.StatusCode, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("groupme: HTTP %d", e.StatusCode)
}
