package proposal

import (
	"errors"
	"fmt"

	"github.com/veergo/motorbff/pkg/config"
)

// ErrIncompleteData signals a caller contract violation: the update body
// cannot be built without request data. Never retried.
var ErrIncompleteData = errors.New("data incomplete for update proposal request")

// APIError carries the single arbitrated upstream failure that must keep
// the user on the current node. The executor catches it exactly once and
// translates it for the client.
type APIError struct {
	Code    string              `json:"code"`
	Details config.ErrorDetails `json:"error_details"`
}

func (e *APIError) Error() string {
	if e.Details.Message != "" {
		return fmt.Sprintf("upstream error %s: %s", e.Code, e.Details.Message)
	}

	return fmt.Sprintf("upstream error %s", e.Code)
}

// IllogicalFlowError is raised when the upstream accepted the request
// envelope (2xx) but rejected it semantically in the payload.
type IllogicalFlowError struct {
	Message string
}

func (e *IllogicalFlowError) Error() string {
	return fmt.Sprintf("proposal update rejected: %s", e.Message)
}
