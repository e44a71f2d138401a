// Package journey defines the request and resolved-state model shared by
// every step of the purchase flow.
package journey

import (
	"github.com/veergo/motorbff/pkg/objectpath"
)

// Workflow node identifiers. A node value outside this set matches no
// mutation rule and is passed through untouched.
const (
	NodeUserInfo                   = "user_info_node"
	NodePreviousPolicyConfirmation = "previous_policy_confirmation_node"
	NodePreviousClaimConfirmation  = "previous_claim_confirmation_node"
	NodeEnterMMVDetails            = "enter_mmv_details_node"
	NodeEditMMVDetails             = "edit_mmv_details_node"
	NodeCheckoutDetails            = "checkout_details_node"
	NodeCheckoutReview             = "checkout_review_node"
	NodeVerifyOTP                  = "verify_otp_node"

	// NodeUnknown is the fallback when a client omits current_node.
	NodeUnknown = "unknown"
)

// Resolved-state keys written by the upstream client.
const (
	StateKeyProposal   = "proposal"
	StateKeyMOProposal = "mo_proposal"
)

// Request is the inbound mutation payload for one workflow step. Data is
// mutated in place by the rule set; callers must tolerate that.
type Request struct {
	Journey      string         `json:"journey"       validate:"required"`
	CurrentNode  string         `json:"current_node"`
	ExpectedNode string         `json:"expected_node,omitempty"`
	Data         map[string]any `json:"data"          validate:"required"`
}

// DataString returns a string value from the request data.
func (r *Request) DataString(key string) (string, bool) {
	if r == nil || r.Data == nil {
		return "", false
	}

	value, ok := r.Data[key].(string)

	return value, ok
}

// State accumulates previously fetched or derived objects for the current
// request, keyed by logical source name. It is owned by a single request
// end to end and is not safe for uncoordinated concurrent writers.
type State map[string]any

// Proposal returns the resolved proposal object, if present.
func (s State) Proposal() (map[string]any, bool) {
	proposal, ok := s[StateKeyProposal].(map[string]any)

	return proposal, ok
}

// Lookup resolves a dotted path rooted at a state entry, e.g.
// Lookup("proposal", "vehicle.is_commercial").
func (s State) Lookup(key, dotted string) (any, bool) {
	entry, ok := s[key]
	if !ok {
		return nil, false
	}

	return objectpath.Lookup(entry, dotted)
}
