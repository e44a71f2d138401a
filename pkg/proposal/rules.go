package proposal

import (
	"strconv"
	"time"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/objectpath"
)

// Answer provenance for derived previous-policy fields.
const (
	SourceUser    = "user"
	SourceAssumed = "assumed"
)

// Vehicle-age thresholds (whole years) for previous-policy-type
// inference. Both are always evaluated; bundled is written second and
// wins when the vehicle satisfies both.
const (
	bundledAgeYears = 2
	odOnlyAgeYears  = 3
)

// Ruleset applies the per-node mutations to an outgoing proposal update
// and finishes with the unchanged-field diff filter. All lookups tolerate
// missing optional data; only req.Data itself is required by the caller.
type Ruleset struct {
	diff config.DiffConfig
	now  func() time.Time
}

func NewRuleset(diff config.DiffConfig) *Ruleset {
	return &Ruleset{
		diff: diff,
		now:  time.Now,
	}
}

// Apply mutates req.Data in place according to the current node. Headers
// are part of the executor contract but no rule consumes them today.
func (r *Ruleset) Apply(state journey.State, req *journey.Request, _ map[string]string) {
	r.defaultCommercialFlag(state, req)
	r.propagateOwnDamageExpiry(state, req)
	r.normalizeExpiredAnswer(req)
	r.applyPreviousPolicyConfirmation(state, req)
	r.purgeVerificationFields(req)
	r.inferPolicyTypeFromVehicleAge(state, req)
	r.suppressRedundantRegistrationDate(state, req)

	proposal, _ := state.Proposal()
	FilterUnchanged(r.diff, req, proposal)
}

// defaultCommercialFlag forces is_commercial to false on identity and
// previous-policy nodes while the proposal has no explicit value. An
// explicit value, including false, is never overwritten.
func (r *Ruleset) defaultCommercialFlag(state journey.State, req *journey.Request) {
	switch req.CurrentNode {
	case journey.NodeUserInfo, journey.NodePreviousPolicyConfirmation, journey.NodePreviousClaimConfirmation:
	default:
		return
	}

	proposal, ok := state.Proposal()
	if !ok {
		return
	}

	current, found := objectpath.Lookup(proposal, "vehicle.is_commercial")
	if !found || current == nil {
		req.Data["is_commercial"] = false
	}
}

// propagateOwnDamageExpiry copies the previous-policy expiry date into the
// own-damage field on vehicle-edit and checkout nodes when the proposal
// carries own-damage-only cover.
func (r *Ruleset) propagateOwnDamageExpiry(state journey.State, req *journey.Request) {
	if req.CurrentNode != journey.NodeEditMMVDetails && req.CurrentNode != journey.NodeCheckoutDetails {
		return
	}

	odOnly, _ := state.Lookup(journey.StateKeyProposal, "context.check_od_only")
	if truthy(odOnly) && truthy(req.Data["previous_policy_expiry_date"]) {
		req.Data["own_damage_pped"] = req.Data["previous_policy_expiry_date"]
	}
}

// normalizeExpiredAnswer converts the three-way expiry answer into a
// boolean plus provenance: explicit yes/no is user-supplied, not-sure is
// assumed not expired.
func (r *Ruleset) normalizeExpiredAnswer(req *journey.Request) {
	answer, ok := req.Data["previous_policy_expired"].(string)
	if !ok {
		return
	}

	switch answer {
	case "yes":
		req.Data["previous_policy_expired"] = true
		req.Data["previous_policy_expired_status"] = SourceUser
	case "no":
		req.Data["previous_policy_expired"] = false
		req.Data["previous_policy_expired_status"] = SourceUser
	case "not-sure":
		req.Data["previous_policy_expired"] = false
		req.Data["previous_policy_expired_status"] = SourceAssumed
	}
}

func (r *Ruleset) applyPreviousPolicyConfirmation(state journey.State, req *journey.Request) {
	if req.CurrentNode != journey.NodePreviousPolicyConfirmation {
		return
	}

	_, hasProposal := state.Proposal()

	// The client answered the expiry question, so derive concrete expiry
	// dates from the selected bucket unless the flow is about to re-enter
	// vehicle editing where the user supplies real dates.
	_, answered := req.Data["previous_policy_expired"]
	if answered && req.ExpectedNode != journey.NodeEditMMVDetails && hasProposal {
		bucket, _ := req.DataString("policy_status")
		expired := req.Data["previous_policy_expired"] == true

		epoch := strconv.FormatInt(expiryEpochForBucket(bucket, expired, r.now()), 10)
		req.Data["previous_policy_expiry_date"] = epoch
		req.Data["previous_policy_expiry_date_source"] = SourceUser
		req.Data["own_damage_pped"] = epoch
		req.Data["own_damage_pped_source"] = SourceUser
	}

	// No claim is possible on third-party-only cover.
	if answer, _ := req.DataString("previous_policy_type"); answer == "third_party" {
		req.Data["previous_policy_claim_answer"] = "not_claimed"
	}

	if insurer, _ := state.Lookup(journey.StateKeyProposal, "previous_policy.insurer_name"); !truthy(insurer) {
		req.Data["previous_insurer_name"] = "others"
	}
}

// purgeVerificationFields drops the OTP and phone once both are present;
// they have served their purpose and must not be forwarded upstream.
func (r *Ruleset) purgeVerificationFields(req *journey.Request) {
	if req.CurrentNode != journey.NodeVerifyOTP {
		return
	}

	if truthy(req.Data["otp"]) && truthy(req.Data["phone"]) {
		delete(req.Data, "otp")
		delete(req.Data, "phone")
	}
}

func (r *Ruleset) inferPolicyTypeFromVehicleAge(state journey.State, req *journey.Request) {
	switch req.CurrentNode {
	case journey.NodeEnterMMVDetails, journey.NodeEditMMVDetails, journey.NodePreviousClaimConfirmation:
	default:
		return
	}

	year, yearOK := r.registrationField(state, req, "registration_year")
	month, monthOK := r.registrationField(state, req, "registration_month")

	if !yearOK || !monthOK {
		return
	}

	now := r.now()
	if lessThanYearsPassed(year, month, odOnlyAgeYears, now) {
		req.Data["previous_policy_type"] = "od_only"
	}

	if lessThanYearsPassed(year, month, bundledAgeYears, now) {
		req.Data["previous_policy_type"] = "bundled"
	}
}

// registrationField reads a registration component from the request,
// falling back to the resolved proposal's vehicle.
func (r *Ruleset) registrationField(state journey.State, req *journey.Request, field string) (int, bool) {
	if value, ok := req.Data[field]; ok && value != nil {
		return asInt(value)
	}

	value, ok := state.Lookup(journey.StateKeyProposal, "vehicle."+field)
	if !ok {
		return 0, false
	}

	return asInt(value)
}

// suppressRedundantRegistrationDate drops the registration year and month
// from the outgoing data when the proposal already holds the same values.
// Pure write suppression, not correctness-bearing.
func (r *Ruleset) suppressRedundantRegistrationDate(state journey.State, req *journey.Request) {
	proposalYear, yearOK := state.Lookup(journey.StateKeyProposal, "vehicle.registration_year")
	proposalMonth, monthOK := state.Lookup(journey.StateKeyProposal, "vehicle.registration_month")

	if !yearOK || !monthOK || !truthy(proposalYear) || !truthy(proposalMonth) {
		return
	}

	if !sameNumber(proposalYear, req.Data["registration_year"]) ||
		!sameNumber(proposalMonth, req.Data["registration_month"]) {
		return
	}

	delete(req.Data, "registration_year")
	delete(req.Data, "registration_month")
}

// sameNumber compares two loosely typed numeric values, tolerating the
// string/number mix the client and upstream produce.
func sameNumber(a, b any) bool {
	left, okA := asInt(a)
	right, okB := asInt(b)

	return okA && okB && left == right
}

// EnrichResolvedState records node-keyed derivations into the resolved
// state after a successful proposal update so later resolvers and the
// next step see them.
func EnrichResolvedState(state journey.State, req *journey.Request, result *Response) {
	switch req.CurrentNode {
	case journey.NodeEditMMVDetails:
		if value, ok := state.Lookup(journey.StateKeyProposal, "context.check_od_only"); ok {
			state["check_od_only"] = value
		}
	case journey.NodeEnterMMVDetails, journey.NodeCheckoutDetails:
		if result != nil {
			if value, ok := objectpath.Lookup(result.Data, "context.check_od_only"); ok {
				state["check_od_only"] = value
			}
		}
	case journey.NodePreviousPolicyConfirmation, journey.NodePreviousClaimConfirmation, journey.NodeUserInfo:
		if proposal, ok := state.Proposal(); ok {
			state["user_info_prefilled"] = userInfoPrefilled(proposal)

			if value, found := objectpath.Lookup(proposal, "context.check_od_only"); found {
				state["check_od_only"] = value
			}
		}
	case journey.NodeCheckoutReview:
		if result != nil && truthy(req.Data["couponId"]) {
			result.Data["delta"] = 0
		}
	}
}

func userInfoPrefilled(proposal map[string]any) bool {
	name, _ := objectpath.Lookup(proposal, "user.name")
	phone, _ := objectpath.Lookup(proposal, "user.phone")
	pincode, _ := objectpath.Lookup(proposal, "user.pincode")
	suggested, _ := objectpath.Lookup(proposal, "suggested_attributes.suggested_pincode")

	return truthy(name) && truthy(phone) && (truthy(pincode) || truthy(suggested))
}
