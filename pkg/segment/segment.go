// Package segment builds the flat analytics-profile projection of the
// resolved journey state.
package segment

import (
	"encoding/json"
	"net/http"

	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/objectpath"
	"github.com/veergo/motorbff/pkg/proposal"
)

// Resolver entries copied into the segment payload when present.
var resolverKeys = []string{
	journey.StateKeyMOProposal,
	"mo_plans",
	"mo_plan_details",
	"getCoupons",
	"mo_premium",
}

// proposalFields maps flat segment keys to their dotted location in the
// resolved proposal.
var proposalFields = map[string]string{
	"proposal_id":                   "ekey",
	"phone":                         "user.phone",
	"user_name":                     "user.name",
	"email":                         "user.email",
	"pan_number":                    "user.pan_number",
	"user_pincode_journey":          "user.pincode",
	"registration_number":           "vehicle.registration_number",
	"make_name":                     "vehicle.make_name",
	"model_name":                    "vehicle.model_name",
	"variant_id":                    "vehicle.variant_id",
	"variant_name":                  "vehicle.variant_name",
	"engine_cc":                     "vehicle.engine_cc",
	"fuel_type":                     "vehicle.fuel_type",
	"registration_year":             "vehicle.registration_year",
	"registration_month":            "vehicle.registration_month",
	"is_commercial":                 "vehicle.is_commercial",
	"chassis_number":                "vehicle.chassis_number",
	"engine_number":                 "vehicle.engine_number",
	"rto_zone":                      "vehicle.rto_zone",
	"external_cng_kit":              "vehicle.external_cng_kit",
	"is_expired":                    "vehicle.previous_policy.is_expired",
	"previous_policy_type":          "vehicle.previous_policy.policy_type",
	"previous_policy_expiry_bucket": "vehicle.previous_policy.expiry_bucket",
	"previous_insurer":              "vehicle.previous_policy.insurer_name",
	"previous_policy_expiry_date":   "vehicle.previous_policy.expiry_date",
	"previous_od_expiry_date":       "vehicle.previous_policy.od_expiry_date",
	"previous_tp_expiry_date":       "vehicle.previous_policy.tp_expiry_date",
	"previous_ncb":                  "vehicle.previous_policy.ncb",
	"previous_idv":                  "vehicle.previous_policy.idv",
	"last_year_claim_flag":          "vehicle.previous_policy.claim_taken",
	"last_claim_year":               "vehicle.previous_policy.last_claim_year",
	"current_ncb":                   "policy_attributes.ncb",
	"is_inspection_reqd":            "policy_attributes.is_inspection_required",
	"journey_version":               "journey_version",
	"logged_in":                     "user.logged_in",
	"asset_type":                    "product",
}

// Build copies the known resolver entries out of state, projects the raw
// proposal into flat segment fields and drops empty values.
func Build(state journey.State) *proposal.Result {
	data := make(map[string]any)

	for _, key := range resolverKeys {
		if entry, ok := state[key]; ok && entry != nil {
			data[key] = cloneValue(entry)
		}
	}

	if raw, ok := objectpath.GetMap(map[string]any(state), objectpath.Parse(journey.StateKeyMOProposal)); ok {
		for field, path := range proposalFields {
			if value, found := objectpath.Lookup(raw, path); found {
				data[field] = value
			}
		}
	}

	return &proposal.Result{Data: sanitize(data), Status: http.StatusOK}
}

// sanitize drops keys whose values carry no information.
func sanitize(data map[string]any) map[string]any {
	clean := make(map[string]any, len(data))

	for key, value := range data {
		if value == nil {
			continue
		}

		if str, isStr := value.(string); isStr && str == "" {
			continue
		}

		clean[key] = value
	}

	return clean
}

func cloneValue(value any) any {
	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}

	var clone any
	if err := json.Unmarshal(raw, &clone); err != nil {
		return value
	}

	return clone
}
