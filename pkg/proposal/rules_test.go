package proposal

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/journey"
)

func pinnedRuleset(diff config.DiffConfig, now time.Time) *Ruleset {
	rules := NewRuleset(diff)
	rules.now = func() time.Time { return now }

	return rules
}

func stateWithProposal(proposal map[string]any) journey.State {
	return journey.State{journey.StateKeyProposal: proposal}
}

func TestApply_DefaultsCommercialFlagWhenAbsent(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{"vehicle": map[string]any{}})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeUserInfo,
		Data:        map[string]any{"name": "Asha"},
	}

	rules.Apply(state, req, nil)

	assert.Equal(t, false, req.Data["is_commercial"])
}

func TestApply_KeepsExplicitCommercialFlag(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{
		"vehicle": map[string]any{"is_commercial": true},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodePreviousPolicyConfirmation,
		Data:        map[string]any{},
	}

	rules.Apply(state, req, nil)

	_, present := req.Data["is_commercial"]
	assert.False(t, present)
}

func TestApply_CommercialFlagUntouchedOnOtherNodes(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{"vehicle": map[string]any{}})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeCheckoutReview,
		Data:        map[string]any{},
	}

	rules.Apply(state, req, nil)

	_, present := req.Data["is_commercial"]
	assert.False(t, present)
}

func TestApply_PropagatesOwnDamageExpiry(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{
		"context": map[string]any{"check_od_only": true},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeCheckoutDetails,
		Data:        map[string]any{"previous_policy_expiry_date": "1700000000000"},
	}

	rules.Apply(state, req, nil)

	assert.Equal(t, "1700000000000", req.Data["own_damage_pped"])
}

func TestApply_NoOwnDamagePropagationWithoutODCover(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{
		"context": map[string]any{"check_od_only": false},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeEditMMVDetails,
		Data:        map[string]any{"previous_policy_expiry_date": "1700000000000"},
	}

	rules.Apply(state, req, nil)

	_, present := req.Data["own_damage_pped"]
	assert.False(t, present)
}

func TestApply_NormalizesExpiredAnswer(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		wantValue  bool
		wantSource string
	}{
		{"explicit yes", "yes", true, SourceUser},
		{"explicit no", "no", false, SourceUser},
		{"not sure is assumed current", "not-sure", false, SourceAssumed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := pinnedRuleset(nil, fixedNow)
			req := &journey.Request{
				Journey:     "motor",
				CurrentNode: journey.NodeEnterMMVDetails,
				Data:        map[string]any{"previous_policy_expired": tt.answer},
			}

			rules.Apply(journey.State{}, req, nil)

			assert.Equal(t, tt.wantValue, req.Data["previous_policy_expired"])
			assert.Equal(t, tt.wantSource, req.Data["previous_policy_expired_status"])
		})
	}
}

func TestApply_DerivesExpiryDatesFromBucket(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{
		"previous_policy": map[string]any{"insurer_name": "National"},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodePreviousPolicyConfirmation,
		Data: map[string]any{
			"previous_policy_expired": "yes",
			"policy_status":           "0-10",
		},
	}

	rules.Apply(state, req, nil)

	want := strconv.FormatInt(istMidnight(2024, 6, 6).UnixMilli(), 10)
	assert.Equal(t, want, req.Data["previous_policy_expiry_date"])
	assert.Equal(t, SourceUser, req.Data["previous_policy_expiry_date_source"])
	assert.Equal(t, want, req.Data["own_damage_pped"])
	assert.Equal(t, SourceUser, req.Data["own_damage_pped_source"])
	_, present := req.Data["previous_insurer_name"]
	assert.False(t, present)
}

func TestApply_SkipsBucketDerivationBeforeVehicleEdit(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{})
	req := &journey.Request{
		Journey:      "motor",
		CurrentNode:  journey.NodePreviousPolicyConfirmation,
		ExpectedNode: journey.NodeEditMMVDetails,
		Data: map[string]any{
			"previous_policy_expired": "yes",
			"policy_status":           "0-10",
		},
	}

	rules.Apply(state, req, nil)

	_, present := req.Data["previous_policy_expiry_date"]
	assert.False(t, present)
}

func TestApply_ThirdPartyImpliesNoClaim(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{
		"previous_policy": map[string]any{"insurer_name": "National"},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodePreviousPolicyConfirmation,
		Data:        map[string]any{"previous_policy_type": "third_party"},
	}

	rules.Apply(state, req, nil)

	assert.Equal(t, "not_claimed", req.Data["previous_policy_claim_answer"])
}

func TestApply_DefaultsUnknownInsurer(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodePreviousPolicyConfirmation,
		Data:        map[string]any{},
	}

	rules.Apply(state, req, nil)

	assert.Equal(t, "others", req.Data["previous_insurer_name"])
}

func TestApply_PurgesVerificationFields(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeVerifyOTP,
		Data: map[string]any{
			"otp":   "482913",
			"phone": "9876543210",
		},
	}

	rules.Apply(journey.State{}, req, nil)

	_, hasOTP := req.Data["otp"]
	_, hasPhone := req.Data["phone"]
	assert.False(t, hasOTP)
	assert.False(t, hasPhone)
}

func TestApply_KeepsVerificationFieldsWhenIncomplete(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeVerifyOTP,
		Data:        map[string]any{"otp": "482913"},
	}

	rules.Apply(journey.State{}, req, nil)

	assert.Equal(t, "482913", req.Data["otp"])
}

func TestApply_InfersPolicyTypeFromVehicleAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, istZone)

	tests := []struct {
		name  string
		year  int
		month int
		want  string
	}{
		{"under two years is bundled", 2023, 1, "bundled"},
		{"exactly two years on boundary month is bundled", 2022, 7, "bundled"},
		{"under three years is od_only", 2021, 7, "od_only"},
		{"over three years keeps client value", 2020, 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := pinnedRuleset(nil, now)
			req := &journey.Request{
				Journey:     "motor",
				CurrentNode: journey.NodeEnterMMVDetails,
				Data: map[string]any{
					"registration_year":  tt.year,
					"registration_month": tt.month,
				},
			}

			rules.Apply(journey.State{}, req, nil)

			if tt.want == "" {
				_, present := req.Data["previous_policy_type"]
				assert.False(t, present)
			} else {
				assert.Equal(t, tt.want, req.Data["previous_policy_type"])
			}
		})
	}
}

func TestApply_InfersAgeFromProposalWhenRequestOmitsIt(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, istZone)
	rules := pinnedRuleset(nil, now)
	state := stateWithProposal(map[string]any{
		"vehicle": map[string]any{
			"registration_year":  float64(2023),
			"registration_month": float64(5),
		},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeEditMMVDetails,
		Data:        map[string]any{},
	}

	rules.Apply(state, req, nil)

	assert.Equal(t, "bundled", req.Data["previous_policy_type"])
}

func TestApply_SuppressesRedundantRegistrationDate(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{
		"vehicle": map[string]any{
			"registration_year":  float64(2019),
			"registration_month": float64(4),
		},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeCheckoutDetails,
		Data: map[string]any{
			"registration_year":  "2019",
			"registration_month": 4,
		},
	}

	rules.Apply(state, req, nil)

	_, hasYear := req.Data["registration_year"]
	_, hasMonth := req.Data["registration_month"]
	assert.False(t, hasYear)
	assert.False(t, hasMonth)
}

func TestApply_KeepsChangedRegistrationDate(t *testing.T) {
	rules := pinnedRuleset(nil, fixedNow)
	state := stateWithProposal(map[string]any{
		"vehicle": map[string]any{
			"registration_year":  float64(2019),
			"registration_month": float64(4),
		},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeCheckoutDetails,
		Data: map[string]any{
			"registration_year":  "2020",
			"registration_month": 4,
		},
	}

	rules.Apply(state, req, nil)

	assert.Equal(t, "2020", req.Data["registration_year"])
	assert.Equal(t, 4, req.Data["registration_month"])
}

func TestEnrichResolvedState_UserInfoPrefilled(t *testing.T) {
	state := stateWithProposal(map[string]any{
		"user": map[string]any{
			"name":  "Asha",
			"phone": "9876543210",
		},
		"suggested_attributes": map[string]any{"suggested_pincode": "560034"},
	})
	req := &journey.Request{Journey: "motor", CurrentNode: journey.NodeUserInfo, Data: map[string]any{}}

	EnrichResolvedState(state, req, &Response{Status: 200, Data: map[string]any{}})

	assert.Equal(t, true, state["user_info_prefilled"])
}

func TestEnrichResolvedState_UserInfoMissingPhone(t *testing.T) {
	state := stateWithProposal(map[string]any{
		"user": map[string]any{"name": "Asha", "pincode": "560034"},
	})
	req := &journey.Request{Journey: "motor", CurrentNode: journey.NodePreviousClaimConfirmation, Data: map[string]any{}}

	EnrichResolvedState(state, req, &Response{Status: 200, Data: map[string]any{}})

	assert.Equal(t, false, state["user_info_prefilled"])
}

func TestEnrichResolvedState_CheckODOnlyFromResult(t *testing.T) {
	state := stateWithProposal(map[string]any{})
	req := &journey.Request{Journey: "motor", CurrentNode: journey.NodeCheckoutDetails, Data: map[string]any{}}
	result := &Response{
		Status: 200,
		Data:   map[string]any{"context": map[string]any{"check_od_only": true}},
	}

	EnrichResolvedState(state, req, result)

	assert.Equal(t, true, state["check_od_only"])
}

func TestEnrichResolvedState_CouponResetsDelta(t *testing.T) {
	state := stateWithProposal(map[string]any{})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeCheckoutReview,
		Data:        map[string]any{"couponId": "SAVE10"},
	}
	result := &Response{Status: 200, Data: map[string]any{"delta": float64(250)}}

	EnrichResolvedState(state, req, result)

	assert.Equal(t, 0, result.Data["delta"])
}

func TestApply_RunsDiffFilterLast(t *testing.T) {
	diff := config.DiffConfig{"pincode": "user.pincode"}
	rules := pinnedRuleset(diff, fixedNow)
	state := stateWithProposal(map[string]any{
		"user": map[string]any{"pincode": "560034"},
	})
	req := &journey.Request{
		Journey:     "motor",
		CurrentNode: journey.NodeCheckoutReview,
		Data: map[string]any{
			"pincode": "560034",
			"email":   "asha@example.com",
		},
	}

	rules.Apply(state, req, nil)

	_, present := req.Data["pincode"]
	require.False(t, present)
	assert.Equal(t, "asha@example.com", req.Data["email"])
}
