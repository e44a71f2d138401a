package proposal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/journey"
)

var testErrors = config.ErrorConfig{
	"COMMERCIAL_VEHICLE": {Priority: 1, Action: config.ActionSameNode, Message: "We only insure private vehicles at the moment."},
	"PROPOSAL_EXPIRED":   {Priority: 2, Action: "restart_journey", Message: "Your quote has expired."},
	"PLAN_UNAVAILABLE":   {Priority: 3, Action: "previous_node"},
}

func TestArbitrate_NoErrors(t *testing.T) {
	state := journey.State{
		"proposal": map[string]any{"ekey": "abc"},
	}

	result, err := Arbitrate(state, testErrors)

	require.NoError(t, err)
	assert.Nil(t, result.Data)
	assert.Equal(t, 200, result.Status)
}

func TestArbitrate_LowestPriorityWins(t *testing.T) {
	state := journey.State{
		"proposal":   map[string]any{"error_code": "PLAN_UNAVAILABLE"},
		"mo_premium": map[string]any{"error_code": "PROPOSAL_EXPIRED"},
	}

	result, err := Arbitrate(state, testErrors)

	require.NoError(t, err)
	record, ok := result.Data.(ErrorRecord)
	require.True(t, ok)
	assert.Equal(t, "PROPOSAL_EXPIRED", record.Code)
	assert.Equal(t, 200, result.Status)
}

func TestArbitrate_SameNodeRaises(t *testing.T) {
	state := journey.State{
		"proposal": map[string]any{"error_code": "COMMERCIAL_VEHICLE"},
	}

	result, err := Arbitrate(state, testErrors)

	require.Nil(t, result)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "COMMERCIAL_VEHICLE", apiErr.Code)
	assert.Equal(t, config.ActionSameNode, apiErr.Details.Action)
}

func TestArbitrate_EntryActionHonoredForSameNode(t *testing.T) {
	state := journey.State{
		"proposal": map[string]any{
			"error_code": "PLAN_UNAVAILABLE",
			"action":     config.ActionSameNode,
		},
	}

	_, err := Arbitrate(state, testErrors)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "PLAN_UNAVAILABLE", apiErr.Code)
}

func TestArbitrate_UnknownCodesIgnored(t *testing.T) {
	state := journey.State{
		"proposal": map[string]any{"error_code": "NEVER_CONFIGURED"},
	}

	result, err := Arbitrate(state, testErrors)

	require.NoError(t, err)
	assert.Nil(t, result.Data)
}

func TestArbitrate_PriorityTieBreaksOnStateKey(t *testing.T) {
	tied := config.ErrorConfig{
		"ERR_A": {Priority: 5, Action: "previous_node"},
		"ERR_B": {Priority: 5, Action: "previous_node"},
	}
	state := journey.State{
		"zz_entry": map[string]any{"error_code": "ERR_A"},
		"aa_entry": map[string]any{"error_code": "ERR_B"},
	}

	// Run repeatedly; the winner must not depend on map iteration order.
	for range 20 {
		result, err := Arbitrate(state, tied)

		require.NoError(t, err)
		record, ok := result.Data.(ErrorRecord)
		require.True(t, ok)
		assert.Equal(t, "ERR_B", record.Code)
	}
}

func TestArbitrate_NonMapEntriesSkipped(t *testing.T) {
	state := journey.State{
		"oldPremium": float64(4500),
		"proposal":   map[string]any{"error_code": "PROPOSAL_EXPIRED"},
	}

	result, err := Arbitrate(state, testErrors)

	require.NoError(t, err)
	record, ok := result.Data.(ErrorRecord)
	require.True(t, ok)
	assert.Equal(t, "PROPOSAL_EXPIRED", record.Code)
}
