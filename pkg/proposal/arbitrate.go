package proposal

import (
	"sort"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/journey"
)

// Result is the arbitrated outcome of one step: either no upstream
// failure (nil data) or the single error record the client should act on.
type Result struct {
	Data   any `json:"data"`
	Status int `json:"status"`
}

// ErrorRecord pairs an upstream error code with its configured details.
// The optional Action mirrors an action carried on the state entry
// itself, overriding nothing but also honored for same_node.
type ErrorRecord struct {
	Code    string              `json:"code"`
	Details config.ErrorDetails `json:"error_details"`
	Action  string              `json:"action,omitempty"`
}

// Arbitrate scans every settled resolver entry for a configured error
// code and surfaces exactly one failure: the lowest configured priority
// wins, ties break on the state key (first lexicographically), so the
// outcome never depends on map iteration order. A same_node winner is
// raised as an *APIError for the executor to keep the user on the current
// step; any other action is returned as a soft result. Lower-priority
// concurrent failures are dropped from the client-visible outcome.
func Arbitrate(state journey.State, lookup config.ErrorLookup) (*Result, error) {
	keys := make([]string, 0, len(state))
	for key := range state {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	records := make([]ErrorRecord, 0, 1)

	for _, key := range keys {
		entry, ok := state[key].(map[string]any)
		if !ok {
			continue
		}

		code, ok := entry["error_code"].(string)
		if !ok {
			continue
		}

		details, known := lookup.Lookup(code)
		if !known {
			continue
		}

		record := ErrorRecord{Code: code, Details: details}
		if action, ok := entry["action"].(string); ok {
			record.Action = action
		}

		records = append(records, record)
	}

	if len(records) == 0 {
		return &Result{Data: nil, Status: 200}, nil
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Details.Priority < records[j].Details.Priority
	})

	winner := records[0]
	if winner.Details.Action == config.ActionSameNode || winner.Action == config.ActionSameNode {
		return nil, &APIError{Code: winner.Code, Details: winner.Details}
	}

	return &Result{Data: winner, Status: 200}, nil
}
