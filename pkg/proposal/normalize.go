package proposal

import (
	"strings"

	"github.com/veergo/motorbff/pkg/objectpath"
)

// DefaultEpochDatePaths lists the proposal fields the upstream encodes as
// epoch milliseconds.
var DefaultEpochDatePaths = []string{
	"vehicle.previous_policy.expiry_date",
	"vehicle.previous_policy.own_damage_policy_expiry_date",
	"vehicle.previous_policy.policy_expiry_date_max",
	"vehicle.previous_policy.policy_expiry_date_min",
	"vehicle.previous_policy.third_party_policy_expiry_date",
	"payment_attributes.payment_date",
}

const expiryDatePath = "vehicle.previous_policy.expiry_date"

// NormalizeEpochDates converts the configured epoch fields of a 2xx
// response into display strings, keeping the ISO-8601 form in a sibling
// field suffixed "v1". The previous-policy expiry date additionally gains
// a "v2" variant with the ordinal day and year only. Absent or empty
// fields and non-2xx responses are left untouched.
func NormalizeEpochDates(resp *Response, dottedPaths []string) *Response {
	if resp == nil || resp.Data == nil {
		return resp
	}

	if resp.OK() {
		for _, dotted := range dottedPaths {
			path := objectpath.Parse(dotted)

			value, found := objectpath.Get(resp.Data, path)
			if !found {
				continue
			}

			epoch, ok := asEpochMillis(value)
			if !ok || epoch == 0 {
				continue
			}

			objectpath.Set(resp.Data, objectpath.Parse(dotted+"v1"), epochToISO(epoch))
			objectpath.Set(resp.Data, path, epochToDisplay(epoch))
		}
	}

	// Display variant without the month token, e.g. "06 Jun 2024" -> "06 2024".
	// Only the expiry date gets this; it is a narrow display requirement,
	// not a general rule.
	if display, ok := objectpath.GetString(resp.Data, objectpath.Parse(expiryDatePath)); ok {
		parts := strings.Split(display, " ")
		if len(parts) == 3 {
			objectpath.Set(resp.Data, objectpath.Parse(expiryDatePath+"v2"), parts[0]+" "+parts[2])
		}
	}

	return resp
}

// DetectIllogicalFlow raises when the upstream returned 200 but the
// payload itself carries an application-level error: the envelope was
// accepted, the request was not. The status is rewritten to 400 so
// downstream consumers never treat the response as success, and the
// embedded message is copied into errorMessage for the client.
func DetectIllogicalFlow(resp *Response) error {
	if resp == nil || resp.Status != 200 || resp.Data == nil {
		return nil
	}

	_, hasCode := resp.Data["error_code"]
	_, hasMessage := resp.Data["error_message"]

	if !hasCode && !hasMessage {
		return nil
	}

	message, ok := resp.Data["error_message"].(string)
	if !ok {
		message, _ = resp.Data["error_code"].(string)
	}

	resp.Status = 400
	resp.Data["errorMessage"] = message

	return &IllogicalFlowError{Message: message}
}
