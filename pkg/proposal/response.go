// Package proposal implements the node-conditional mutation and
// response-normalization pipeline for upstream proposal calls: building
// update bodies per workflow node, suppressing no-op writes, normalizing
// response encodings and arbitrating among concurrent upstream failures.
package proposal

import "net/http"

// Response is the normalized shape of one upstream call outcome, success
// or failure. Data is the decoded JSON body.
type Response struct {
	Status int            `json:"status"`
	Data   map[string]any `json:"data"`
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r != nil && r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}
