package proposal

import (
	"strings"

	"github.com/veergo/motorbff/pkg/journey"
)

// Constants stamped onto every proposal update.
const (
	productCar    = "car"
	defaultOrigin = "web"
)

// BuildURL replaces every {name} placeholder in the template with the
// corresponding variable. Unmatched placeholders stay verbatim; that is a
// caller configuration error, not raised here.
func BuildURL(template string, vars map[string]string) string {
	url := template
	for name, value := range vars {
		url = strings.ReplaceAll(url, "{"+name+"}", value)
	}

	return url
}

// Ekey returns the proposal identifier for the current request: the
// client-supplied one when present, otherwise the resolved proposal's.
func Ekey(state journey.State, req *journey.Request) string {
	if req != nil && req.Data != nil {
		if ekey, ok := req.Data["proposal_ekey"].(string); ok && ekey != "" {
			return ekey
		}
	}

	if ekey, ok := state.Lookup(journey.StateKeyProposal, "ekey"); ok {
		if str, isStr := ekey.(string); isStr {
			return str
		}
	}

	return ""
}

// Builder composes the outgoing proposal update: fixed product and origin
// stamps, then the node rule set (which ends with the diff filter).
type Builder struct {
	Rules  *Ruleset
	Origin string
}

func NewBuilder(rules *Ruleset) *Builder {
	return &Builder{
		Rules:  rules,
		Origin: defaultOrigin,
	}
}

// BuildUpdateBody returns the mutated request data to send upstream.
// A request without data is a caller contract violation.
func (b *Builder) BuildUpdateBody(state journey.State, req *journey.Request, headers map[string]string) (map[string]any, error) {
	if req == nil || req.Data == nil {
		return nil, ErrIncompleteData
	}

	req.Data["product"] = productCar
	req.Data["origin"] = b.Origin
	req.Data["is_new"] = "false"

	b.Rules.Apply(state, req, headers)

	return req.Data, nil
}
