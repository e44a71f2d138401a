package proposal

import (
	"reflect"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/objectpath"
)

// FilterUnchanged removes from req.Data every key whose proposed value
// already equals the value at the mapped path inside source, so the
// upstream never receives a no-op write. Keys without a mapping are left
// alone. Each key is decided independently and the filter is idempotent.
func FilterUnchanged(diff config.DiffConfig, req *journey.Request, source map[string]any) *journey.Request {
	if req == nil || req.Data == nil {
		return req
	}

	for key, value := range req.Data {
		dotted, mapped := diff[key]
		if !mapped {
			continue
		}

		current, found := objectpath.Lookup(source, dotted)
		if found && reflect.DeepEqual(current, value) {
			delete(req.Data, key)
		}
	}

	return req
}
