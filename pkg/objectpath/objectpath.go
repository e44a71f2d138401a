// Package objectpath walks nested map/slice structures by an explicit,
// pre-parsed path instead of ad-hoc string splitting at every call site.
// Missing or mistyped intermediate nodes yield an absent result, never a
// panic.
package objectpath

import (
	"strconv"
	"strings"
)

// Path is an ordered list of field-name or index segments.
type Path []string

// Parse splits a dotted path ("vehicle.previous_policy.expiry_date") into
// its segments. An empty string parses to an empty path.
func Parse(dotted string) Path {
	if dotted == "" {
		return Path{}
	}

	return Path(strings.Split(dotted, "."))
}

// String reassembles the path into its dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Get resolves the path against obj. The second return value reports
// whether every segment resolved; a stored nil value resolves as present.
// Numeric segments index into []any values.
func Get(obj any, path Path) (any, bool) {
	current := obj

	for _, segment := range path {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[segment]
			if !ok {
				return nil, false
			}

			current = value
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}

			current = node[idx]
		default:
			return nil, false
		}
	}

	return current, true
}

// Lookup is Get for a dotted path string.
func Lookup(obj any, dotted string) (any, bool) {
	return Get(obj, Parse(dotted))
}

// Set writes value at path inside obj, creating intermediate maps for
// missing segments. Intermediate nodes that exist but are not maps are
// replaced. Setting with an empty path is a no-op.
func Set(obj map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}

	current := obj

	for _, segment := range path[:len(path)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}

		current = next
	}

	current[path[len(path)-1]] = value
}

// GetString resolves the path and returns the value when it is a
// non-empty string.
func GetString(obj any, path Path) (string, bool) {
	value, ok := Get(obj, path)
	if !ok {
		return "", false
	}

	str, ok := value.(string)
	if !ok || str == "" {
		return "", false
	}

	return str, true
}

// GetMap resolves the path and returns the value when it is a map.
func GetMap(obj any, path Path) (map[string]any, bool) {
	value, ok := Get(obj, path)
	if !ok {
		return nil, false
	}

	m, ok := value.(map[string]any)

	return m, ok
}
