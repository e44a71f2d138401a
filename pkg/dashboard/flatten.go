package dashboard

import "strconv"

// FlattenObject collapses nested maps and arrays into a single level of
// dotted keys. Array elements use their index as a path segment, so
// {"a": [{"b": 1}]} becomes {"a.0.b": 1}.
func FlattenObject(obj map[string]any) map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, "", obj)

	return flat
}

func flattenInto(flat map[string]any, prefix string, obj map[string]any) {
	for key, value := range obj {
		flattenValue(flat, joinKey(prefix, key), value)
	}
}

func flattenValue(flat map[string]any, key string, value any) {
	switch typed := value.(type) {
	case map[string]any:
		flattenInto(flat, key, typed)
	case []any:
		for i, item := range typed {
			indexed := joinKey(key, strconv.Itoa(i))
			if nested, isMap := item.(map[string]any); isMap {
				flattenInto(flat, indexed, nested)
			} else {
				flat[indexed] = item
			}
		}
	default:
		flat[key] = value
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}
