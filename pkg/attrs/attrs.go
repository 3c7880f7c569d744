// Package attrs reads values back out of slog-style alternating
// key-value lists.
package attrs

// Get returns the value stored under key in an alternating
// [key1, value1, key2, value2, ...] list. The first occurrence of the key
// wins; a missing key or a value of a different type yields the zero value.
func Get[T any](list []any, key string) (value T) {
	for i := 0; i+1 < len(list); i += 2 {
		name, ok := list[i].(string)
		if !ok || name != key {
			continue
		}
		value, _ = list[i+1].(T)
		return value
	}
	return value
}

// String is Get for the common string-valued case.
func String(list []any, key string) string {
	return Get[string](list, key)
}
