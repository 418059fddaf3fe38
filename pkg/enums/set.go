// Package enums holds the closed string sets stored in Postgres enum columns
// and accepted on the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

// members is the closed set behind one enum type.
type members[T ~string] []T

func (m members[T]) has(v T) bool {
	return slices.Contains(m, v)
}

// parse matches raw after normalize. The error names kind and echoes raw.
func (m members[T]) parse(kind, raw string, normalize func(string) string) (T, error) {
	value := raw
	if normalize != nil {
		value = normalize(raw)
	}
	if v := T(value); m.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
