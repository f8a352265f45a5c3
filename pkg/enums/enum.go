// Package enums holds the string enums persisted in Postgres enum columns and
// exchanged over the API.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func oneOf[T ~string](v T, valid []T) bool {
	return slices.Contains(valid, v)
}

// parse matches value case-insensitively after trimming.
func parse[T ~string](value string, valid []T, kind string) (T, error) {
	needle := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range valid {
		if string(candidate) == needle {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q", kind, value)
}
