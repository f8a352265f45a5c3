package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/supplydesk-backend/pkg/errors"
)

// DateLayout is the calendar-date format accepted in query strings.
const DateLayout = "2006-01-02"

// optional parses query parameter key when present. A blank value yields
// the zero T and present=false.
func optional[T any](r *http.Request, key, want string, parse func(string) (T, error)) (value T, present bool, err error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return value, false, nil
	}
	value, err = parse(raw)
	if err != nil {
		return value, false, pkgerrors.Wrapf(pkgerrors.CodeValidation, err, "%s must be %s", key, want).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	return value, true, nil
}

// ParseQueryInt returns def when key is absent and rejects values outside
// [lo, hi].
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	n, present, err := optional(r, key, "an integer", strconv.Atoi)
	if err != nil || !present {
		return def, err
	}
	if n < lo || n > hi {
		return 0, pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between %d and %d", key, lo, hi).
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return n, nil
}

func ParseQueryBool(r *http.Request, key string) (bool, error) {
	b, _, err := optional(r, key, "a boolean", strconv.ParseBool)
	return b, err
}

func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	id, present, err := optional(r, key, "a uuid", uuid.Parse)
	if err != nil || !present {
		return nil, err
	}
	return &id, nil
}

// ParseQueryDate reads a YYYY-MM-DD value as midnight UTC.
func ParseQueryDate(r *http.Request, key string) (*time.Time, error) {
	day, present, err := optional(r, key, "YYYY-MM-DD", func(raw string) (time.Time, error) {
		return time.ParseInLocation(DateLayout, raw, time.UTC)
	})
	if err != nil || !present {
		return nil, err
	}
	return &day, nil
}

// SanitizeString trims input and keeps at most maxRunes runes. maxRunes <= 0
// keeps everything.
func SanitizeString(input string, maxRunes int) string {
	s := strings.TrimSpace(input)
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxRunes]))
}
