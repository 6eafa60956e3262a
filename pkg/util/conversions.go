package util

import (
	"fmt"
	"strconv"
	"time"
)

// Uint64ToString formats n in base 10.
func Uint64ToString(n uint64) string {
	return strconv.FormatUint(n, 10)
}

// StringToUint64 parses a base 10 id. Discord sends ids as JSON strings, so
// a sign, whitespace or an empty string is a malformed payload.
func StringToUint64(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return n, nil
}

// UnixMillis is t in unix milliseconds, or 0 for the zero time.
func UnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromUnixMillis is the inverse of UnixMillis. Results are UTC.
func FromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
