package domain

import (
	"strconv"
	"strings"
)

// ParseNumeric interprets a user-entered numeric string, tolerating comma
// thousands separators (e.g. "8,500"). The bool reports whether the value
// parsed as a number; callers treat a false result as "no data", never as
// an error.
func ParseNumeric(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}

	return f, true
}
