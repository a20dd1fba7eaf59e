package parldok

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date fallbacks, applied per missing component.
const (
	DefaultYear  = "1970"
	DefaultMonth = "01"
	DefaultDay   = "01"

	DefaultDate = DefaultYear + "-" + DefaultMonth + "-" + DefaultDay
)

// NormalizeDate converts an upstream DD.MM.YYYY date to YYYY-MM-DD.
// Missing components fall back to their defaults. A component that is
// present but not a number of the right width, or a result that is not a
// calendar date, yields DefaultDate.
func NormalizeDate(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) > 3 {
		return DefaultDate
	}

	day, okDay := component(parts, 0, 2, DefaultDay)
	month, okMonth := component(parts, 1, 2, DefaultMonth)
	year, okYear := component(parts, 2, 4, DefaultYear)
	if !okDay || !okMonth || !okYear {
		return DefaultDate
	}

	date := year + "-" + month + "-" + day
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return DefaultDate
	}
	return date
}

// component returns parts[i] zero-padded to width, or def when the part is
// missing or blank. ok is false for a present part that is not an unsigned
// number of at most width digits.
func component(parts []string, i, width int, def string) (string, bool) {
	if i >= len(parts) {
		return def, true
	}
	s := strings.TrimSpace(parts[i])
	if s == "" {
		return def, true
	}
	if len(s) > width || strings.ContainsAny(s, "+-") {
		return "", false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "", false
	}
	if width == 4 && len(s) != 4 {
		return "", false
	}
	return fmt.Sprintf("%0*d", width, n), true
}
