package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ValidateTime parses "H:MM" or "HH:MM" in 24-hour form. A single-digit
// hour is accepted ("8:30" means 08:30); minutes must be two digits.
func ValidateTime(raw string) (hour, minute int, ok bool) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// CanonicalTime renders a validated time as zero-padded 24-hour "HH:MM".
func CanonicalTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// To12Hour renders a 24-hour time for display: hour 0 becomes 12,
// minutes stay zero-padded, e.g. (20, 30) -> "8:30 PM".
func To12Hour(hour, minute int) string {
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, minute, suffix)
}
