package giapha

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	fullDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	yearOnlyRe = regexp.MustCompile(`^(\d{4})$`)
)

// unknownDateMarkers are source-side placeholders for "date not recorded".
var unknownDateMarkers = []string{"chưa rõ", "không rõ"}

// NormalizeDate converts a source date string to an ISO yyyy-mm-dd date.
// Accepted shapes are d/m/yyyy (also with '-' separators) and a bare
// 4-digit year, which defaults to January 1. Anything else, including the
// explicit "unknown" markers, yields the empty string rather than a guess.
func NormalizeDate(raw string) string {
	s := CleanText(raw)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	for _, marker := range unknownDateMarkers {
		if strings.Contains(low, marker) {
			return ""
		}
	}
	s = strings.ReplaceAll(s, "-", "/")
	if m := fullDateRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return ""
		}
		return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
	}
	if m := yearOnlyRe.FindStringSubmatch(s); m != nil {
		return m[1] + "-01-01"
	}
	return ""
}

// parseIntOr returns the first integer found in s, or fallback when s has
// none. Malformed numerics degrade silently, matching the source data's
// habit of free-text generation and birth-order fields.
func parseIntOr(s string, fallback int) int {
	s = CleanText(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if m := leadingIntRe.FindString(s); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n
		}
	}
	return fallback
}

var leadingIntRe = regexp.MustCompile(`\d+`)
