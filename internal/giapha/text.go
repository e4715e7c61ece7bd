package giapha

import (
	"regexp"
	"strings"
)

var (
	parenRe = regexp.MustCompile(`\((.*?)\)`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// CleanText replaces non-breaking spaces and trims surrounding whitespace.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(s)
}

// CollapseSpace additionally folds internal whitespace runs to single spaces.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(CleanText(s), " "))
}

// SplitNameGender parses a raw display name of the shape
// "Họ Tên (Nam)". The first parenthetical is the gender marker; all
// parentheticals are stripped from the name. The first space-separated
// token is the surname, the remainder the given name.
func SplitNameGender(raw string) (lastName, firstName string, gender Gender) {
	raw = CleanText(raw)
	marker := ""
	if m := parenRe.FindStringSubmatch(raw); m != nil {
		marker = strings.TrimSpace(m[1])
	}
	name := CollapseSpace(parenRe.ReplaceAllString(raw, " "))
	gender = MapGender(marker)

	if name == "" {
		return "", "", gender
	}
	parts := strings.SplitN(name, " ", 2)
	lastName = parts[0]
	if len(parts) == 2 {
		firstName = strings.TrimSpace(parts[1])
	}
	return lastName, firstName, gender
}

// relativeStub builds an unresolved reference from a raw display name.
func relativeStub(raw string) RelativeRef {
	last, first, g := SplitNameGender(raw)
	return RelativeRef{LastName: last, FirstName: first, Gender: g}
}
