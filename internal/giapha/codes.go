package giapha

import (
	"fmt"
	"path/filepath"
	"strings"
)

// codePrefix namespaces every symbolic code minted from vietnamgiapha.com
// so they cannot collide with codes from other import sources.
const codePrefix = "GPVN"

// FamilyCode returns the symbolic code for a family folder, e.g. "GPVN-72".
func FamilyCode(folderID string) string {
	return fmt.Sprintf("%s-%s", codePrefix, folderID)
}

// MemberCode returns the symbolic code for a member, derived from the
// family folder and the numeric part of the member's page filename,
// e.g. "GPVN-72-15". The code is minted once at parse time and is the
// member's stable identity from then on.
func MemberCode(folderID, index string) string {
	return fmt.Sprintf("%s-%s-%s", codePrefix, folderID, index)
}

// SpouseCode returns the positional code of a member's spouse,
// e.g. "GPVN-72-15-S1". Ordinals are 1-based record order.
func SpouseCode(memberCode string, ordinal int) string {
	return fmt.Sprintf("%s-S%d", memberCode, ordinal)
}

// ParseMemberCode splits a member code into its folder and index parts.
// Spouse codes do not parse as member codes.
func ParseMemberCode(code string) (folderID, index string, ok bool) {
	parts := strings.Split(code, "-")
	if len(parts) != 3 || parts[0] != codePrefix {
		return "", "", false
	}
	if parts[1] == "" || parts[2] == "" || strings.HasPrefix(parts[2], "S") {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// IndexFromFilename extracts the member index from a raw page filename,
// e.g. "15.html" -> "15".
func IndexFromFilename(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
