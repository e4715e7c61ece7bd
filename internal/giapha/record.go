// Package giapha parses the vietnamgiapha.com family book markup into
// normalized records. Parsers never fail on missing data — absent anchors
// degrade to empty fields; only absent structure yields an all-default record.
package giapha

// Gender is the normalized gender of a person.
type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderOther   Gender = "Other"
	GenderUnknown Gender = "Unknown"
)

// genderMap translates the Vietnamese marker found in name parentheticals.
var genderMap = map[string]Gender{
	"Nam":  GenderMale,
	"Nữ":   GenderFemale,
	"Chân": GenderOther,
}

// MapGender normalizes a Vietnamese gender marker. Empty input is Unknown;
// an unrecognized non-empty marker is Other.
func MapGender(s string) Gender {
	if s == "" {
		return GenderUnknown
	}
	if g, ok := genderMap[s]; ok {
		return g
	}
	return GenderOther
}

// RelativeRef is a lightweight, unresolved reference to a relative.
// Code is empty until the relative can be addressed symbolically.
type RelativeRef struct {
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Code      string `json:"code,omitempty"`
	Gender    Gender `json:"gender"`
}

// SpouseRecord is one spouse parsed from a member's detail page.
// Code is assigned positionally: "<memberCode>-S<ordinal>", 1-based.
type SpouseRecord struct {
	Code        string `json:"code"`
	LastName    string `json:"lastName"`
	FirstName   string `json:"firstName"`
	Gender      Gender `json:"gender"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
	DateOfDeath string `json:"dateOfDeath,omitempty"`
	Biography   string `json:"biography,omitempty"`
}

// MemberRecord is one person extracted from one member detail page.
// Relations are symbolic (codes), resolved to backend ids later.
type MemberRecord struct {
	Code      string `json:"code"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Gender    Gender `json:"gender"`

	Nickname     string `json:"nickname,omitempty"`
	DateOfBirth  string `json:"dateOfBirth,omitempty"` // ISO date, partial dates normalized to Jan 1
	DateOfDeath  string `json:"dateOfDeath,omitempty"`
	PlaceOfBirth string `json:"placeOfBirth,omitempty"`
	PlaceOfDeath string `json:"placeOfDeath,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address,omitempty"`
	Occupation   string `json:"occupation,omitempty"`
	Biography    string `json:"biography,omitempty"`
	IsDeceased   bool   `json:"isDeceased"`

	Generation int  `json:"generation"`
	Order      int  `json:"order"`
	IsRoot     bool `json:"isRoot"`

	Father  *RelativeRef   `json:"father"`
	Mother  *RelativeRef   `json:"mother"`
	Spouses []SpouseRecord `json:"spouses"`

	// Siblings and Children are informational stubs; resolution ignores them.
	Siblings []RelativeRef `json:"siblings,omitempty"`
	Children []RelativeRef `json:"children,omitempty"`

	SourceFile string `json:"sourceFile,omitempty"`
}

// HasName reports whether the record carries the mandatory name fields.
// The source uses ".." as a placeholder for unknown names.
func (m *MemberRecord) HasName() bool {
	return validName(m.FirstName) && validName(m.LastName)
}

// HasName reports whether the spouse carries usable name fields.
func (s *SpouseRecord) HasName() bool {
	return validName(s.FirstName) || validName(s.LastName)
}

func validName(s string) bool {
	return s != "" && s != ".."
}

// FamilyRecord is one family's aggregate metadata, merged from the four
// overview pages. It is a flat document passed to the backend largely
// unchanged.
type FamilyRecord struct {
	Name            string `json:"name"`
	Code            string `json:"code"`
	Description     string `json:"description,omitempty"`
	Address         string `json:"address,omitempty"`
	GenealogyRecord string `json:"genealogyRecord,omitempty"`
	ProgenitorName  string `json:"progenitorName,omitempty"`
	FamilyCovenant  string `json:"familyCovenant,omitempty"`
	ContactInfo     string `json:"contactInfo,omitempty"`
	OtherInfo       string `json:"otherInfo,omitempty"`
	Visibility      string `json:"visibility"`
}
