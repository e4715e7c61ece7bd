// Package api is the client for the genealogy backend's REST surface.
// Optional document fields are pointers so the encoder omits what the
// source never provided instead of sending empty strings.
package api

import "github.com/anatolykoptev/go_giapha/internal/giapha"

// FamilyPayload is the create-family document.
type FamilyPayload struct {
	Name            string   `json:"name"`
	Code            string   `json:"code"`
	Description     *string  `json:"description,omitempty"`
	Address         *string  `json:"address,omitempty"`
	GenealogyRecord *string  `json:"genealogyRecord,omitempty"`
	ProgenitorName  *string  `json:"progenitorName,omitempty"`
	FamilyCovenant  *string  `json:"familyCovenant,omitempty"`
	ContactInfo     *string  `json:"contactInfo,omitempty"`
	Visibility      string   `json:"visibility"`
	ManagerIDs      []string `json:"managerIds"`
	ViewerIDs       []string `json:"viewerIds"`
}

// MemberPayload is the create-member document. Relationship ids are never
// set at create time; they are linked in a later pass once every member
// of the family has a backend id.
type MemberPayload struct {
	FamilyID  string `json:"familyId"`
	Code      string `json:"code"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Gender    string `json:"gender"`

	Nickname     *string `json:"nickname,omitempty"`
	DateOfBirth  *string `json:"dateOfBirth,omitempty"`
	DateOfDeath  *string `json:"dateOfDeath,omitempty"`
	PlaceOfBirth *string `json:"placeOfBirth,omitempty"`
	PlaceOfDeath *string `json:"placeOfDeath,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Email        *string `json:"email,omitempty"`
	Address      *string `json:"address,omitempty"`
	Occupation   *string `json:"occupation,omitempty"`
	Biography    *string `json:"biography,omitempty"`

	IsRoot     bool `json:"isRoot"`
	IsDeceased bool `json:"isDeceased"`
	Order      int  `json:"order"`
	Generation int  `json:"generation"`

	FatherID  *string `json:"fatherId,omitempty"`
	MotherID  *string `json:"motherId,omitempty"`
	HusbandID *string `json:"husbandId,omitempty"`
	WifeID    *string `json:"wifeId,omitempty"`
}

// RelationshipPatch is the partial update applied in the link pass. Only
// set fields reach the wire; absent ones stay untouched server-side.
type RelationshipPatch struct {
	FatherID  *string `json:"fatherId,omitempty"`
	MotherID  *string `json:"motherId,omitempty"`
	HusbandID *string `json:"husbandId,omitempty"`
	WifeID    *string `json:"wifeId,omitempty"`
}

// Empty reports whether the patch would be a no-op.
func (p RelationshipPatch) Empty() bool {
	return p.FatherID == nil && p.MotherID == nil && p.HusbandID == nil && p.WifeID == nil
}

// Opt returns a pointer to s, or nil when s is empty.
func Opt(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NewFamilyPayload maps a parsed family record to its create document.
// Callers must have verified the name is usable; error-page folders are
// filtered before ingest ever reaches the backend.
func NewFamilyPayload(rec giapha.FamilyRecord) FamilyPayload {
	visibility := rec.Visibility
	if visibility == "" {
		visibility = "Private"
	}
	return FamilyPayload{
		Name:            rec.Name,
		Code:            rec.Code,
		Description:     Opt(rec.Description),
		Address:         Opt(rec.Address),
		GenealogyRecord: Opt(rec.GenealogyRecord),
		ProgenitorName:  Opt(rec.ProgenitorName),
		FamilyCovenant:  Opt(rec.FamilyCovenant),
		ContactInfo:     Opt(rec.ContactInfo),
		Visibility:      visibility,
		ManagerIDs:      []string{},
		ViewerIDs:       []string{},
	}
}

// NewMemberPayload maps a parsed member record to its create document.
func NewMemberPayload(rec *giapha.MemberRecord, familyID string) MemberPayload {
	return MemberPayload{
		FamilyID:     familyID,
		Code:         rec.Code,
		LastName:     rec.LastName,
		FirstName:    rec.FirstName,
		Gender:       string(rec.Gender),
		Nickname:     Opt(rec.Nickname),
		DateOfBirth:  Opt(rec.DateOfBirth),
		DateOfDeath:  Opt(rec.DateOfDeath),
		PlaceOfBirth: Opt(rec.PlaceOfBirth),
		PlaceOfDeath: Opt(rec.PlaceOfDeath),
		Phone:        Opt(rec.Phone),
		Email:        Opt(rec.Email),
		Address:      Opt(rec.Address),
		Occupation:   Opt(rec.Occupation),
		Biography:    Opt(rec.Biography),
		IsRoot:       rec.IsRoot,
		IsDeceased:   rec.IsDeceased,
		Order:        rec.Order,
		Generation:   rec.Generation,
	}
}

// NewSpousePayload maps a spouse record to its create document. Spouses
// exist in the source only as attachments to a member, so the document
// carries just what the spouse block records.
func NewSpousePayload(sp giapha.SpouseRecord, familyID string) MemberPayload {
	return MemberPayload{
		FamilyID:    familyID,
		Code:        sp.Code,
		LastName:    sp.LastName,
		FirstName:   sp.FirstName,
		Gender:      string(sp.Gender),
		DateOfBirth: Opt(sp.DateOfBirth),
		DateOfDeath: Opt(sp.DateOfDeath),
		Biography:   Opt(sp.Biography),
	}
}
