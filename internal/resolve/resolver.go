// Package resolve turns a family's symbolic member records into backend
// entities and relationship links. It runs three passes over the record
// set: identities (find-or-create every person), mother inference, and
// link resolution. A member failing one pass degrades with a warning and
// is skipped by the later passes; one bad page never aborts a family.
package resolve

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"github.com/anatolykoptev/go_giapha/internal/api"
	"github.com/anatolykoptev/go_giapha/internal/giapha"
)

// Gateway is the backend surface the resolver needs. Satisfied by
// *api.Client; faked in tests.
type Gateway interface {
	FindMemberByCode(ctx context.Context, familyID, code string) (id string, found bool, err error)
	CreateMember(ctx context.Context, p api.MemberPayload) (string, error)
	UpdateMemberRelationships(ctx context.Context, memberID string, patch api.RelationshipPatch) error
}

// Options control resolution behavior.
type Options struct {
	// InferMothers fills a missing mother from the father's first
	// recorded spouse when that spouse is female.
	InferMothers bool
}

// ResolutionContext accumulates everything the passes learn about one
// family: the code→backend-id table and the pending link work.
type ResolutionContext struct {
	FamilyID string
	IDByCode map[string]string

	pending []*pendingLinks
}

// pendingLinks is one member's unresolved relationship codes, carried
// from the identity pass into the link pass.
type pendingLinks struct {
	memberID   string
	code       string
	gender     giapha.Gender
	fatherCode string
	motherCode string
	spouses    []string
}

// RelationshipUpdate is one member's resolved link operation. Only ids
// that actually resolved are present.
type RelationshipUpdate struct {
	MemberID   string `json:"memberApiId"`
	MemberCode string `json:"memberCode"`
	FatherID   string `json:"fatherId,omitempty"`
	MotherID   string `json:"motherId,omitempty"`
	HusbandID  string `json:"husbandId,omitempty"`
	WifeID     string `json:"wifeId,omitempty"`
}

// Resolver resolves one family's records against the backend.
type Resolver struct {
	gw      Gateway
	opts    Options
	records map[string]*giapha.MemberRecord
	ordered []*giapha.MemberRecord
}

// New builds a resolver over a family's full record set.
func New(gw Gateway, records []*giapha.MemberRecord, opts Options) *Resolver {
	byCode := make(map[string]*giapha.MemberRecord, len(records))
	ordered := make([]*giapha.MemberRecord, 0, len(records))
	for _, rec := range records {
		byCode[rec.Code] = rec
		ordered = append(ordered, rec)
	}
	// Process in page order so created entities and logs line up with
	// the source site.
	sort.Slice(ordered, func(i, j int) bool {
		return memberIndex(ordered[i].Code) < memberIndex(ordered[j].Code)
	})
	return &Resolver{gw: gw, opts: opts, records: byCode, ordered: ordered}
}

// NewContext starts a resolution for the given backend family id.
func NewContext(familyID string) *ResolutionContext {
	return &ResolutionContext{FamilyID: familyID, IDByCode: map[string]string{}}
}

// Run executes all three passes and applies the resulting links,
// returning every update that resolved at least one relationship.
func (r *Resolver) Run(ctx context.Context, rc *ResolutionContext) ([]RelationshipUpdate, error) {
	if err := r.EnsureIdentities(ctx, rc); err != nil {
		return nil, err
	}
	if r.opts.InferMothers {
		r.InferMotherCodes(rc)
	}
	updates := r.ResolveLinks(rc)
	r.Apply(ctx, rc, updates)
	return updates, nil
}

// EnsureIdentities is the first pass: find-or-create each member and each
// of its spouses, filling rc.IDByCode. Members without usable names are
// skipped entirely; spouse entities are created on the member's behalf so
// they can be linked even though they have no page of their own. Each
// promoted spouse also queues its own back-link to the member, so the
// marriage is recorded on both sides.
func (r *Resolver) EnsureIdentities(ctx context.Context, rc *ResolutionContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range r.ordered {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !rec.HasName() {
			slog.Warn("skipping member without usable name",
				slog.String("code", rec.Code),
				slog.String("file", rec.SourceFile))
			continue
		}

		id, ok := r.ensureEntity(ctx, rc, rec.Code, api.NewMemberPayload(rec, rc.FamilyID))
		if !ok {
			continue
		}
		rc.IDByCode[rec.Code] = id

		links := &pendingLinks{memberID: id, code: rec.Code, gender: rec.Gender}
		if rec.Father != nil && rec.Father.Code != "" && rec.Father.Code != rec.Code {
			links.fatherCode = rec.Father.Code
		}
		if rec.Mother != nil && rec.Mother.Code != "" {
			links.motherCode = rec.Mother.Code
		}

		for _, sp := range rec.Spouses {
			if !sp.HasName() {
				slog.Warn("skipping spouse without usable name",
					slog.String("member", rec.Code),
					slog.String("spouse", sp.Code))
				continue
			}
			spID, ok := r.ensureEntity(ctx, rc, sp.Code, api.NewSpousePayload(sp, rc.FamilyID))
			if !ok {
				continue
			}
			rc.IDByCode[sp.Code] = spID
			links.spouses = append(links.spouses, sp.Code)
			rc.pending = append(rc.pending, &pendingLinks{
				memberID: spID,
				code:     sp.Code,
				gender:   sp.Gender,
				spouses:  []string{rec.Code},
			})
		}
		rc.pending = append(rc.pending, links)
	}
	slog.Info("identities ensured",
		slog.String("family_id", rc.FamilyID),
		slog.Int("resolved", len(rc.IDByCode)))
	return nil
}

// ensureEntity find-or-creates one person. Backend failures degrade to a
// warning; the resolver moves on to the next person.
func (r *Resolver) ensureEntity(ctx context.Context, rc *ResolutionContext, code string, payload api.MemberPayload) (string, bool) {
	id, found, err := r.gw.FindMemberByCode(ctx, rc.FamilyID, code)
	if err != nil {
		slog.Error("member lookup failed", slog.String("code", code), slog.Any("error", err))
		return "", false
	}
	if found {
		return id, true
	}
	id, err = r.gw.CreateMember(ctx, payload)
	if err != nil {
		slog.Error("member create failed", slog.String("code", code), slog.Any("error", err))
		return "", false
	}
	slog.Debug("member created", slog.String("code", code), slog.String("id", id))
	return id, true
}

// InferMotherCodes is the second pass: the source rarely records mothers,
// but the father's first recorded spouse almost always is one. The
// heuristic only fires when that spouse's gender resolved to female.
func (r *Resolver) InferMotherCodes(rc *ResolutionContext) {
	inferred := 0
	for _, links := range rc.pending {
		if links.motherCode != "" || links.fatherCode == "" {
			continue
		}
		father, ok := r.records[links.fatherCode]
		if !ok {
			slog.Warn("mother inference: father record not in this family",
				slog.String("member", links.code),
				slog.String("father", links.fatherCode))
			continue
		}
		if len(father.Spouses) == 0 {
			continue
		}
		first := father.Spouses[0]
		if first.Gender != giapha.GenderFemale {
			slog.Debug("mother inference: first spouse not female",
				slog.String("member", links.code),
				slog.String("spouse", first.Code))
			continue
		}
		links.motherCode = first.Code
		inferred++
	}
	if inferred > 0 {
		slog.Info("mothers inferred", slog.String("family_id", rc.FamilyID), slog.Int("count", inferred))
	}
}

// ResolveLinks is the third pass: translate pending relationship codes to
// backend ids. The backend keeps one spouse slot per member, picked by the
// member's gender; extra spouses are recorded as entities but not linked.
func (r *Resolver) ResolveLinks(rc *ResolutionContext) []RelationshipUpdate {
	var updates []RelationshipUpdate
	for _, links := range rc.pending {
		upd := RelationshipUpdate{MemberID: links.memberID, MemberCode: links.code}

		if links.fatherCode != "" {
			if id, ok := rc.IDByCode[links.fatherCode]; ok {
				upd.FatherID = id
			} else {
				slog.Warn("father unresolved", slog.String("member", links.code), slog.String("father", links.fatherCode))
			}
		}
		if links.motherCode != "" {
			if id, ok := rc.IDByCode[links.motherCode]; ok {
				upd.MotherID = id
			} else {
				slog.Warn("mother unresolved", slog.String("member", links.code), slog.String("mother", links.motherCode))
			}
		}

		r.resolveSpouseSlot(rc, links, &upd)

		if upd.FatherID != "" || upd.MotherID != "" || upd.HusbandID != "" || upd.WifeID != "" {
			updates = append(updates, upd)
		}
	}
	return updates
}

// resolveSpouseSlot fills the single spouse slot from the first resolvable
// spouse code.
func (r *Resolver) resolveSpouseSlot(rc *ResolutionContext, links *pendingLinks, upd *RelationshipUpdate) {
	assigned := false
	for _, code := range links.spouses {
		id, ok := rc.IDByCode[code]
		if !ok {
			slog.Warn("spouse unresolved", slog.String("member", links.code), slog.String("spouse", code))
			continue
		}
		if assigned {
			slog.Warn("extra spouse not linked, single slot already taken",
				slog.String("member", links.code),
				slog.String("spouse", code))
			continue
		}
		switch links.gender {
		case giapha.GenderMale:
			upd.WifeID = id
		case giapha.GenderFemale:
			upd.HusbandID = id
		default:
			slog.Warn("cannot pick spouse slot, member gender unknown",
				slog.String("member", links.code),
				slog.String("gender", string(links.gender)))
			return
		}
		assigned = true
	}
}

// Apply submits each update to the backend. Failures degrade per member.
func (r *Resolver) Apply(ctx context.Context, rc *ResolutionContext, updates []RelationshipUpdate) {
	applied := 0
	for _, upd := range updates {
		patch := api.RelationshipPatch{
			FatherID:  api.Opt(upd.FatherID),
			MotherID:  api.Opt(upd.MotherID),
			HusbandID: api.Opt(upd.HusbandID),
			WifeID:    api.Opt(upd.WifeID),
		}
		if err := r.gw.UpdateMemberRelationships(ctx, upd.MemberID, patch); err != nil {
			slog.Error("relationship update failed",
				slog.String("member", upd.MemberCode),
				slog.Any("error", err))
			continue
		}
		applied++
	}
	slog.Info("relationships applied",
		slog.String("family_id", rc.FamilyID),
		slog.Int("applied", applied),
		slog.Int("total", len(updates)))
}

// memberIndex orders codes by their numeric page index; unparsable codes
// sort last in lexical order.
func memberIndex(code string) int {
	_, index, ok := giapha.ParseMemberCode(code)
	if !ok {
		return 1 << 30
	}
	n, err := strconv.Atoi(index)
	if err != nil {
		return 1 << 30
	}
	return n
}
