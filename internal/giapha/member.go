package giapha

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// section is the parser position inside a member detail table. Section
// headers are full-width rows; everything between two headers belongs to
// the section the first header opened.
type section int

const (
	sectionNone section = iota
	sectionFamily
	sectionPerson
	sectionSpouses
)

// Section header markers, matched by substring on the row text.
const (
	headerFamily  = "Chi tiết gia đình"
	headerPerson  = "Người trong gia đình"
	headerSpouses = "Liên quan (chồng, vợ)"
)

// progenitorMarker in a father row means the member is the line's founder.
const progenitorMarker = "thủy tổ"

// memberLinkRe matches the site's javascript member links, carrying the
// family and member ids: javascript:o(72,15).
var memberLinkRe = regexp.MustCompile(`javascript:o\((\d+),\s*(\d+)\)`)

// transition returns the section a header row switches into, or the
// current section when the row is not a header.
func transition(cur section, rowText string) (section, bool) {
	switch {
	case strings.Contains(rowText, headerFamily):
		return sectionFamily, true
	case strings.Contains(rowText, headerPerson):
		return sectionPerson, true
	case strings.Contains(rowText, headerSpouses):
		return sectionSpouses, true
	}
	return cur, false
}

// ParseMember extracts one MemberRecord from a cleaned member detail page.
// folderID and sourceFilename determine the member's symbolic code. The
// parser never fails on missing data: absent rows leave zero values. When
// the page has no table structure at all, an all-default record (IsRoot
// false) is returned so the caller can account for the page.
func ParseMember(htmlContent, folderID, sourceFilename string) (*MemberRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	rec := &MemberRecord{
		Code:       MemberCode(folderID, IndexFromFilename(sourceFilename)),
		Gender:     GenderUnknown,
		Spouses:    []SpouseRecord{},
		SourceFile: sourceFilename,
	}

	rows := doc.Find("tr")
	if rows.Length() == 0 {
		slog.Warn("member page has no table structure",
			slog.String("folder", folderID),
			slog.String("file", sourceFilename))
		return &MemberRecord{Code: rec.Code, Gender: GenderUnknown, Spouses: []SpouseRecord{}, SourceFile: sourceFilename}, nil
	}

	cur := sectionNone
	var spouse *SpouseRecord

	for i := 0; i < rows.Length(); i++ {
		row := rows.Eq(i)
		rowText := CollapseSpace(row.Text())

		if next, ok := transition(cur, rowText); ok {
			if next != sectionSpouses && spouse != nil {
				rec.closeSpouse(&spouse)
			}
			cur = next
			continue
		}

		cells := row.Find("td, th")
		if cells.Length() == 0 {
			continue
		}
		label := strings.TrimSuffix(CollapseSpace(cells.Eq(0).Text()), ":")
		value := ""
		if cells.Length() > 1 {
			value = CleanText(cells.Eq(1).Text())
		}

		switch cur {
		case sectionFamily:
			rec.applyFamilyRow(row, rowText, folderID)
		case sectionPerson:
			rec.applyPersonRow(label, value, rows, i)
		case sectionSpouses:
			applySpouseRow(rec, &spouse, label, value, rows, i)
		}
	}
	rec.closeSpouse(&spouse)

	for i := range rec.Spouses {
		rec.Spouses[i].Code = SpouseCode(rec.Code, i+1)
	}

	// Guard against self-referential father rows seen on founder pages.
	if rec.Father != nil && rec.Father.Code == rec.Code {
		rec.Father = nil
	}
	rec.IsRoot = rec.Father == nil

	rec.Siblings = scanRelativeList(rows, "Các anh em, dâu rể")
	rec.Children = scanRelativeList(rows, "Con cái")
	return rec, nil
}

// applyFamilyRow handles the "Chi tiết gia đình" section, whose only
// structured row is the parentage line.
func (m *MemberRecord) applyFamilyRow(row *goquery.Selection, rowText, folderID string) {
	if !strings.Contains(rowText, "Là con của") {
		return
	}
	_, after, ok := strings.Cut(rowText, "Là con của")
	if !ok {
		return
	}
	name := CollapseSpace(strings.TrimPrefix(strings.TrimSpace(after), ":"))
	if name == "" {
		return
	}
	if strings.Contains(strings.ToLower(name), progenitorMarker) {
		// Founder of the line: no father exists.
		m.Father = nil
		return
	}

	ref := relativeStub(name)
	if ref.Gender == GenderUnknown {
		ref.Gender = GenderMale
	}
	// The father line often links to his own detail page; the link ids
	// give us his exact code without any name matching.
	row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if g := memberLinkRe.FindStringSubmatch(href); g != nil {
			ref.Code = MemberCode(g[1], g[2])
			return false
		}
		return true
	})
	if ref.Code == "" {
		slog.Debug("father row has no resolvable link",
			slog.String("member", m.Code),
			slog.String("father", name))
	}
	m.Father = &ref
}

// applyPersonRow handles one label/value row of the member's own section.
// rows and idx are needed because the biography value lives in the row
// after its label.
func (m *MemberRecord) applyPersonRow(label, value string, rows *goquery.Selection, idx int) {
	switch {
	case label == "Tên":
		m.LastName, m.FirstName, m.Gender = SplitNameGender(value)
	case label == "Tên thường":
		m.Nickname = value
	case strings.Contains(label, "Đời thứ"):
		m.Generation = parseIntOr(value, 0)
	case strings.Contains(label, "Là con thứ"):
		m.Order = parseIntOr(value, 0)
	case label == "Ngày sinh":
		m.DateOfBirth = NormalizeDate(value)
	case label == "Ngày mất":
		m.DateOfDeath = NormalizeDate(value)
		m.IsDeceased = true
	case strings.Contains(label, "Hưởng thọ"):
		m.IsDeceased = true
	case label == "Nơi sinh":
		m.PlaceOfBirth = value
	case strings.Contains(label, "Nơi an táng"):
		m.PlaceOfDeath = value
	case strings.Contains(label, "Điện thoại"):
		m.Phone = value
	case label == "Email":
		m.Email = value
	case strings.Contains(label, "Địa chỉ"):
		m.Address = value
	case strings.Contains(label, "Nghề nghiệp"):
		m.Occupation = value
	case strings.Contains(label, "Sự nghiệp, công đức, ghi chú"):
		m.Biography = nextRowText(rows, idx)
	}
}

// applySpouseRow handles the spouse block. A repeated name label closes
// the running spouse and opens the next one.
func applySpouseRow(m *MemberRecord, cur **SpouseRecord, label, value string, rows *goquery.Selection, idx int) {
	if label == "Tên" {
		m.closeSpouse(cur)
		last, first, g := SplitNameGender(value)
		*cur = &SpouseRecord{LastName: last, FirstName: first, Gender: g}
		return
	}
	if *cur == nil {
		return
	}
	switch {
	case label == "Ngày sinh":
		(*cur).DateOfBirth = NormalizeDate(value)
	case label == "Ngày mất":
		(*cur).DateOfDeath = NormalizeDate(value)
	case strings.Contains(label, "Sự nghiệp, công đức, ghi chú"):
		(*cur).Biography = nextRowText(rows, idx)
	}
}

// closeSpouse appends the running spouse when it carries a usable name.
func (m *MemberRecord) closeSpouse(cur **SpouseRecord) {
	if *cur == nil {
		return
	}
	if (*cur).HasName() {
		m.Spouses = append(m.Spouses, **cur)
	}
	*cur = nil
}

// nextRowText returns the first cell text of the row after idx.
func nextRowText(rows *goquery.Selection, idx int) string {
	if idx+1 >= rows.Length() {
		return ""
	}
	return CleanText(rows.Eq(idx + 1).Find("td, th").Eq(0).Text())
}

// scanRelativeList finds the row whose first cell starts with marker and
// parses its line-separated names into stubs. The site writes "Không có"
// entries for empty lists; those produce no stubs.
func scanRelativeList(rows *goquery.Selection, marker string) []RelativeRef {
	var out []RelativeRef
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cell := row.Find("td, th").Eq(0)
		text := CleanText(cell.Text())
		if !strings.Contains(text, marker) {
			return true
		}
		for _, line := range cellLines(cell) {
			line = CollapseSpace(line)
			if line == "" || strings.Contains(line, marker) || strings.Contains(line, "Không có") {
				continue
			}
			out = append(out, relativeStub(line))
		}
		return false
	})
	return out
}

// cellLines returns the cell's text split at <br> boundaries.
func cellLines(cell *goquery.Selection) []string {
	raw, err := cell.Html()
	if err != nil {
		return strings.Split(cell.Text(), "\n")
	}
	raw = brRe.ReplaceAllString(raw, "\n")
	frag, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Split(cell.Text(), "\n")
	}
	return strings.Split(frag.Text(), "\n")
}

var brRe = regexp.MustCompile(`(?i)<br\s*/?>`)
