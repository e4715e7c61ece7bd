package giapha

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// Anchors inside the family overview pages.
const (
	descriptionMarker = "Lời nói tiêu biểu của học tộc"
	addressMarker     = "Ở tại"
	managerMarker     = "Thông tin người quản lý gia phả này"
	covenantMarker    = "TỘC ƯỚC - GIA PHÁP"
)

// progenitorNameRe captures the founder's name from the ancestor page,
// written as an all-caps run after the "CỤ TỔ" honorific.
var progenitorNameRe = regexp.MustCompile(`CỤ TỔ\s+([\p{Lu}][\p{Lu}\s]*)`)

// ParseFamily merges the four family overview pages into one FamilyRecord.
// Each page is independent; a missing or malformed page leaves its fields
// empty. folderID determines the family's symbolic code.
func ParseFamily(overviewHTML, progenitorHTML, genealogyHTML, covenantHTML, folderID string) FamilyRecord {
	rec := FamilyRecord{
		Code:       FamilyCode(folderID),
		Visibility: "Private",
	}
	parseOverview(overviewHTML, &rec)

	progenitor := parseProgenitor(progenitorHTML, &rec)
	ledger := parseLongText(genealogyHTML)
	rec.GenealogyRecord = joinNonEmpty(" ", progenitor, ledger)

	rec.FamilyCovenant = parseCovenant(covenantHTML)
	return rec
}

// parseOverview fills name, description, address and contact info from the
// main family page.
func parseOverview(htmlContent string, rec *FamilyRecord) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return
	}

	// The family name is the big red heading of the centered banner.
	doc.Find(`div[align="center"] font[color="#ff0000"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if name := CollapseSpace(s.Text()); name != "" {
			rec.Name = name
			return false
		}
		return true
	})

	if _, after, ok := strings.Cut(doc.Text(), descriptionMarker); ok {
		line := after
		if i := strings.IndexByte(line, '\n'); i >= 0 {
			line = line[:i]
		}
		rec.Description = CollapseSpace(strings.TrimPrefix(strings.TrimSpace(line), ":"))
	}

	doc.Find(`div[align="center"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), addressMarker) {
			return true
		}
		addr := CollapseSpace(s.Find("font").Last().Text())
		addr = strings.TrimSpace(strings.TrimPrefix(addr, addressMarker))
		rec.Address = strings.TrimSpace(strings.TrimPrefix(addr, ":"))
		return false
	})

	// Left-aligned item lists hold site bookkeeping; everything after the
	// manager marker is contact info, the rest is kept as other info.
	var other, contact []string
	inContact := false
	doc.Find(`div[align="left"] li, div[align="left"] b`).Each(func(_ int, s *goquery.Selection) {
		item := CollapseSpace(s.Text())
		if item == "" {
			return
		}
		if strings.Contains(item, managerMarker) {
			inContact = true
			return
		}
		if inContact {
			contact = append(contact, item)
		} else {
			other = append(other, item)
		}
	})
	rec.ContactInfo = strings.Join(contact, " | ")
	rec.OtherInfo = strings.Join(other, " | ")
}

// parseProgenitor returns the ancestor page's narrative and fills the
// founder's name.
func parseProgenitor(htmlContent string, rec *FamilyRecord) string {
	text := parseLongText(htmlContent)
	if m := progenitorNameRe.FindStringSubmatch(text); m != nil {
		rec.ProgenitorName = CollapseSpace(m[1])
	}
	return text
}

// parseCovenant extracts the covenant page's body, requiring its heading
// so arbitrary error pages do not leak into the record.
func parseCovenant(htmlContent string) string {
	if !strings.Contains(htmlContent, covenantMarker) {
		return ""
	}
	text := parseLongText(htmlContent)
	if _, after, ok := strings.Cut(text, covenantMarker); ok {
		text = strings.TrimSpace(after)
	}
	return text
}

// parseLongText pulls the main justified-text container of a page and
// renders it to plain markdown, so the narrative keeps its paragraph
// breaks without carrying presentational markup into the backend.
func parseLongText(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	container := doc.Find(`div[align="justify"]`).First()
	if container.Length() == 0 {
		return ""
	}
	inner, err := container.Html()
	if err != nil {
		return CollapseSpace(container.Text())
	}
	md, err := htmltomarkdown.ConvertString(inner)
	if err != nil {
		return CollapseSpace(container.Text())
	}
	return strings.TrimSpace(md)
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
