package giapha

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// treeGenRe matches the "generation.sibling" prefix of a pedigree line.
var treeGenRe = regexp.MustCompile(`^(\d+)\.\d+\s+(.+)$`)

// MemberLink is one member reference found in the pedigree page, carrying
// the site's numeric ids used to fetch the member's detail page.
type MemberLink struct {
	FamilyID string
	MemberID string
	Text     string
}

// TreeSpouse is a spouse entry on a pedigree line, e.g. "Trần Thị B (vợ)".
type TreeSpouse struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// TreePerson is one node of the reconstructed family tree.
type TreePerson struct {
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	Generation int           `json:"generation"`
	Spouses    []TreeSpouse  `json:"spouses,omitempty"`
	Children   []*TreePerson `json:"children"`
}

// treeRoleRe splits "Name (role)" spouse entries.
var treeRoleRe = parenRe

// MemberLinks extracts every member link of a pedigree page, in document
// order. The pedigree page is the authoritative member listing; the
// crawler fans out from it.
func MemberLinks(htmlContent string) ([]MemberLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}
	var links []MemberLink
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		g := memberLinkRe.FindStringSubmatch(href)
		if g == nil {
			return
		}
		key := g[1] + "/" + g[2]
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, MemberLink{FamilyID: g[1], MemberID: g[2], Text: CollapseSpace(a.Text())})
	})
	return links, nil
}

// ParsePedigree reconstructs the family tree from the pedigree page. Each
// line carries a "generation.sibling" prefix; lines without one are kept
// at generation zero. Spouses ride on the member's line, separated by
// dashes, optionally tagged with a role in parentheses.
func ParsePedigree(htmlContent string) ([]*TreePerson, error) {
	links, err := MemberLinks(htmlContent)
	if err != nil {
		return nil, err
	}
	var flat []*TreePerson
	for _, l := range links {
		flat = append(flat, parsePedigreeLine(l))
	}
	return buildTree(flat), nil
}

// parsePedigreeLine turns one link's display text into a tree node.
func parsePedigreeLine(l MemberLink) *TreePerson {
	p := &TreePerson{
		Code:     MemberCode(l.FamilyID, l.MemberID),
		Children: []*TreePerson{},
	}
	text := l.Text
	if m := treeGenRe.FindStringSubmatch(text); m != nil {
		p.Generation = parseIntOr(m[1], 0)
		text = m[2]
	}
	parts := strings.Split(text, "-")
	p.Name = CollapseSpace(treeRoleRe.ReplaceAllString(parts[0], " "))
	for _, raw := range parts[1:] {
		raw = CollapseSpace(raw)
		if raw == "" {
			continue
		}
		sp := TreeSpouse{Name: raw}
		if m := treeRoleRe.FindStringSubmatch(raw); m != nil {
			sp.Role = strings.TrimSpace(m[1])
			sp.Name = CollapseSpace(treeRoleRe.ReplaceAllString(raw, " "))
		}
		p.Spouses = append(p.Spouses, sp)
	}
	return p
}

// buildTree nests a generation-ordered flat listing. A node's parent is
// the nearest preceding node of a smaller generation; equal or larger
// generations close the open branch.
func buildTree(flat []*TreePerson) []*TreePerson {
	var roots []*TreePerson
	var stack []*TreePerson
	for _, p := range flat {
		for len(stack) > 0 && stack[len(stack)-1].Generation >= p.Generation {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, p)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, p)
		}
		stack = append(stack, p)
	}
	return roots
}
