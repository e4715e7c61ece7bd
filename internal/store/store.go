// Package store owns the per-family working directory: raw crawled pages
// and the intermediate JSON documents each stage reads and writes. Every
// stage boundary goes through disk, so any stage can be re-run or
// inspected in isolation.
//
// Layout under the root:
//
//	<folder>/raw_html/giapha.html           cleaned family overview
//	<folder>/raw_html/{pha_ky,thuy_to,toc_uoc,pha_he}.html
//	<folder>/raw_html/members/<n>.html      cleaned member detail pages
//	<folder>/data/family.json
//	<folder>/data/members/<n>.json
//	<folder>/data/pha_he.json               reconstructed tree
//	<folder>/data/member_ids.json           code → backend id
//	<folder>/data/relationships.json        applied link operations
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_giapha/internal/giapha"
	"github.com/anatolykoptev/go_giapha/internal/resolve"
)

// Store is rooted at the output directory configured for the run.
type Store struct {
	root string
}

func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) familyDir(folder string) string {
	return filepath.Join(s.root, folder)
}

func (s *Store) rawDir(folder string) string {
	return filepath.Join(s.familyDir(folder), "raw_html")
}

func (s *Store) membersRawDir(folder string) string {
	return filepath.Join(s.rawDir(folder), "members")
}

func (s *Store) dataDir(folder string) string {
	return filepath.Join(s.familyDir(folder), "data")
}

// RawPagePath returns the path of a family-level page like "giapha.html".
func (s *Store) RawPagePath(folder, name string) string {
	return filepath.Join(s.rawDir(folder), name)
}

// MemberPagePath returns the path of a member detail page.
func (s *Store) MemberPagePath(folder, memberID string) string {
	return filepath.Join(s.membersRawDir(folder), memberID+".html")
}

// HasPage reports whether path exists with content.
func (s *Store) HasPage(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// SavePage writes a crawled page, creating directories as needed.
func (s *Store) SavePage(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	return nil
}

// ReadPage reads a crawled page.
func (s *Store) ReadPage(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return data, nil
}

// ListMemberPages returns the member page filenames of a family, sorted
// by their numeric index.
func (s *Store) ListMemberPages(folder string) ([]string, error) {
	entries, err := os.ReadDir(s.membersRawDir(folder))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list member pages: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".html") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return pageIndex(names[i]) < pageIndex(names[j])
	})
	return names, nil
}

func pageIndex(name string) int {
	n, err := strconv.Atoi(giapha.IndexFromFilename(name))
	if err != nil {
		return 1 << 30
	}
	return n
}

// SaveMemberRecord persists one parsed member document.
func (s *Store) SaveMemberRecord(folder string, rec *giapha.MemberRecord) error {
	_, index, ok := giapha.ParseMemberCode(rec.Code)
	if !ok {
		return fmt.Errorf("save member record: malformed code %q", rec.Code)
	}
	return s.writeJSON(filepath.Join(s.dataDir(folder), "members", index+".json"), rec)
}

// LoadMemberRecords reads every member document of a family, sorted by
// page index.
func (s *Store) LoadMemberRecords(folder string) ([]*giapha.MemberRecord, error) {
	dir := filepath.Join(s.dataDir(folder), "members")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load member records: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return pageIndex(names[i]) < pageIndex(names[j])
	})
	records := make([]*giapha.MemberRecord, 0, len(names))
	for _, name := range names {
		var rec giapha.MemberRecord
		if err := s.readJSON(filepath.Join(dir, name), &rec); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, nil
}

// SaveFamilyRecord persists the family document.
func (s *Store) SaveFamilyRecord(folder string, rec giapha.FamilyRecord) error {
	return s.writeJSON(filepath.Join(s.dataDir(folder), "family.json"), rec)
}

// LoadFamilyRecord reads the family document. A missing document yields a
// zero record and no error, so ingest can fall back to placeholders.
func (s *Store) LoadFamilyRecord(folder string) (giapha.FamilyRecord, error) {
	var rec giapha.FamilyRecord
	err := s.readJSON(filepath.Join(s.dataDir(folder), "family.json"), &rec)
	if os.IsNotExist(err) {
		return giapha.FamilyRecord{}, nil
	}
	return rec, err
}

// SaveTree persists the reconstructed pedigree.
func (s *Store) SaveTree(folder string, roots []*giapha.TreePerson) error {
	return s.writeJSON(filepath.Join(s.dataDir(folder), "pha_he.json"), roots)
}

// SaveMemberIDs persists the code→backend-id table of the last ingest,
// the artifact that makes reruns and manual fixes auditable.
func (s *Store) SaveMemberIDs(folder string, ids map[string]string) error {
	return s.writeJSON(filepath.Join(s.dataDir(folder), "member_ids.json"), ids)
}

// SaveRelationships persists the applied link operations.
func (s *Store) SaveRelationships(folder string, updates []resolve.RelationshipUpdate) error {
	return s.writeJSON(filepath.Join(s.dataDir(folder), "relationships.json"), updates)
}

// Folders lists the numeric family folders under the root, sorted
// numerically.
func (s *Store) Folders() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	var folders []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		folders = append(folders, e.Name())
	}
	sort.Slice(folders, func(i, j int) bool {
		a, _ := strconv.Atoi(folders[i])
		b, _ := strconv.Atoi(folders[j])
		return a < b
	})
	return folders, nil
}

func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
