// Package pipeline drives the crawl → extract → ingest stages over one or
// many family folders. Stages always hand off through the store on disk,
// and every outcome lands in the run ledger, so interrupted runs resume
// instead of redoing finished work.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_giapha/internal/api"
	"github.com/anatolykoptev/go_giapha/internal/crawler"
	"github.com/anatolykoptev/go_giapha/internal/engine"
	"github.com/anatolykoptev/go_giapha/internal/giapha"
	"github.com/anatolykoptev/go_giapha/internal/ledger"
	"github.com/anatolykoptev/go_giapha/internal/resolve"
	"github.com/anatolykoptev/go_giapha/internal/store"
)

// Options select which stages run and how.
type Options struct {
	Force        bool
	InferMothers bool
	Crawl        bool
	Extract      bool
	Ingest       bool
}

// Pipeline wires the stages together for a run.
type Pipeline struct {
	st   *store.Store
	cr   *crawler.Crawler
	gw   *api.Client
	led  *ledger.Ledger
	opts Options
}

// New builds a pipeline. gw may be nil when the ingest stage is disabled.
func New(st *store.Store, led *ledger.Ledger, gw *api.Client, opts Options) *Pipeline {
	return &Pipeline{
		st:   st,
		cr:   crawler.New(st),
		gw:   gw,
		led:  led,
		opts: opts,
	}
}

// RunFamily takes one family folder through the selected stages.
func (p *Pipeline) RunFamily(ctx context.Context, folderID string) error {
	slog.Info("processing family", slog.String("folder", folderID))

	if p.opts.Crawl {
		if err := p.runStage(ctx, folderID, ledger.StageCrawl, p.crawlFamily); err != nil {
			return err
		}
	}
	if p.opts.Extract {
		if err := p.runStage(ctx, folderID, ledger.StageExtract, p.extractFamily); err != nil {
			return err
		}
	}
	if p.opts.Ingest {
		if p.gw == nil {
			return fmt.Errorf("family %s: ingest requested without a backend", folderID)
		}
		if err := p.runStage(ctx, folderID, ledger.StageIngest, p.ingestFamily); err != nil {
			return err
		}
	}
	return nil
}

// RunRange processes folders start..end inclusive. Failed families are
// logged and skipped; limit > 0 caps how many folders run.
func (p *Pipeline) RunRange(ctx context.Context, start, end, limit int) error {
	var folders []string
	for id := start; id <= end; id++ {
		folders = append(folders, strconv.Itoa(id))
	}
	return p.runFolders(ctx, folders, limit)
}

// RunStored processes every family folder already present in the store.
func (p *Pipeline) RunStored(ctx context.Context, limit int) error {
	folders, err := p.st.Folders()
	if err != nil {
		return err
	}
	return p.runFolders(ctx, folders, limit)
}

func (p *Pipeline) runFolders(ctx context.Context, folders []string, limit int) error {
	var failed []string
	ran := 0
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && ran >= limit {
			break
		}
		ran++
		if err := p.RunFamily(ctx, folder); err != nil {
			slog.Error("family failed", slog.String("folder", folder), slog.Any("error", err))
			failed = append(failed, folder)
		}
	}
	slog.Info("run finished",
		slog.Int("processed", ran),
		slog.Int("failed", len(failed)))
	if len(failed) > 0 {
		slog.Warn("failed folders", slog.Any("folders", failed))
	}
	return nil
}

// stageFunc runs one stage and reports how many members it touched.
type stageFunc func(ctx context.Context, folderID string) (int, error)

// runStage wraps a stage with ledger bookkeeping and skip-if-done.
func (p *Pipeline) runStage(ctx context.Context, folderID string, stage ledger.Stage, fn stageFunc) error {
	if !p.opts.Force {
		done, err := p.led.Completed(folderID, stage)
		if err != nil {
			return err
		}
		if done {
			slog.Debug("stage already complete",
				slog.String("folder", folderID), slog.String("stage", string(stage)))
			return nil
		}
	}
	members, err := fn(ctx, folderID)
	if err != nil {
		detail := err.Error()
		if lerr := p.led.Record(folderID, stage, ledger.StatusFailed, members, detail); lerr != nil {
			slog.Error("ledger write failed", slog.Any("error", lerr))
		}
		return fmt.Errorf("family %s %s: %w", folderID, stage, err)
	}
	return p.led.Record(folderID, stage, ledger.StatusOK, members, "")
}

func (p *Pipeline) crawlFamily(ctx context.Context, folderID string) (int, error) {
	res, err := p.cr.CrawlFamily(ctx, folderID, p.opts.Force)
	return res.MembersFetched + res.MembersSkipped, err
}

// extractFamily parses every stored page of a family into its JSON
// documents. Individual bad member pages degrade; a family with no member
// pages at all is a stage failure.
func (p *Pipeline) extractFamily(ctx context.Context, folderID string) (int, error) {
	pages, err := p.st.ListMemberPages(folderID)
	if err != nil {
		return 0, err
	}
	if len(pages) == 0 {
		return 0, fmt.Errorf("no member pages on disk")
	}

	parsed := 0
	for _, name := range pages {
		if err := ctx.Err(); err != nil {
			return parsed, err
		}
		body, err := p.st.ReadPage(p.st.MemberPagePath(folderID, giapha.IndexFromFilename(name)))
		if err != nil {
			return parsed, err
		}
		rec, err := giapha.ParseMember(string(body), folderID, name)
		if err != nil {
			slog.Warn("member page unparsable",
				slog.String("folder", folderID),
				slog.String("file", name),
				slog.Any("error", err))
			engine.IncrParseWarnings()
			continue
		}
		if err := p.st.SaveMemberRecord(folderID, rec); err != nil {
			return parsed, err
		}
		engine.IncrPagesParsed()
		parsed++
	}

	family := giapha.ParseFamily(
		p.readPageOrEmpty(folderID, "giapha.html"),
		p.readPageOrEmpty(folderID, "thuy_to.html"),
		p.readPageOrEmpty(folderID, "pha_ky.html"),
		p.readPageOrEmpty(folderID, "toc_uoc.html"),
		folderID,
	)
	if err := p.st.SaveFamilyRecord(folderID, family); err != nil {
		return parsed, err
	}

	if pedigree := p.readPageOrEmpty(folderID, "pha_he.html"); pedigree != "" {
		roots, err := giapha.ParsePedigree(pedigree)
		if err != nil {
			slog.Warn("pedigree unparsable", slog.String("folder", folderID), slog.Any("error", err))
		} else if err := p.st.SaveTree(folderID, roots); err != nil {
			return parsed, err
		}
	}

	slog.Info("family extracted", slog.String("folder", folderID), slog.Int("members", parsed))
	return parsed, nil
}

// ingestFamily loads the family and its members into the backend, then
// resolves and applies relationships.
func (p *Pipeline) ingestFamily(ctx context.Context, folderID string) (int, error) {
	records, err := p.st.LoadMemberRecords(folderID)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("no member records on disk")
	}
	familyRec, err := p.st.LoadFamilyRecord(folderID)
	if err != nil {
		return 0, err
	}
	if name := strings.TrimSpace(familyRec.Name); name == "" || invalidFamilyNames[name] {
		// Dead folders come back with the site's error-page title (or
		// nothing at all); loading them would mint junk families.
		slog.Warn("family name unusable, skipping ingest",
			slog.String("folder", folderID),
			slog.String("name", familyRec.Name))
		return 0, fmt.Errorf("unusable family name %q", familyRec.Name)
	}
	if familyRec.Code == "" {
		familyRec.Code = giapha.FamilyCode(folderID)
	}

	familyID, err := p.ensureFamily(ctx, familyRec)
	if err != nil {
		return 0, err
	}

	rc := resolve.NewContext(familyID)
	resolver := resolve.New(p.gw, records, resolve.Options{InferMothers: p.opts.InferMothers})
	updates, err := resolver.Run(ctx, rc)
	if err != nil {
		return 0, err
	}

	if err := p.st.SaveMemberIDs(folderID, rc.IDByCode); err != nil {
		return len(rc.IDByCode), err
	}
	if err := p.st.SaveRelationships(folderID, updates); err != nil {
		return len(rc.IDByCode), err
	}
	slog.Info("family ingested",
		slog.String("folder", folderID),
		slog.String("family_id", familyID),
		slog.Int("members", len(rc.IDByCode)),
		slog.Int("linked", len(updates)))
	return len(rc.IDByCode), nil
}

// invalidFamilyNames are the placeholder titles the site serves for dead
// or unnamed folders.
var invalidFamilyNames = map[string]bool{
	"TỘC -":         true,
	"GIA PHẢ TỘC -": true,
}

// ensureFamily find-or-creates the family entity. Unlike member failures
// this is fatal for the folder: nothing can be ingested without it.
func (p *Pipeline) ensureFamily(ctx context.Context, rec giapha.FamilyRecord) (string, error) {
	id, found, err := p.gw.FindFamilyByCode(ctx, rec.Code)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}
	id, err = p.gw.CreateFamily(ctx, api.NewFamilyPayload(rec))
	if err != nil {
		return "", err
	}
	slog.Info("family created", slog.String("code", rec.Code), slog.String("id", id))
	return id, nil
}

func (p *Pipeline) readPageOrEmpty(folderID, name string) string {
	path := p.st.RawPagePath(folderID, name)
	if !p.st.HasPage(path) {
		return ""
	}
	body, err := p.st.ReadPage(path)
	if err != nil {
		slog.Warn("page unreadable", slog.String("path", path), slog.Any("error", err))
		return ""
	}
	return string(body)
}
