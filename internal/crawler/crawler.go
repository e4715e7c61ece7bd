package crawler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_giapha/internal/engine"
	"github.com/anatolykoptev/go_giapha/internal/giapha"
	"github.com/anatolykoptev/go_giapha/internal/store"
)

// familyPages are the per-family overview pages, fetched before the
// member fan-out. pha_he.html doubles as the member index.
var familyPages = []struct {
	name string
	path string
}{
	{"giapha.html", "XemGiaPha/%s/giapha.html"},
	{"pha_ky.html", "XemPhaKy/%s/giapha.html"},
	{"thuy_to.html", "XemThuyTo/%s/giapha.html"},
	{"toc_uoc.html", "XemTocUoc/%s/giapha.html"},
	{"pha_he.html", "XemPhaHe/%s/giapha.html"},
}

const memberPagePath = "XemChiTietTungNguoi/%s/%s/giapha.html"

// failureThreshold stops a family's member fan-out after this many
// consecutive failures; the site answers soft errors long before real
// id ranges end.
const failureThreshold = 100

// maxProbeID bounds the blind id scan used when the pedigree page yields
// no member links.
const maxProbeID = 50000

// Soft-error markers: the site answers HTTP 200 with an error page.
var (
	softErrCode = []byte("Error code:")
	softErrMsg  = []byte("Error message:")
)

// Crawler downloads one family at a time, rate-limited against the
// source site, fanning member pages out over a small worker pool.
type Crawler struct {
	st      *store.Store
	limiter *rate.Limiter
}

// New builds a crawler writing through st. Rate and worker count come
// from the engine configuration.
func New(st *store.Store) *Crawler {
	limit := rate.Inf
	if engine.Cfg.CrawlRate > 0 {
		limit = rate.Limit(engine.Cfg.CrawlRate)
	}
	return &Crawler{st: st, limiter: rate.NewLimiter(limit, 1)}
}

// Result summarizes one family's crawl.
type Result struct {
	MembersFetched int
	MembersSkipped int
}

// CrawlFamily downloads the family's overview pages and every member
// page it can discover. Existing files are kept unless force is set.
func (c *Crawler) CrawlFamily(ctx context.Context, folderID string, force bool) (Result, error) {
	var res Result
	for _, page := range familyPages {
		if err := c.fetchFamilyPage(ctx, folderID, page.name, page.path, force); err != nil {
			return res, err
		}
	}

	links, err := c.memberLinks(folderID)
	if err != nil {
		return res, err
	}
	if len(links) == 0 {
		slog.Warn("pedigree page yields no member links, probing sequential ids",
			slog.String("folder", folderID))
		return c.crawlSequential(ctx, folderID, force)
	}
	return c.crawlLinks(ctx, folderID, links, force)
}

// fetchFamilyPage downloads one overview page, cleaning the two pages the
// extractors read most heavily.
func (c *Crawler) fetchFamilyPage(ctx context.Context, folderID, name, path string, force bool) error {
	dest := c.st.RawPagePath(folderID, name)
	if !force && c.st.HasPage(dest) {
		return nil
	}
	url := fmt.Sprintf("%s/"+path, engine.Cfg.SourceBaseURL, folderID)
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	body, err := engine.FetchPage(ctx, url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", name, err)
	}
	if isSoftError(body) {
		slog.Warn("source answered an error page",
			slog.String("folder", folderID), slog.String("page", name))
		return nil
	}
	if name == "giapha.html" {
		body = CleanOverviewPage(body)
	}
	return c.st.SavePage(dest, body)
}

// memberLinks reads the stored pedigree page and extracts the member ids.
func (c *Crawler) memberLinks(folderID string) ([]giapha.MemberLink, error) {
	path := c.st.RawPagePath(folderID, "pha_he.html")
	if !c.st.HasPage(path) {
		return nil, nil
	}
	body, err := c.st.ReadPage(path)
	if err != nil {
		return nil, err
	}
	return giapha.MemberLinks(string(body))
}

// crawlLinks fans the discovered member pages out over the worker pool.
func (c *Crawler) crawlLinks(ctx context.Context, folderID string, links []giapha.MemberLink, force bool) (Result, error) {
	workers := engine.Cfg.CrawlWorkers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan giapha.MemberLink)
	var fetched, skipped atomic.Int64
	var failures atomic.Int64

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				switch c.fetchMemberPage(ctx, folderID, link.MemberID, force) {
				case fetchOK:
					fetched.Add(1)
					failures.Store(0)
				case fetchSkipped:
					skipped.Add(1)
				case fetchFailed:
					failures.Add(1)
				}
			}
		}()
	}

feed:
	for _, link := range links {
		if ctx.Err() != nil || failures.Load() >= failureThreshold {
			break feed
		}
		select {
		case jobs <- link:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	res := Result{MembersFetched: int(fetched.Load()), MembersSkipped: int(skipped.Load())}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if failures.Load() >= failureThreshold {
		return res, fmt.Errorf("crawl family %s: %d consecutive member fetches failed", folderID, failureThreshold)
	}
	slog.Info("family crawled",
		slog.String("folder", folderID),
		slog.Int("fetched", res.MembersFetched),
		slog.Int("skipped", res.MembersSkipped))
	return res, nil
}

// crawlSequential probes member ids in order until the failure threshold,
// for families whose pedigree page is broken.
func (c *Crawler) crawlSequential(ctx context.Context, folderID string, force bool) (Result, error) {
	var res Result
	consecutive := 0
	for id := 1; id <= maxProbeID; id++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch c.fetchMemberPage(ctx, folderID, fmt.Sprint(id), force) {
		case fetchOK:
			res.MembersFetched++
			consecutive = 0
		case fetchSkipped:
			res.MembersSkipped++
			consecutive = 0
		case fetchFailed:
			consecutive++
			if consecutive >= failureThreshold {
				slog.Info("probe stopped at failure threshold",
					slog.String("folder", folderID), slog.Int("last_id", id))
				return res, nil
			}
		}
	}
	return res, nil
}

type fetchOutcome int

const (
	fetchOK fetchOutcome = iota
	fetchSkipped
	fetchFailed
)

// fetchMemberPage downloads, cleans and stores one member detail page.
func (c *Crawler) fetchMemberPage(ctx context.Context, folderID, memberID string, force bool) fetchOutcome {
	dest := c.st.MemberPagePath(folderID, memberID)
	if !force && c.st.HasPage(dest) {
		return fetchSkipped
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fetchFailed
	}
	url := fmt.Sprintf("%s/"+memberPagePath, engine.Cfg.SourceBaseURL, folderID, memberID)
	body, err := engine.FetchPage(ctx, url)
	if err != nil {
		slog.Warn("member fetch failed",
			slog.String("folder", folderID),
			slog.String("member", memberID),
			slog.Any("error", err))
		return fetchFailed
	}
	if isSoftError(body) {
		return fetchFailed
	}
	if err := c.st.SavePage(dest, CleanMemberPage(body)); err != nil {
		slog.Error("member page save failed", slog.Any("error", err))
		return fetchFailed
	}
	return fetchOK
}

func isSoftError(body []byte) bool {
	return bytes.Contains(body, softErrCode) && bytes.Contains(body, softErrMsg)
}
