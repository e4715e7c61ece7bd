// go_giapha converts family books published on vietnamgiapha.com into a
// genealogy backend: crawl the site's pages, extract normalized member
// and family records, then load them and their relationships through the
// backend's REST API. Stages are resumable and idempotent, so the same
// range of family ids can be run again after failures without duplicating
// backend entities.
//
// Usage:
//
//	go_giapha -family 72
//	go_giapha -start 1 -end 500 -stages crawl,extract
//	go_giapha -stored -stages ingest -no-infer-mothers
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"

	"github.com/anatolykoptev/go_giapha/internal/api"
	"github.com/anatolykoptev/go_giapha/internal/engine"
	"github.com/anatolykoptev/go_giapha/internal/ledger"
	"github.com/anatolykoptev/go_giapha/internal/pipeline"
	"github.com/anatolykoptev/go_giapha/internal/store"
)

func main() {
	family := flag.String("family", "", "process a single family folder id")
	start := flag.Int("start", 0, "first family id of a range")
	end := flag.Int("end", 0, "last family id of a range")
	stored := flag.Bool("stored", false, "process every family folder already on disk")
	limit := flag.Int("limit", 0, "cap the number of families processed (0 = no cap)")
	force := flag.Bool("force", false, "redo completed stages and refetch existing pages")
	stages := flag.String("stages", "crawl,extract,ingest", "comma-separated stages to run")
	noInferMothers := flag.Bool("no-infer-mothers", false, "disable mother inference from the father's first wife")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	engine.Init(engine.Config{
		SourceBaseURL:        env.Str("SOURCE_BASE_URL", "https://vietnamgiapha.com"),
		BackendBaseURL:       env.Str("BACKEND_BASE_URL", ""),
		BackendToken:         env.Str("BACKEND_TOKEN", ""),
		OutputDir:            env.Str("OUTPUT_DIR", "output"),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 30*time.Second),
		CrawlWorkers:         env.Int("CRAWL_WORKERS", 4),
		CrawlRate:            env.Float("CRAWL_RATE", 2.0),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 100_000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
	})
	engine.InitCache(
		env.Str("REDIS_URL", ""),
		engine.CacheTTL,
		engine.Cfg.CacheMaxEntries,
		engine.Cfg.CacheCleanupInterval,
	)

	opts, err := buildOptions(*stages, *force, !*noInferMothers)
	if err != nil {
		fatal(err)
	}
	if opts.Ingest && engine.Cfg.BackendBaseURL == "" {
		fatal(fmt.Errorf("ingest stage requires BACKEND_BASE_URL"))
	}

	led, err := ledger.Open(env.Str("LEDGER_PATH", "go_giapha.db"))
	if err != nil {
		fatal(err)
	}
	defer led.Close()

	var gw *api.Client
	if engine.Cfg.BackendBaseURL != "" {
		gw = api.NewClient(engine.Cfg.BackendBaseURL, engine.Cfg.BackendToken)
	}
	p := pipeline.New(store.New(engine.Cfg.OutputDir), led, gw, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *family != "":
		err = p.RunFamily(ctx, *family)
	case *stored:
		err = p.RunStored(ctx, *limit)
	case *start > 0 && *end >= *start:
		err = p.RunRange(ctx, *start, *end, *limit)
	default:
		flag.Usage()
		os.Exit(2)
	}

	fmt.Fprint(os.Stderr, engine.FormatMetrics())
	if err != nil {
		fatal(err)
	}
}

// buildOptions validates the stage list. Stage order is fixed; the flag
// only selects which ones run.
func buildOptions(stages string, force, inferMothers bool) (pipeline.Options, error) {
	opts := pipeline.Options{Force: force, InferMothers: inferMothers}
	for _, stage := range strings.Split(stages, ",") {
		switch strings.TrimSpace(stage) {
		case "crawl":
			opts.Crawl = true
		case "extract":
			opts.Extract = true
		case "ingest":
			opts.Ingest = true
		case "":
		default:
			return opts, fmt.Errorf("unknown stage %q", stage)
		}
	}
	if !opts.Crawl && !opts.Extract && !opts.Ingest {
		return opts, fmt.Errorf("no stages selected")
	}
	return opts, nil
}

func fatal(err error) {
	slog.Error("fatal", slog.Any("error", err))
	os.Exit(1)
}
