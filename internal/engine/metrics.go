package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	CrawlRequests atomic.Int64
	CrawlErrors   atomic.Int64
	PagesParsed   atomic.Int64
	ParseWarnings atomic.Int64
	APILookups    atomic.Int64
	APICreates    atomic.Int64
	APIUpdates    atomic.Int64
	APIErrors     atomic.Int64
}

// IncrCrawlRequests increments the crawl request counter.
func IncrCrawlRequests() { metrics.CrawlRequests.Add(1) }

// IncrCrawlErrors increments the crawl error counter.
func IncrCrawlErrors() { metrics.CrawlErrors.Add(1) }

// IncrPagesParsed increments the parsed page counter.
func IncrPagesParsed() { metrics.PagesParsed.Add(1) }

// IncrParseWarnings increments the data-quality warning counter.
func IncrParseWarnings() { metrics.ParseWarnings.Add(1) }

// IncrAPILookups increments the backend lookup counter.
func IncrAPILookups() { metrics.APILookups.Add(1) }

// IncrAPICreates increments the backend create counter.
func IncrAPICreates() { metrics.APICreates.Add(1) }

// IncrAPIUpdates increments the backend relationship-update counter.
func IncrAPIUpdates() { metrics.APIUpdates.Add(1) }

// IncrAPIErrors increments the backend call failure counter.
func IncrAPIErrors() { metrics.APIErrors.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"crawl_requests": metrics.CrawlRequests.Load(),
		"crawl_errors":   metrics.CrawlErrors.Load(),
		"pages_parsed":   metrics.PagesParsed.Load(),
		"parse_warnings": metrics.ParseWarnings.Load(),
		"api_lookups":    metrics.APILookups.Load(),
		"api_creates":    metrics.APICreates.Load(),
		"api_updates":    metrics.APIUpdates.Load(),
		"api_errors":     metrics.APIErrors.Load(),
		"cache_hits":     hits,
		"cache_misses":   misses,
	}
}

// FormatMetrics returns metrics as a simple text format for the end-of-run summary.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"crawl_requests", "crawl_errors",
		"pages_parsed", "parse_warnings",
		"api_lookups", "api_creates", "api_updates", "api_errors",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
