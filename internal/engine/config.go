package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	SourceBaseURL  string // genealogy site root, e.g. https://vietnamgiapha.com
	BackendBaseURL string // dongho REST API root; empty disables the ingest stage
	BackendToken   string // bearer token for the backend API

	OutputDir string // root of the per-family folders

	FetchTimeout time.Duration
	CrawlWorkers int     // bounded fan-out for member detail pages
	CrawlRate    float64 // requests per second against the source site (0 = unlimited)

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (api, crawler, pipeline).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}
