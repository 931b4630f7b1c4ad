// Package enrich fills gaps in parsed bookmarks by fetching their target
// pages: blank titles get the page title, missing descriptions get the
// readability excerpt, and detected content language is tagged on the
// copy. Failures are per-bookmark and never fail the run.
package enrich

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/dtnitsch/bookmark-organizer/models"
	"github.com/dtnitsch/bookmark-organizer/pkg/caching"
	"github.com/dtnitsch/bookmark-organizer/pkg/fetcher"
)

// Options configures an Enricher. Zero fields take defaults.
type Options struct {
	Workers      int
	FetchTimeout time.Duration
	CacheDir     string // empty disables the page cache
	CacheTTL     time.Duration
	Logger       *slog.Logger
}

// Enricher annotates bookmarks with metadata from their target pages.
type Enricher struct {
	fetcher  *fetcher.Fetcher
	cache    *caching.Cache
	detector lingua.LanguageDetector
	logger   *slog.Logger
	workers  int
}

// New builds an Enricher. The cache is optional; a cache that cannot be
// created is logged and skipped rather than failing construction.
func New(opts Options) *Enricher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var cache *caching.Cache
	if opts.CacheDir != "" {
		var err error
		cache, err = caching.NewCache(opts.CacheDir, opts.CacheTTL)
		if err != nil {
			opts.Logger.Warn("page cache unavailable, fetching uncached", "error", err)
			cache = nil
		}
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English, lingua.German, lingua.French, lingua.Spanish,
			lingua.Portuguese, lingua.Italian, lingua.Dutch, lingua.Russian,
			lingua.Japanese, lingua.Chinese,
		).
		Build()

	return &Enricher{
		fetcher:  fetcher.NewFetcher(opts.FetchTimeout),
		cache:    cache,
		detector: detector,
		logger:   opts.Logger,
		workers:  opts.Workers,
	}
}

// Enrich returns annotated copies of the input bookmarks in input order.
// The input slice is never modified.
func (e *Enricher) Enrich(ctx context.Context, bookmarks []models.Bookmark) []models.Bookmark {
	out := make([]models.Bookmark, len(bookmarks))
	copy(out, bookmarks)
	if len(bookmarks) == 0 {
		return out
	}

	type job struct {
		idx int
		bm  models.Bookmark
	}

	jobs := make(chan job, len(bookmarks))
	var wg sync.WaitGroup

	workers := e.workers
	if workers > len(bookmarks) {
		workers = len(bookmarks)
	}
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					return
				}
				out[j.idx] = e.enrichOne(ctx, id, j.bm)
			}
		}(w)
	}

	for i, bm := range bookmarks {
		jobs <- job{idx: i, bm: bm}
	}
	close(jobs)
	wg.Wait()

	return out
}

func (e *Enricher) enrichOne(ctx context.Context, workerID int, bm models.Bookmark) models.Bookmark {
	pageURL, err := url.Parse(bm.URL)
	if err != nil || !strings.HasPrefix(pageURL.Scheme, "http") {
		return bm
	}

	html, ok := e.cachedPage(bm.URL)
	if !ok {
		html, err = e.fetcher.GetHTML(ctx, bm.URL)
		if err != nil {
			e.logger.Debug("enrich fetch failed", "worker_id", workerID, "url", bm.URL, "error", err)
			return bm
		}
		e.storePage(bm.URL, html)
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(string(html)), pageURL)
	if err != nil {
		e.logger.Debug("enrich extraction failed", "worker_id", workerID, "url", bm.URL, "error", err)
		return bm
	}

	if (bm.Title == "" || bm.Title == bm.URL) && strings.TrimSpace(article.Title) != "" {
		bm.Title = strings.TrimSpace(article.Title)
	}
	if bm.Description == "" && strings.TrimSpace(article.Excerpt) != "" {
		bm.Description = strings.TrimSpace(article.Excerpt)
	}
	if bm.Language == "" {
		if lang := e.detectLanguage(article.TextContent); lang != "" {
			bm.Language = lang
		}
	}
	return bm
}

func (e *Enricher) detectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < 40 {
		return ""
	}
	if len(text) > 1000 {
		cut := 1000
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	lang, ok := e.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

func (e *Enricher) cachedPage(url string) ([]byte, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(url)
}

func (e *Enricher) storePage(url string, data []byte) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(url, data); err != nil {
		e.logger.Debug("failed to cache page", "url", url, "error", err)
	}
}
