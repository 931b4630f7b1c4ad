// Package categorize drives bookmark chunks through the text-generation
// service, validates each reply, and merges the partial category maps into
// one aggregate. Failure of one chunk never aborts the run.
package categorize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dtnitsch/bookmark-organizer/models"
	"github.com/dtnitsch/bookmark-organizer/pkg/chunker"
	"github.com/dtnitsch/bookmark-organizer/pkg/llm"
)

// DefaultRetries is the per-chunk budget for the combined
// dispatch-and-validate step. The generation client retries transport
// faults internally on top of this, so a chunk can see up to
// retries x attempts underlying requests. That compounding is deliberate.
const DefaultRetries = 3

const systemPrompt = `You are an expert bookmark categorizer. Analyze the bookmarks and group
them into intuitive, user-friendly categories based on their title, URL and
original folder.

You must ALWAYS respond with one valid JSON object mapping category name to
a list of bookmarks, in this exact format:
{"Category Name": [{"title": "bookmark title", "url": "bookmark url"}]}

Never include explanatory text or markdown formatting. Only output JSON.`

// AggregateError reports total failure: every chunk exhausted its retries
// and nothing was categorized.
type AggregateError struct {
	FailedChunks []int
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("no chunks could be categorized (failed chunks: %v)", e.FailedChunks)
}

// Options tunes a Categorizer. Zero fields take defaults.
type Options struct {
	ChunkSize int // max bookmarks per chunk, default 50
	Retries   int // outer attempts per chunk, default 3
	Workers   int // concurrent chunk dispatch, default 1 (sequential)
	Logger    *slog.Logger
}

// Categorizer owns one categorization pipeline over a Generator.
type Categorizer struct {
	gen       llm.Generator
	logger    *slog.Logger
	chunkSize int
	retries   int
	workers   int
}

// New builds a Categorizer around the given generator.
func New(gen llm.Generator, opts Options) *Categorizer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultMaxBookmarks
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Categorizer{
		gen:       gen,
		logger:    opts.Logger,
		chunkSize: opts.ChunkSize,
		retries:   opts.Retries,
		workers:   opts.Workers,
	}
}

// Categorize splits nodes into chunks and categorizes each one. Chunks
// that permanently fail are dropped from the result; the run errors only
// when nothing at all could be categorized. Empty input returns an empty
// map without dispatching a single request.
func (c *Categorizer) Categorize(ctx context.Context, nodes []models.Node) (*models.CategoryMap, error) {
	aggregate := models.NewCategoryMap()
	if len(nodes) == 0 {
		return aggregate, nil
	}

	chunks, err := chunker.Split(nodes, c.chunkSize)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return aggregate, nil
	}
	c.logger.Info("starting categorization", "chunks", len(chunks), "chunk_size", c.chunkSize, "workers", c.workers)

	results := make([]*models.CategoryMap, len(chunks))
	if c.workers > 1 {
		c.runParallel(ctx, chunks, results)
	} else {
		for i, chunk := range chunks {
			results[i] = c.processChunk(ctx, i, len(chunks), chunk)
		}
	}

	// Single-owner merge in chunk order keeps category ordering
	// deterministic regardless of dispatch concurrency.
	var failed []int
	submitted := 0
	for i, chunk := range chunks {
		submitted += chunk.BookmarkCount
		if results[i] == nil {
			failed = append(failed, i)
			continue
		}
		aggregate.Merge(results[i])
	}

	if len(failed) > 0 {
		if aggregate.Len() == 0 {
			return nil, &AggregateError{FailedChunks: failed}
		}
		c.logger.Error("some chunks permanently failed, their bookmarks are dropped", "failed_chunks", failed)
	}
	if got := aggregate.Total(); got != submitted {
		c.logger.Warn("categorized count differs from submitted", "submitted", submitted, "categorized", got)
	}
	c.logger.Info("categorization finished", "categories", aggregate.Len(), "bookmarks", aggregate.Total())
	return aggregate, nil
}

// processChunk runs the combined dispatch-and-validate step with the
// outer retry budget. An empty-but-valid reply counts as a failure here:
// it forces a retry instead of silently dropping the chunk's bookmarks.
func (c *Categorizer) processChunk(ctx context.Context, idx, total int, chunk chunker.Chunk) *models.CategoryMap {
	prompt, err := renderPrompt(chunk)
	if err != nil {
		c.logger.Error("failed to render chunk prompt", "chunk", idx, "error", err)
		return nil
	}
	c.logger.Info("processing chunk", "chunk", idx+1, "total", total, "bookmarks", chunk.BookmarkCount)

	for attempt := 1; attempt <= c.retries; attempt++ {
		if ctx.Err() != nil {
			return nil
		}

		raw, err := c.gen.Generate(ctx, systemPrompt, prompt)
		if err != nil {
			c.logger.Error("chunk dispatch failed", "chunk", idx, "attempt", attempt, "error", err)
			continue
		}

		cm, err := ParseResponse(raw)
		if err != nil {
			c.logger.Error("chunk response invalid", "chunk", idx, "attempt", attempt, "error", err)
			continue
		}
		if cm.Len() == 0 {
			c.logger.Warn("chunk produced no categories", "chunk", idx, "attempt", attempt)
			continue
		}
		return cm
	}

	c.logger.Error("chunk failed permanently", "chunk", idx, "attempts", c.retries)
	return nil
}

func (c *Categorizer) runParallel(ctx context.Context, chunks []chunker.Chunk, results []*models.CategoryMap) {
	type job struct {
		idx   int
		chunk chunker.Chunk
	}
	type outcome struct {
		idx int
		cm  *models.CategoryMap
	}

	workers := c.workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	jobs := make(chan job, len(chunks))
	out := make(chan outcome, len(chunks))
	var wg sync.WaitGroup

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range jobs {
				c.logger.Debug("worker picked up chunk", "worker_id", id, "chunk", j.idx)
				out <- outcome{idx: j.idx, cm: c.processChunk(ctx, j.idx, len(chunks), j.chunk)}
			}
		}(w)
	}

	for i, chunk := range chunks {
		jobs <- job{idx: i, chunk: chunk}
	}
	close(jobs)
	wg.Wait()
	close(out)

	for r := range out {
		results[r.idx] = r.cm
	}
}

type promptBookmark struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Folder string `json:"folder,omitempty"`
}

func renderPrompt(chunk chunker.Chunk) (string, error) {
	entries := chunk.Bookmarks()
	list := make([]promptBookmark, len(entries))
	for i, bm := range entries {
		list[i] = promptBookmark{Title: bm.Title, URL: bm.URL, Folder: bm.Folder}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal chunk bookmarks: %w", err)
	}
	return "Categorize these bookmarks into meaningful groups:\n" + string(data) +
		"\n\nRespond with ONLY the JSON object described in the system prompt.", nil
}
