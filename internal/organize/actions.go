// Package organize implements the CLI actions driving the full pipeline:
// parse, optional enrichment, chunked categorization, optional structure
// optimization, export and persistence.
package organize

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/bookmark-organizer/models"
	"github.com/dtnitsch/bookmark-organizer/pkg/categorize"
	"github.com/dtnitsch/bookmark-organizer/pkg/db"
	"github.com/dtnitsch/bookmark-organizer/pkg/enrich"
	"github.com/dtnitsch/bookmark-organizer/pkg/export"
	"github.com/dtnitsch/bookmark-organizer/pkg/llm"
	"github.com/dtnitsch/bookmark-organizer/pkg/parser"
	"github.com/dtnitsch/bookmark-organizer/pkg/structure"
)

// NewLogger builds the shared JSON logger; --quiet raises the level.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig resolves configuration from file, environment and flags.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("ollama-host") {
		cfg.OllamaHost = c.String("ollama-host")
	}
	if c.IsSet("model") {
		cfg.Model = c.String("model")
	}
	if c.IsSet("chunk-size") {
		cfg.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		timeout, err := time.ParseDuration(c.String("timeout"))
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration: %w", err)
		}
		cfg.RequestTimeout = models.Duration(timeout)
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	return cfg, nil
}

func OrganizeAction(c *cli.Context) error {
	logger := NewLogger(c)
	startTime := time.Now()

	cfg, err := LoadConfig(c)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	inputPath := c.Args().First()
	if inputPath == "" {
		return fmt.Errorf("no bookmark file provided, usage: organize <bookmarks.html>")
	}
	content, err := os.ReadFile(inputPath)
	if err != nil {
		logger.Error("failed to read bookmark file", "path", inputPath, "error", err)
		os.Exit(2)
	}

	nodes, err := parser.Flatten(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse bookmarks: %w", err)
	}

	browser := c.String("browser")
	bookmarks := leaves(nodes, browser)
	logger.Info("parsed bookmark file", "path", inputPath, "bookmarks", len(bookmarks))

	if c.Bool("enrich") {
		enricher := enrich.New(enrich.Options{
			Workers:  cfg.Workers,
			CacheDir: c.String("cache-dir"),
			Logger:   logger,
		})
		logger.Info("enriching bookmarks from their target pages", "count", len(bookmarks))
		bookmarks = enricher.Enrich(c.Context, bookmarks)
		nodes = replaceLeaves(nodes, bookmarks)
	}

	client := llm.NewClient(llm.Config{
		Host:        cfg.OllamaHost,
		Model:       cfg.Model,
		Timeout:     time.Duration(cfg.RequestTimeout),
		Temperature: cfg.Temperature,
		NumPredict:  cfg.NumPredict,
		Stream:      true,
	})

	categorizer := categorize.New(client, categorize.Options{
		ChunkSize: cfg.ChunkSize,
		Workers:   cfg.Workers,
		Logger:    logger,
	})

	cm, err := categorizer.Categorize(c.Context, nodes)
	if err != nil {
		var aggErr *categorize.AggregateError
		if errors.As(err, &aggErr) {
			logger.Error("categorization failed completely", "failed_chunks", aggErr.FailedChunks)
			fmt.Fprintf(os.Stderr, "Failed to categorize any bookmarks (failed chunks: %v)\n", aggErr.FailedChunks)
			os.Exit(1)
		}
		return err
	}

	if categorized := cm.Total(); categorized != len(bookmarks) {
		fmt.Fprintf(os.Stderr, "Warning: %d bookmarks submitted, %d categorized, some were dropped\n", len(bookmarks), categorized)
	}

	outputPath := c.String("output")
	outFile, err := os.Create(outputPath)
	if err != nil {
		logger.Error("failed to create output file", "path", outputPath, "error", err)
		os.Exit(2)
	}
	defer outFile.Close()

	var st *models.Structure
	if c.Bool("optimize-structure") {
		st = structure.Optimize(c.Context, client, cm, logger)
		err = export.WriteStructure(outFile, st, bookmarks)
	} else {
		err = export.Write(outFile, cm, bookmarks)
	}
	if err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	if !c.Bool("no-db") {
		if err := persistRun(cfg.DBPath, cm, bookmarks, st, logger); err != nil {
			logger.Warn("failed to persist run", "error", err)
		}
	}

	fmt.Printf("Organized %d bookmarks into %d categories in %s\n", cm.Total(), cm.Len(), time.Since(startTime).Round(time.Millisecond))
	fmt.Printf("Export written to: %s\n", outputPath)
	return nil
}

func persistRun(dbPath string, cm *models.CategoryMap, bookmarks []models.Bookmark, st *models.Structure, logger *slog.Logger) error {
	database, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SaveRun(cm, bookmarks); err != nil {
		return err
	}
	if st != nil {
		if _, err := database.SaveStructure("organize", st); err != nil {
			return err
		}
	}
	logger.Info("run persisted", "db", database.Path(), "categories", cm.Len(), "bookmarks", cm.Total())
	return nil
}

// inspectSummary is the YAML document InspectAction prints.
type inspectSummary struct {
	Path      string         `yaml:"path"`
	Bookmarks int            `yaml:"bookmarks"`
	Folders   int            `yaml:"folders"`
	Tree      *models.Folder `yaml:"tree"`
}

func InspectAction(c *cli.Context) error {
	inputPath := c.Args().First()
	if inputPath == "" {
		return fmt.Errorf("no bookmark file provided, usage: inspect <bookmarks.html>")
	}
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read bookmark file: %w", err)
	}

	root, err := parser.Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse bookmarks: %w", err)
	}

	summary := inspectSummary{
		Path:      inputPath,
		Bookmarks: len(parser.Bookmarks(root)),
		Folders:   countFolders(root) - 1, // root is implicit
		Tree:      root,
	}
	out, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func CategoriesAction(c *cli.Context) error {
	cfg, err := LoadConfig(c)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	categories, err := database.ListCategories()
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		fmt.Println("No categories stored yet. Run 'organize' first.")
		return nil
	}
	for _, cat := range categories {
		fmt.Printf("%4d  %-40s %d bookmarks\n", cat.CategoryID, cat.Name, cat.Bookmarks)
	}
	return nil
}

// leaves extracts bookmark copies from a node sequence, tagging them with
// the source browser.
func leaves(nodes []models.Node, browser string) []models.Bookmark {
	var out []models.Bookmark
	for _, n := range nodes {
		if n.IsBookmark() {
			bm := *n.Bookmark
			bm.SourceBrowser = browser
			out = append(out, bm)
		}
	}
	return out
}

// replaceLeaves rebuilds a node sequence with updated bookmark copies, in
// the same order leaves() produced them.
func replaceLeaves(nodes []models.Node, bookmarks []models.Bookmark) []models.Node {
	out := make([]models.Node, len(nodes))
	copy(out, nodes)
	i := 0
	for idx, n := range out {
		if n.IsBookmark() && i < len(bookmarks) {
			bm := bookmarks[i]
			out[idx].Bookmark = &bm
			i++
		}
	}
	return out
}

func countFolders(folder *models.Folder) int {
	n := 1
	for _, sub := range folder.Subfolders {
		n += countFolders(sub)
	}
	return n
}
