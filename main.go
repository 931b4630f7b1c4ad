package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/bookmark-organizer/internal/organize"
	"github.com/dtnitsch/bookmark-organizer/internal/serve"
)

func main() {
	_ = godotenv.Load()

	sharedFlags := []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "path to YAML config file", Value: "config.yaml"},
		&cli.StringFlag{Name: "ollama-host", Usage: "Ollama base URL"},
		&cli.StringFlag{Name: "model", Usage: "generation model name"},
		&cli.IntFlag{Name: "chunk-size", Usage: "max bookmarks per categorization chunk"},
		&cli.IntFlag{Name: "workers", Usage: "concurrent chunk dispatch workers"},
		&cli.StringFlag{Name: "timeout", Usage: "per-request timeout (e.g. 60s)"},
		&cli.StringFlag{Name: "db", Usage: "SQLite database path"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
	}

	app := &cli.App{
		Name:  "bookmark-organizer",
		Usage: "categorize browser bookmark exports with a local LLM and re-export them",
		Commands: []*cli.Command{
			{
				Name:      "organize",
				Usage:     "parse a bookmark export, categorize it and write an importable file",
				ArgsUsage: "<bookmarks.html>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file path", Value: "organized-bookmarks.html"},
					&cli.StringFlag{Name: "browser", Usage: "source browser tag", Value: "chrome"},
					&cli.BoolFlag{Name: "enrich", Usage: "fetch bookmark pages to fill missing titles and descriptions"},
					&cli.StringFlag{Name: "cache-dir", Usage: "page cache directory for --enrich", Value: ".cache/pages"},
					&cli.BoolFlag{Name: "optimize-structure", Usage: "ask the model for a nested folder hierarchy"},
					&cli.BoolFlag{Name: "no-db", Usage: "skip persisting the run to SQLite"},
				}, sharedFlags...),
				Action: organize.OrganizeAction,
			},
			{
				Name:      "inspect",
				Usage:     "parse a bookmark export and print a YAML summary",
				ArgsUsage: "<bookmarks.html>",
				Flags:     sharedFlags,
				Action:    organize.InspectAction,
			},
			{
				Name:   "categories",
				Usage:  "list categories persisted by previous runs",
				Flags:  sharedFlags,
				Action: organize.CategoriesAction,
			},
			{
				Name:  "serve",
				Usage: "run the JSON API server",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "port", Usage: "listen port", Value: "8870"},
				}, sharedFlags...),
				Action: serve.ServeAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
