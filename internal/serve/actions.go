package serve

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/bookmark-organizer/internal/organize"
	"github.com/dtnitsch/bookmark-organizer/pkg/categorize"
	"github.com/dtnitsch/bookmark-organizer/pkg/llm"
)

func ServeAction(c *cli.Context) error {
	logger := organize.NewLogger(c)

	cfg, err := organize.LoadConfig(c)
	if err != nil {
		return err
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

	port := c.String("port")
	srv := New(port, categorizer, cfg, logger)
	logger.Info("API server listening", "addr", srv.Addr, "model", cfg.Model)
	return srv.ListenAndServe()
}
