// Package serve exposes the organizer pipeline over a small JSON API.
package serve

import (
	"log/slog"
	"net/http"

	"github.com/dtnitsch/bookmark-organizer/models"
	"github.com/dtnitsch/bookmark-organizer/pkg/categorize"
)

// New assembles the API server.
func New(port string, categorizer *categorize.Categorizer, cfg *models.Config, logger *slog.Logger) *http.Server {
	handlers := NewHandlers(categorizer, cfg, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/import", handlers.HandleImport)
	mux.HandleFunc("/api/categorize", handlers.HandleCategorize)
	mux.HandleFunc("/api/export", handlers.HandleExport)

	return &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
}
