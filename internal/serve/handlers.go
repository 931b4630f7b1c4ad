package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dtnitsch/bookmark-organizer/models"
	"github.com/dtnitsch/bookmark-organizer/pkg/categorize"
	"github.com/dtnitsch/bookmark-organizer/pkg/export"
	"github.com/dtnitsch/bookmark-organizer/pkg/parser"
)

// response is the JSON envelope every endpoint answers with.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type Handlers struct {
	categorizer *categorize.Categorizer
	cfg         *models.Config
	logger      *slog.Logger
}

func NewHandlers(categorizer *categorize.Categorizer, cfg *models.Config, logger *slog.Logger) *Handlers {
	return &Handlers{categorizer: categorizer, cfg: cfg, logger: logger}
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type importRequest struct {
	Content string `json:"content"`
	Browser string `json:"browser"`
}

// HandleImport parses a bookmark export and returns the extracted leaves.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: "invalid request body"})
		return
	}

	root, err := parser.Parse(req.Content)
	if err != nil {
		h.logger.Error("import parse failed", "error", err)
		writeJSON(w, http.StatusBadRequest, response{Message: err.Error()})
		return
	}

	bookmarks := parser.Bookmarks(root)
	for i := range bookmarks {
		bookmarks[i].SourceBrowser = req.Browser
	}
	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "bookmarks imported",
		Data:    map[string]any{"bookmarks": bookmarks, "count": len(bookmarks)},
	})
}

type categorizeRequest struct {
	Bookmarks []models.Bookmark `json:"bookmarks"`
}

// HandleCategorize runs the chunked pipeline over a flat bookmark list.
func (h *Handlers) HandleCategorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
		return
	}

	var req categorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: "invalid request body"})
		return
	}
	if len(req.Bookmarks) == 0 {
		writeJSON(w, http.StatusBadRequest, response{Message: "no bookmarks provided"})
		return
	}

	nodes := make([]models.Node, len(req.Bookmarks))
	for i := range req.Bookmarks {
		nodes[i] = models.Node{Bookmark: &req.Bookmarks[i]}
	}

	cm, err := h.categorizer.Categorize(r.Context(), nodes)
	if err != nil {
		h.logger.Error("categorization failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, response{Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, response{
		Success: true,
		Message: "bookmarks categorized",
		Data: map[string]any{
			"categories":  cm,
			"submitted":   len(req.Bookmarks),
			"categorized": cm.Total(),
		},
	})
}

type exportRequest struct {
	Categories json.RawMessage   `json:"categories"`
	Bookmarks  []models.Bookmark `json:"bookmarks"`
}

// HandleExport renders categories back into an importable bookmark file.
// The categories payload goes through the same structural validation as a
// model reply.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{Message: "method not allowed"})
		return
	}

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: "invalid request body"})
		return
	}

	cm, err := categorize.ParseResponse(string(req.Categories))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Message: err.Error()})
		return
	}
	if cm.Len() == 0 {
		writeJSON(w, http.StatusBadRequest, response{Message: "no categories provided"})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="bookmarks.html"`)
	if err := export.Write(w, cm, req.Bookmarks); err != nil {
		h.logger.Error("export write failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
