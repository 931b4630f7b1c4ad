// Package structure asks the model for a folder hierarchy over an already
// categorized set of bookmarks. It is strictly best-effort: any dispatch
// or parse failure falls back to a flat one-folder-per-category layout.
package structure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dtnitsch/bookmark-organizer/models"
	"github.com/dtnitsch/bookmark-organizer/pkg/llm"
)

const systemPrompt = `You are a bookmark structure optimization agent. Analyze categorized
bookmarks and build an intuitive folder hierarchy: group related categories,
use subfolders where it helps, keep the tree balanced and not too deep.

Respond with one JSON object in this exact format:
{"folders": [{"name": "Folder Name", "bookmarks": [{"title": "...", "url": "..."}], "subfolders": []}]}

Only output JSON.`

// Optimize builds a folder hierarchy for the categorized bookmarks. The
// returned structure always covers every input ref: on failure it is the
// flat fallback, never nil alongside a nil error.
func Optimize(ctx context.Context, gen llm.Generator, cm *models.CategoryMap, logger *slog.Logger) *models.Structure {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cm == nil || cm.Len() == 0 {
		return &models.Structure{Folders: []models.StructureFolder{}}
	}

	raw, err := gen.Generate(ctx, systemPrompt, renderPrompt(cm))
	if err != nil {
		logger.Warn("structure optimization dispatch failed, using flat layout", "error", err)
		return Flat(cm)
	}

	st, err := parseStructure(raw)
	if err != nil {
		logger.Warn("structure optimization response invalid, using flat layout", "error", err)
		return Flat(cm)
	}
	return st
}

// Flat returns the fallback layout: one folder per category.
func Flat(cm *models.CategoryMap) *models.Structure {
	st := &models.Structure{Folders: make([]models.StructureFolder, 0, cm.Len())}
	for _, name := range cm.Names() {
		st.Folders = append(st.Folders, models.StructureFolder{
			Name:      name,
			Bookmarks: cm.Items(name),
		})
	}
	return st
}

func renderPrompt(cm *models.CategoryMap) string {
	var b strings.Builder
	b.WriteString("Organize these categorized bookmarks into a logical folder structure:\n\n")
	for _, name := range cm.Names() {
		fmt.Fprintf(&b, "Category: %s\n", name)
		for _, ref := range cm.Items(name) {
			fmt.Fprintf(&b, "- %s (%s)\n", ref.Title, ref.URL)
		}
		b.WriteByte('\n')
	}
	b.WriteString("Respond with ONLY the JSON object described in the system prompt.")
	return b.String()
}

func parseStructure(raw string) (*models.Structure, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var st models.Structure
	if err := json.Unmarshal([]byte(text), &st); err != nil {
		return nil, fmt.Errorf("parse structure response: %w", err)
	}
	if st.Folders == nil {
		return nil, fmt.Errorf("structure response missing folders")
	}
	return &st, nil
}
