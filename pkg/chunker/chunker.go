// Package chunker splits a flattened bookmark tree into bounded-size
// chunks for categorization. Splitting preserves document order and keeps
// every chunk independently well-formed: folder headers still open at a
// boundary are re-emitted at the head of the next chunk rather than
// cutting their children off.
package chunker

import (
	"errors"
	"strings"

	"github.com/dtnitsch/bookmark-organizer/models"
)

// DefaultMaxBookmarks bounds bookmarks per chunk when the caller does not
// choose a limit. Folder markers do not count toward it.
const DefaultMaxBookmarks = 50

// ErrInvalidLimit is returned when the per-chunk bookmark limit is not a
// positive integer.
var ErrInvalidLimit = errors.New("max bookmarks per chunk must be positive")

// Chunk is an ordered, contiguous run of nodes whose bookmark-leaf count
// is bounded by the split limit.
type Chunk struct {
	Nodes []models.Node

	// BookmarkCount is the number of bookmark leaves in Nodes.
	BookmarkCount int
}

// Bookmarks returns the chunk's leaves, annotated with the folder path of
// their enclosing markers.
func (c Chunk) Bookmarks() []models.Bookmark {
	var out []models.Bookmark
	var path []string
	for _, n := range c.Nodes {
		if !n.IsBookmark() {
			path = truncateToDepth(path, n.Depth)
			path = append(path, n.Folder)
			continue
		}
		bm := *n.Bookmark
		if folder := strings.Join(truncateToDepth(path, n.Depth), "/"); folder != "" {
			bm.Folder = folder
		}
		out = append(out, bm)
	}
	return out
}

// Split walks nodes in document order, accumulating them into chunks and
// closing a chunk whenever its bookmark count reaches limit. Folder
// markers never trigger a boundary. Trailing nodes form a final chunk
// only when they contain at least one bookmark; an input with no
// bookmarks at all yields no chunks, since there is nothing to
// categorize.
func Split(nodes []models.Node, limit int) ([]Chunk, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var chunks []Chunk
	var current []models.Node
	var open []models.Node // folder markers currently open, document order
	count := 0

	for _, n := range nodes {
		if !n.IsBookmark() {
			// A marker at depth d closes everything at depth >= d.
			for len(open) > 0 && open[len(open)-1].Depth >= n.Depth {
				open = open[:len(open)-1]
			}
			open = append(open, n)
			current = append(current, n)
			continue
		}

		current = append(current, n)
		count++
		if count >= limit {
			chunks = append(chunks, Chunk{Nodes: current, BookmarkCount: count})
			// Seed the next chunk with the still-open folder headers so
			// it stays well-formed on its own.
			current = append([]models.Node(nil), open...)
			count = 0
		}
	}

	if count > 0 {
		chunks = append(chunks, Chunk{Nodes: current, BookmarkCount: count})
	}
	return chunks, nil
}

func truncateToDepth(path []string, depth int) []string {
	if len(path) > depth {
		return path[:depth]
	}
	return path
}
