package chunker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dtnitsch/bookmark-organizer/models"
)

func bookmarkNode(depth int, url string) models.Node {
	bm := models.Bookmark{URL: url, Title: url}
	return models.Node{Depth: depth, Bookmark: &bm}
}

func folderNode(depth int, title string) models.Node {
	return models.Node{Depth: depth, Folder: title}
}

func flatBookmarks(n int) []models.Node {
	nodes := make([]models.Node, n)
	for i := 0; i < n; i++ {
		nodes[i] = bookmarkNode(0, fmt.Sprintf("https://example.com/%d", i))
	}
	return nodes
}

func TestSplit_ChunkCount(t *testing.T) {
	tests := []struct {
		name       string
		bookmarks  int
		limit      int
		wantChunks int
	}{
		{name: "exact multiple", bookmarks: 100, limit: 50, wantChunks: 2},
		{name: "remainder forms final chunk", bookmarks: 101, limit: 50, wantChunks: 3},
		{name: "under limit", bookmarks: 7, limit: 50, wantChunks: 1},
		{name: "limit of one", bookmarks: 4, limit: 1, wantChunks: 4},
		{name: "single bookmark", bookmarks: 1, limit: 50, wantChunks: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(flatBookmarks(tt.bookmarks), tt.limit)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(chunks) != tt.wantChunks {
				t.Errorf("Split() produced %d chunks, want %d", len(chunks), tt.wantChunks)
			}

			total := 0
			for _, c := range chunks {
				if c.BookmarkCount > tt.limit {
					t.Errorf("chunk has %d bookmarks, limit is %d", c.BookmarkCount, tt.limit)
				}
				total += c.BookmarkCount
			}
			if total != tt.bookmarks {
				t.Errorf("chunks hold %d bookmarks in total, want %d", total, tt.bookmarks)
			}
		})
	}
}

func TestSplit_OrderPreserved(t *testing.T) {
	nodes := flatBookmarks(10)
	chunks, err := Split(nodes, 3)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	var got []string
	for _, c := range chunks {
		for _, bm := range c.Bookmarks() {
			got = append(got, bm.URL)
		}
	}
	if len(got) != 10 {
		t.Fatalf("got %d bookmarks across chunks, want 10", len(got))
	}
	for i, url := range got {
		want := fmt.Sprintf("https://example.com/%d", i)
		if url != want {
			t.Errorf("bookmark %d = %q, want %q", i, url, want)
		}
	}
}

func TestSplit_InvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -1, -50} {
		if _, err := Split(flatBookmarks(3), limit); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("Split(limit=%d) error = %v, want ErrInvalidLimit", limit, err)
		}
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	chunks, err := Split(nil, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Split() produced %d chunks for empty input, want 0", len(chunks))
	}
}

func TestSplit_MarkersOnly(t *testing.T) {
	nodes := []models.Node{
		folderNode(0, "Empty"),
		folderNode(1, "Also Empty"),
	}
	chunks, err := Split(nodes, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("Split() produced %d chunks for markers-only input, want 0", len(chunks))
	}
}

func TestSplit_FolderHeaderReemittedAtBoundary(t *testing.T) {
	nodes := []models.Node{
		folderNode(0, "Tools"),
		bookmarkNode(1, "https://a.example"),
		bookmarkNode(1, "https://b.example"),
		bookmarkNode(1, "https://c.example"),
	}
	chunks, err := Split(nodes, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Split() produced %d chunks, want 2", len(chunks))
	}

	second := chunks[1]
	if second.BookmarkCount != 1 {
		t.Errorf("second chunk has %d bookmarks, want 1", second.BookmarkCount)
	}
	if len(second.Nodes) == 0 || second.Nodes[0].IsBookmark() || second.Nodes[0].Folder != "Tools" {
		t.Errorf("second chunk should start with a re-emitted %q header, got %+v", "Tools", second.Nodes[0])
	}
}

func TestSplit_NestedHeadersReemittedInOrder(t *testing.T) {
	nodes := []models.Node{
		folderNode(0, "Dev"),
		folderNode(1, "Go"),
		bookmarkNode(2, "https://a.example"),
		bookmarkNode(2, "https://b.example"),
		bookmarkNode(2, "https://c.example"),
	}
	chunks, err := Split(nodes, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Split() produced %d chunks, want 2", len(chunks))
	}

	second := chunks[1]
	if len(second.Nodes) != 3 {
		t.Fatalf("second chunk has %d nodes, want 3 (two headers + one bookmark)", len(second.Nodes))
	}
	if second.Nodes[0].Folder != "Dev" || second.Nodes[0].Depth != 0 {
		t.Errorf("first re-emitted header = %+v, want Dev at depth 0", second.Nodes[0])
	}
	if second.Nodes[1].Folder != "Go" || second.Nodes[1].Depth != 1 {
		t.Errorf("second re-emitted header = %+v, want Go at depth 1", second.Nodes[1])
	}
}

func TestSplit_ClosedFolderNotReemitted(t *testing.T) {
	nodes := []models.Node{
		folderNode(0, "Old"),
		bookmarkNode(1, "https://a.example"),
		folderNode(0, "New"),
		bookmarkNode(1, "https://b.example"),
		bookmarkNode(1, "https://c.example"),
	}
	chunks, err := Split(nodes, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Split() produced %d chunks, want 2", len(chunks))
	}

	second := chunks[1]
	for _, n := range second.Nodes {
		if n.Folder == "Old" {
			t.Errorf("closed folder %q re-emitted into second chunk", "Old")
		}
	}
	if second.Nodes[0].Folder != "New" {
		t.Errorf("second chunk starts with %+v, want the still-open %q header", second.Nodes[0], "New")
	}
}

func TestChunk_BookmarksCarryFolderPath(t *testing.T) {
	nodes := []models.Node{
		folderNode(0, "Dev"),
		folderNode(1, "Go"),
		bookmarkNode(2, "https://a.example"),
		folderNode(1, "Rust"),
		bookmarkNode(2, "https://b.example"),
		bookmarkNode(0, "https://root.example"),
	}
	chunks, err := Split(nodes, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Split() produced %d chunks, want 1", len(chunks))
	}

	bookmarks := chunks[0].Bookmarks()
	wantFolders := []string{"Dev/Go", "Dev/Rust", ""}
	if len(bookmarks) != len(wantFolders) {
		t.Fatalf("got %d bookmarks, want %d", len(bookmarks), len(wantFolders))
	}
	for i, want := range wantFolders {
		if bookmarks[i].Folder != want {
			t.Errorf("bookmark %d folder = %q, want %q", i, bookmarks[i].Folder, want)
		}
	}
}
