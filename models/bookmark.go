// Package models defines the data structures shared across the organizer.
package models

// Bookmark is a single leaf record from a browser export. URL is the only
// required field; Title falls back to the URL when the export has none.
// Bookmarks are treated as immutable once parsed: pipeline stages copy and
// annotate, never mutate in place.
type Bookmark struct {
	URL           string `json:"url" yaml:"url"`
	Title         string `json:"title" yaml:"title"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
	Folder        string `json:"folder,omitempty" yaml:"folder,omitempty"`
	Language      string `json:"language,omitempty" yaml:"language,omitempty"`
	AddDate       string `json:"add_date,omitempty" yaml:"add_date,omitempty"`
	LastModified  string `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`
	SourceBrowser string `json:"source_browser,omitempty" yaml:"source_browser,omitempty"`
}

// Folder is one level of the parsed bookmark tree.
type Folder struct {
	Title      string     `json:"title" yaml:"title"`
	Bookmarks  []Bookmark `json:"bookmarks" yaml:"bookmarks"`
	Subfolders []*Folder  `json:"subfolders,omitempty" yaml:"subfolders,omitempty"`
}

// Node is one entry in the document-order flattening of a bookmark tree.
// A node is either a folder-open marker (Folder set, Bookmark nil) or a
// bookmark leaf. Depth is the nesting level, 0 at the root DL.
type Node struct {
	Depth    int
	Folder   string
	Bookmark *Bookmark
}

// IsBookmark reports whether the node is a bookmark leaf.
func (n Node) IsBookmark() bool {
	return n.Bookmark != nil
}
