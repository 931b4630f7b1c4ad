package models

// StructureFolder is one folder in an optimized bookmark hierarchy.
type StructureFolder struct {
	Name       string            `json:"name"`
	Bookmarks  []Ref             `json:"bookmarks"`
	Subfolders []StructureFolder `json:"subfolders,omitempty"`
}

// Structure is the folder hierarchy produced by structure optimization.
type Structure struct {
	Folders []StructureFolder `json:"folders"`
}
