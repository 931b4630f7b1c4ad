// Package export serializes categorized bookmarks back into the Netscape
// bookmark format browsers re-import: one top-level folder per category,
// one leaf per bookmark, descriptions as trailing DD lines.
package export

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/dtnitsch/bookmark-organizer/models"
)

const fileHeader = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks Menu</H1>
`

// Write emits the category map as a flat two-level bookmark file.
// Categories appear in map order. Source bookmarks, keyed by URL, supply
// the timestamps and descriptions the category refs do not carry.
func Write(w io.Writer, cm *models.CategoryMap, source []models.Bookmark) error {
	byURL := indexByURL(source)

	var b strings.Builder
	b.WriteString(fileHeader)
	b.WriteString("<DL><p>\n")
	for _, name := range cm.Names() {
		fmt.Fprintf(&b, "    <DT><H3>%s</H3>\n", html.EscapeString(name))
		b.WriteString("    <DL><p>\n")
		for _, ref := range cm.Items(name) {
			writeRef(&b, 2, ref, byURL)
		}
		b.WriteString("    </DL><p>\n")
	}
	b.WriteString("</DL><p>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteStructure emits an optimized folder hierarchy as nested folders.
func WriteStructure(w io.Writer, st *models.Structure, source []models.Bookmark) error {
	byURL := indexByURL(source)

	var b strings.Builder
	b.WriteString(fileHeader)
	b.WriteString("<DL><p>\n")
	for _, folder := range st.Folders {
		writeFolder(&b, 1, folder, byURL)
	}
	b.WriteString("</DL><p>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeFolder(b *strings.Builder, indent int, folder models.StructureFolder, byURL map[string]models.Bookmark) {
	writeIndent(b, indent)
	fmt.Fprintf(b, "<DT><H3>%s</H3>\n", html.EscapeString(folder.Name))
	writeIndent(b, indent)
	b.WriteString("<DL><p>\n")
	for _, ref := range folder.Bookmarks {
		writeRef(b, indent+1, ref, byURL)
	}
	for _, sub := range folder.Subfolders {
		writeFolder(b, indent+1, sub, byURL)
	}
	writeIndent(b, indent)
	b.WriteString("</DL><p>\n")
}

func writeRef(b *strings.Builder, indent int, ref models.Ref, byURL map[string]models.Bookmark) {
	src := byURL[ref.URL]
	title := ref.Title
	if title == "" {
		title = ref.URL
	}

	writeIndent(b, indent)
	b.WriteString(`<DT><A HREF="` + html.EscapeString(ref.URL) + `"`)
	if src.AddDate != "" {
		b.WriteString(` ADD_DATE="` + html.EscapeString(src.AddDate) + `"`)
	}
	if src.LastModified != "" {
		b.WriteString(` LAST_MODIFIED="` + html.EscapeString(src.LastModified) + `"`)
	}
	b.WriteString(">" + html.EscapeString(title) + "</A>\n")
	if src.Description != "" {
		writeIndent(b, indent)
		b.WriteString("<DD>" + html.EscapeString(src.Description) + "\n")
	}
}

func writeIndent(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteString("    ")
	}
}

func indexByURL(bookmarks []models.Bookmark) map[string]models.Bookmark {
	byURL := make(map[string]models.Bookmark, len(bookmarks))
	for _, bm := range bookmarks {
		if _, ok := byURL[bm.URL]; !ok {
			byURL[bm.URL] = bm
		}
	}
	return byURL
}
