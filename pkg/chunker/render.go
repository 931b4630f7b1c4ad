package chunker

import (
	"fmt"
	"html"
	"strings"

	"github.com/dtnitsch/bookmark-organizer/models"
)

const docHeader = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
`

// RenderHTML serializes a chunk as a standalone Netscape bookmark
// document. Open/close structure is reconstructed from node depths, so
// the result parses on its own even when the chunk starts with re-emitted
// folder headers.
func RenderHTML(c Chunk) string {
	var b strings.Builder
	b.WriteString(docHeader)
	b.WriteString("<DL><p>\n")

	depth := 0
	for _, n := range c.Nodes {
		for depth > n.Depth {
			depth--
			writeIndent(&b, depth+1)
			b.WriteString("</DL><p>\n")
		}

		if n.IsBookmark() {
			writeBookmark(&b, depth+1, n.Bookmark)
			continue
		}

		writeIndent(&b, depth+1)
		fmt.Fprintf(&b, "<DT><H3>%s</H3>\n", html.EscapeString(n.Folder))
		writeIndent(&b, depth+1)
		b.WriteString("<DL><p>\n")
		depth = n.Depth + 1
	}
	for depth > 0 {
		depth--
		writeIndent(&b, depth+1)
		b.WriteString("</DL><p>\n")
	}

	b.WriteString("</DL><p>\n")
	return b.String()
}

func writeBookmark(b *strings.Builder, indent int, bm *models.Bookmark) {
	writeIndent(b, indent)
	b.WriteString(`<DT><A HREF="` + html.EscapeString(bm.URL) + `"`)
	if bm.AddDate != "" {
		b.WriteString(` ADD_DATE="` + html.EscapeString(bm.AddDate) + `"`)
	}
	if bm.LastModified != "" {
		b.WriteString(` LAST_MODIFIED="` + html.EscapeString(bm.LastModified) + `"`)
	}
	b.WriteString(">" + html.EscapeString(bm.Title) + "</A>\n")
	if bm.Description != "" {
		writeIndent(b, indent)
		b.WriteString("<DD>" + html.EscapeString(bm.Description) + "\n")
	}
}

func writeIndent(b *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		b.WriteString("    ")
	}
}
