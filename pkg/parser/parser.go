// Package parser reads Netscape-format bookmark exports (Chrome, Edge,
// Opera, Firefox all emit the same DL/DT markup) into folder trees and
// flat node sequences.
package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dtnitsch/bookmark-organizer/models"
)

// Parse reads bookmark HTML into a folder tree. The root folder collects
// everything under the file's top-level DL.
func Parse(content string) (*models.Folder, error) {
	rootDL, err := findRootDL(content)
	if err != nil {
		return nil, err
	}

	root := &models.Folder{Title: "Bookmarks"}
	parseDL(rootDL, root, nil)
	return root, nil
}

// Flatten reads bookmark HTML into a document-order node sequence: one
// folder-open marker per H3 header, one leaf per A entry, depth tracking
// the DL nesting. This is the chunker's input shape.
func Flatten(content string) ([]models.Node, error) {
	rootDL, err := findRootDL(content)
	if err != nil {
		return nil, err
	}
	return flattenDL(rootDL, 0, nil), nil
}

// Bookmarks walks a folder tree pre-order and returns all leaves.
func Bookmarks(folder *models.Folder) []models.Bookmark {
	if folder == nil {
		return nil
	}
	out := append([]models.Bookmark(nil), folder.Bookmarks...)
	for _, sub := range folder.Subfolders {
		out = append(out, Bookmarks(sub)...)
	}
	return out
}

func findRootDL(content string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	rootDL := doc.Find("dl").First()
	if rootDL.Length() == 0 {
		return nil, fmt.Errorf("not a valid bookmark file: missing root DL element")
	}
	return rootDL, nil
}

// parseDL walks the direct DT children of a DL. The HTML5 parser keeps a
// folder's nested DL inside its DT, so each DT is either an A leaf or an
// H3 header with its children alongside.
func parseDL(dl *goquery.Selection, folder *models.Folder, path []string) {
	dl.ChildrenFiltered("dt").Each(func(_ int, dt *goquery.Selection) {
		if bm, ok := bookmarkFromDT(dt, path); ok {
			folder.Bookmarks = append(folder.Bookmarks, bm)
			return
		}

		h3 := dt.ChildrenFiltered("h3").First()
		if h3.Length() == 0 {
			return
		}
		sub := &models.Folder{Title: strings.TrimSpace(h3.Text())}
		if childDL := dt.ChildrenFiltered("dl").First(); childDL.Length() > 0 {
			parseDL(childDL, sub, append(path, sub.Title))
		}
		folder.Subfolders = append(folder.Subfolders, sub)
	})
}

func flattenDL(dl *goquery.Selection, depth int, path []string) []models.Node {
	var nodes []models.Node
	dl.ChildrenFiltered("dt").Each(func(_ int, dt *goquery.Selection) {
		if bm, ok := bookmarkFromDT(dt, path); ok {
			nodes = append(nodes, models.Node{Depth: depth, Bookmark: &bm})
			return
		}

		h3 := dt.ChildrenFiltered("h3").First()
		if h3.Length() == 0 {
			return
		}
		title := strings.TrimSpace(h3.Text())
		nodes = append(nodes, models.Node{Depth: depth, Folder: title})
		if childDL := dt.ChildrenFiltered("dl").First(); childDL.Length() > 0 {
			nodes = append(nodes, flattenDL(childDL, depth+1, append(path, title))...)
		}
	})
	return nodes
}

func bookmarkFromDT(dt *goquery.Selection, path []string) (models.Bookmark, bool) {
	a := dt.ChildrenFiltered("a").First()
	if a.Length() == 0 {
		return models.Bookmark{}, false
	}
	href, ok := a.Attr("href")
	if !ok || href == "" {
		return models.Bookmark{}, false
	}

	title := strings.TrimSpace(a.Text())
	if title == "" {
		title = href
	}

	bm := models.Bookmark{
		URL:    href,
		Title:  title,
		Folder: strings.Join(path, "/"),
	}
	if v, ok := a.Attr("add_date"); ok {
		bm.AddDate = v
	}
	if v, ok := a.Attr("last_modified"); ok {
		bm.LastModified = v
	}
	// A DD immediately after the DT holds the bookmark's description line.
	if dd := dt.NextFiltered("dd"); dd.Length() > 0 {
		bm.Description = strings.TrimSpace(dd.Text())
	}
	return bm, true
}
