package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dtnitsch/bookmark-organizer/models"
)

const articleHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<title>Understanding Bookmark Files</title>
<meta name="description" content="A practical guide to the Netscape bookmark format.">
</head>
<body>
<article>
<h1>Understanding Bookmark Files</h1>
<p>Every major browser still exports bookmarks in the same HTML format that
Netscape Navigator introduced decades ago. The format survives because it is
simple, self-contained, and every import dialog understands it.</p>
<p>This article walks through the definition list markup, the folder headers,
and the timestamp attributes browsers attach to each entry, with examples
from Chrome, Firefox and Edge exports.</p>
</article>
</body>
</html>`

func TestEnrich_FillsMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	e := New(Options{Workers: 1})
	in := []models.Bookmark{{URL: srv.URL, Title: srv.URL}}

	out := e.Enrich(context.Background(), in)
	if len(out) != 1 {
		t.Fatalf("Enrich() returned %d bookmarks, want 1", len(out))
	}

	bm := out[0]
	if bm.Title != "Understanding Bookmark Files" {
		t.Errorf("title = %q, want the page title", bm.Title)
	}
	if bm.Description == "" {
		t.Error("description not filled from the page")
	}
	if bm.Language != "en" {
		t.Errorf("language = %q, want en", bm.Language)
	}
	// The input slice stays untouched.
	if in[0].Title != srv.URL {
		t.Errorf("input bookmark mutated: %+v", in[0])
	}
}

func TestEnrich_KeepsExistingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	e := New(Options{Workers: 1})
	in := []models.Bookmark{{
		URL: srv.URL, Title: "My Own Title", Description: "my note", Language: "de",
	}}

	bm := e.Enrich(context.Background(), in)[0]
	if bm.Title != "My Own Title" || bm.Description != "my note" || bm.Language != "de" {
		t.Errorf("existing fields overwritten: %+v", bm)
	}
}

func TestEnrich_SkipsUnfetchable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := New(Options{Workers: 2})
	in := []models.Bookmark{
		{URL: "javascript:void(0)", Title: "bookmarklet"},
		{URL: "%%%not-a-url", Title: "broken"},
		{URL: srv.URL + "/gone", Title: "missing page"},
	}

	out := e.Enrich(context.Background(), in)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("bookmark %d changed despite failed enrichment: %+v", i, out[i])
		}
	}
}

func TestEnrich_OrderPreservedAcrossWorkers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	e := New(Options{Workers: 4})
	var in []models.Bookmark
	for i := 0; i < 12; i++ {
		in = append(in, models.Bookmark{URL: fmt.Sprintf("%s/page/%d", srv.URL, i), Title: "fixed"})
	}

	out := e.Enrich(context.Background(), in)
	if len(out) != len(in) {
		t.Fatalf("Enrich() returned %d bookmarks, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].URL != in[i].URL {
			t.Errorf("bookmark %d = %q, want %q (order must survive concurrency)", i, out[i].URL, in[i].URL)
		}
	}
}

func TestEnrich_UsesPageCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	e := New(Options{Workers: 1, CacheDir: t.TempDir()})
	in := []models.Bookmark{{URL: srv.URL}}

	e.Enrich(context.Background(), in)
	e.Enrich(context.Background(), in)

	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1 (second pass served from cache)", n)
	}
}
