package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dtnitsch/bookmark-organizer/models"
	"github.com/dtnitsch/bookmark-organizer/pkg/llm"
)

// scriptedGenerator replays canned replies in call order. Calls past the
// end of the script repeat the last entry.
type scriptedGenerator struct {
	replies []scriptedReply
	calls   int
	prompts []string
}

type scriptedReply struct {
	text string
	err  error
}

func (s *scriptedGenerator) Generate(_ context.Context, _ string, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	i := s.calls
	s.calls++
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	r := s.replies[i]
	return r.text, r.err
}

func testNodes(n int) []models.Node {
	nodes := make([]models.Node, n)
	for i := 0; i < n; i++ {
		bm := models.Bookmark{
			URL:   fmt.Sprintf("https://example.com/%d", i),
			Title: fmt.Sprintf("Page %d", i),
		}
		nodes[i] = models.Node{Bookmark: &bm}
	}
	return nodes
}

func TestCategorize_EmptyInputDispatchesNothing(t *testing.T) {
	gen := &scriptedGenerator{}
	c := New(gen, Options{})

	cm, err := c.Categorize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if cm == nil || cm.Len() != 0 {
		t.Errorf("Categorize() = %v, want empty map", cm)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times for empty input, want 0", gen.calls)
	}
}

func TestCategorize_MergesAcrossChunks(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{
		{text: `{"Dev": [{"title": "Page 0", "url": "https://example.com/0"}, {"title": "Page 1", "url": "https://example.com/1"}]}`},
		{text: `{"Dev": [{"title": "Page 2", "url": "https://example.com/2"}], "News": [{"title": "Page 3", "url": "https://example.com/3"}]}`},
	}}
	c := New(gen, Options{ChunkSize: 2})

	cm, err := c.Categorize(context.Background(), testNodes(4))
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}

	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2", gen.calls)
	}
	names := cm.Names()
	if len(names) != 2 || names[0] != "Dev" || names[1] != "News" {
		t.Fatalf("categories = %v, want [Dev News]", names)
	}

	dev := cm.Items("Dev")
	if len(dev) != 3 {
		t.Fatalf("Dev has %d refs, want 3", len(dev))
	}
	// Refs from the first chunk come before refs from the second.
	for i, wantURL := range []string{"https://example.com/0", "https://example.com/1", "https://example.com/2"} {
		if dev[i].URL != wantURL {
			t.Errorf("Dev ref %d = %q, want %q", i, dev[i].URL, wantURL)
		}
	}
	if cm.Total() != 4 {
		t.Errorf("total refs = %d, want 4", cm.Total())
	}
}

func TestCategorize_TotalFailure(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{
		{err: &llm.ServiceError{Message: "connection refused"}},
	}}
	c := New(gen, Options{ChunkSize: 2, Retries: 3})

	_, err := c.Categorize(context.Background(), testNodes(4))
	var aggErr *AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("Categorize() error = %v, want *AggregateError", err)
	}
	if len(aggErr.FailedChunks) != 2 || aggErr.FailedChunks[0] != 0 || aggErr.FailedChunks[1] != 1 {
		t.Errorf("FailedChunks = %v, want [0 1]", aggErr.FailedChunks)
	}
	// 2 chunks x 3 retries each, every one dispatched.
	if gen.calls != 6 {
		t.Errorf("generator called %d times, want 6", gen.calls)
	}
}

func TestCategorize_PartialFailureDropsChunk(t *testing.T) {
	fail := scriptedReply{err: &llm.ServiceError{Message: "boom"}}
	gen := &scriptedGenerator{replies: []scriptedReply{
		fail, fail, fail, // chunk 0 exhausts its retries
		{text: `{"News": [{"title": "Page 2", "url": "https://example.com/2"}, {"title": "Page 3", "url": "https://example.com/3"}]}`},
	}}
	c := New(gen, Options{ChunkSize: 2, Retries: 3})

	cm, err := c.Categorize(context.Background(), testNodes(4))
	if err != nil {
		t.Fatalf("Categorize() error = %v, partial success should not error", err)
	}
	if cm.Len() != 1 || cm.Total() != 2 {
		t.Errorf("got %d categories with %d refs, want 1 and 2", cm.Len(), cm.Total())
	}
	if len(cm.Items("News")) != 2 {
		t.Errorf("News refs = %+v", cm.Items("News"))
	}
}

func TestCategorize_RetriesInvalidResponse(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{
		{text: "I'd be happy to categorize those for you!"},
		{text: "```json\n{\"Dev\": [{\"title\": \"Page 0\", \"url\": \"https://example.com/0\"}]}\n```"},
	}}
	c := New(gen, Options{})

	cm, err := c.Categorize(context.Background(), testNodes(1))
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want 2 (one retry after invalid reply)", gen.calls)
	}
	if cm.Total() != 1 {
		t.Errorf("total refs = %d, want 1", cm.Total())
	}
}

func TestCategorize_EmptyObjectRetriedThenFails(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{{text: "{}"}}}
	c := New(gen, Options{Retries: 3})

	_, err := c.Categorize(context.Background(), testNodes(1))
	var aggErr *AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("Categorize() error = %v, want *AggregateError", err)
	}
	// An empty-but-valid object burns an attempt rather than silently
	// dropping the chunk's bookmarks.
	if gen.calls != 3 {
		t.Errorf("generator called %d times, want 3", gen.calls)
	}
}

func TestCategorize_ParallelMatchesSequentialOrder(t *testing.T) {
	gen := &orderedGenerator{}
	sequential := New(gen, Options{ChunkSize: 1})
	seqCM, err := sequential.Categorize(context.Background(), testNodes(5))
	if err != nil {
		t.Fatalf("sequential Categorize() error = %v", err)
	}

	gen2 := &orderedGenerator{}
	parallel := New(gen2, Options{ChunkSize: 1, Workers: 4})
	parCM, err := parallel.Categorize(context.Background(), testNodes(5))
	if err != nil {
		t.Fatalf("parallel Categorize() error = %v", err)
	}

	seqJSON, _ := seqCM.MarshalJSON()
	parJSON, _ := parCM.MarshalJSON()
	if string(seqJSON) != string(parJSON) {
		t.Errorf("parallel result differs from sequential:\nseq: %s\npar: %s", seqJSON, parJSON)
	}
}

// orderedGenerator answers from the prompt contents, so replies stay
// correct no matter which worker handles which chunk.
type orderedGenerator struct{}

func (orderedGenerator) Generate(_ context.Context, _ string, prompt string) (string, error) {
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://example.com/%d", i)
		if strings.Contains(prompt, `"`+url+`"`) {
			return fmt.Sprintf(`{"Cat %d": [{"title": "Page %d", "url": %q}]}`, i, i, url), nil
		}
	}
	return "", &llm.ServiceError{Message: "unknown prompt"}
}

func TestCategorize_PromptCarriesBookmarks(t *testing.T) {
	gen := &scriptedGenerator{replies: []scriptedReply{
		{text: `{"Dev": [{"title": "Page 0", "url": "https://example.com/0"}]}`},
	}}
	c := New(gen, Options{})

	nodes := []models.Node{
		{Depth: 0, Folder: "Tools"},
		{Depth: 1, Bookmark: &models.Bookmark{URL: "https://example.com/0", Title: "Page 0"}},
	}
	if _, err := c.Categorize(context.Background(), nodes); err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("got %d prompts, want 1", len(gen.prompts))
	}
	p := gen.prompts[0]
	for _, want := range []string{`"https://example.com/0"`, `"Page 0"`, `"Tools"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %s:\n%s", want, p)
		}
	}
}
