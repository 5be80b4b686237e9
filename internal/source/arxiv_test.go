// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meshintel/litsearch/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <entry>
    <id>http://arxiv.org/abs/2301.04567v2</id>
    <title>Neural Retrieval
      at Scale</title>
    <summary>A study of retrieval.</summary>
    <published>2023-01-11T18:30:00Z</published>
    <author><name>Grace Hopper</name></author>
    <author><name>Claude Shannon</name></author>
    <arxiv:doi>10.48550/arXiv.2301.04567</arxiv:doi>
    <link href="http://arxiv.org/abs/2301.04567v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.04567v2" rel="related" type="application/pdf"/>
    <arxiv:primary_category term="cs.IR"/>
  </entry>
  <entry>
    <id>http://arxiv.org/malformed</id>
    <title>No abs segment, skipped</title>
  </entry>
</feed>`

func TestArxivFetch(t *testing.T) {
	var gotSearch string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search_query")
		w.Write([]byte(arxivFixture))
	}))
	defer server.Close()

	orig := ArxivAPIBase
	ArxivAPIBase = server.URL
	defer func() { ArxivAPIBase = orig }()

	client := NewArxiv(server.Client(), testSourceConfig())
	records, err := client.Fetch(context.Background(), types.SearchQuery{Text: "neural retrieval"}, 10)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if gotSearch != `all:"neural retrieval"` {
		t.Errorf("search_query = %q", gotSearch)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (malformed id skipped)", len(records))
	}

	rec := records[0]
	if rec.ID != "arxiv:2301.04567" {
		t.Errorf("ID = %q, want version suffix stripped", rec.ID)
	}
	if rec.Title != "Neural Retrieval at Scale" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Year != 2023 {
		t.Errorf("Year = %d", rec.Year)
	}
	if rec.Venue != "cs.IR" {
		t.Errorf("Venue = %q", rec.Venue)
	}
	if rec.DOI != "10.48550/arxiv.2301.04567" {
		t.Errorf("DOI = %q", rec.DOI)
	}
	if rec.PDFURL != "http://arxiv.org/pdf/2301.04567v2" {
		t.Errorf("PDFURL = %q", rec.PDFURL)
	}
	if len(rec.Authors) != 2 || rec.Authors[1] != "Claude Shannon" {
		t.Errorf("Authors = %v", rec.Authors)
	}
}

func TestArxivDateFilter(t *testing.T) {
	var gotSearch string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search_query")
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	defer server.Close()

	orig := ArxivAPIBase
	ArxivAPIBase = server.URL
	defer func() { ArxivAPIBase = orig }()

	client := NewArxiv(server.Client(), testSourceConfig())
	from := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.Fetch(context.Background(), types.SearchQuery{Text: "x", DateFrom: &from}, 5)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !strings.Contains(gotSearch, "submittedDate:[202006010000 TO 999912312359]") {
		t.Errorf("search_query = %q, missing submittedDate range", gotSearch)
	}
}

func TestArxivIDExtraction(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"http://arxiv.org/abs/2301.04567v2", "2301.04567"},
		{"http://arxiv.org/abs/2301.04567", "2301.04567"},
		{"http://arxiv.org/abs/hep-th/9901001v1", "hep-th/9901001"},
		{"http://arxiv.org/nothing", ""},
	}
	for _, c := range cases {
		if got := arxivID(c.in); got != c.want {
			t.Errorf("arxivID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
