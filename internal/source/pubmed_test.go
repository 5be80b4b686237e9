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

const pubmedSearchFixture = `<?xml version="1.0"?>
<eSearchResult>
  <Count>2</Count>
  <IdList>
    <Id>36000001</Id>
    <Id>36000002</Id>
  </IdList>
</eSearchResult>`

const pubmedFetchFixture = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>36000001</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><Year>2021</Year></PubDate>
          </JournalIssue>
          <Title>Nature Medicine</Title>
        </Journal>
        <ArticleTitle>Deep Learning for Sepsis Prediction</ArticleTitle>
        <Abstract>
          <AbstractText>Background text.</AbstractText>
          <AbstractText>Results text.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Curie</LastName><ForeName>Marie</ForeName></Author>
          <Author><CollectiveName>The Sepsis Consortium</CollectiveName></Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">36000001</ArticleId>
        <ArticleId IdType="doi">10.1038/S41591-021-0001</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>36000002</PMID>
      <Article>
        <ArticleTitle>  </ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func TestPubmedFetch(t *testing.T) {
	var searchQuery, fetchIDs, apiKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			searchQuery = r.URL.Query().Get("term")
			apiKey = r.URL.Query().Get("api_key")
			w.Write([]byte(pubmedSearchFixture))
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			fetchIDs = r.URL.Query().Get("id")
			w.Write([]byte(pubmedFetchFixture))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	orig := PubmedAPIBase
	PubmedAPIBase = server.URL
	defer func() { PubmedAPIBase = orig }()

	cfg := testSourceConfig()
	cfg.APIKey = "ncbi-key"
	cfg.Email = "research@example.org"
	client := NewPubmed(server.Client(), cfg)

	records, err := client.Fetch(context.Background(), types.SearchQuery{Text: "sepsis prediction"}, 10)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if searchQuery != "sepsis prediction" {
		t.Errorf("esearch term = %q", searchQuery)
	}
	if apiKey != "ncbi-key" {
		t.Errorf("api_key = %q", apiKey)
	}
	if fetchIDs != "36000001,36000002" {
		t.Errorf("efetch id = %q", fetchIDs)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (blank title skipped)", len(records))
	}

	rec := records[0]
	if rec.ID != "pubmed:36000001" {
		t.Errorf("ID = %q", rec.ID)
	}
	if rec.Title != "Deep Learning for Sepsis Prediction" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Abstract != "Background text. Results text." {
		t.Errorf("Abstract = %q", rec.Abstract)
	}
	if rec.Year != 2021 {
		t.Errorf("Year = %d", rec.Year)
	}
	if rec.Venue != "Nature Medicine" {
		t.Errorf("Venue = %q", rec.Venue)
	}
	if rec.DOI != "10.1038/s41591-021-0001" {
		t.Errorf("DOI = %q, want normalized lowercase", rec.DOI)
	}
	if rec.URL != "https://pubmed.ncbi.nlm.nih.gov/36000001/" {
		t.Errorf("URL = %q", rec.URL)
	}
	want := []string{"Marie Curie", "The Sepsis Consortium"}
	if len(rec.Authors) != 2 || rec.Authors[0] != want[0] || rec.Authors[1] != want[1] {
		t.Errorf("Authors = %v, want %v", rec.Authors, want)
	}
}

func TestPubmedNoMatches(t *testing.T) {
	var fetchCalled bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/efetch.fcgi") {
			fetchCalled = true
		}
		w.Write([]byte(`<eSearchResult><Count>0</Count><IdList></IdList></eSearchResult>`))
	}))
	defer server.Close()

	orig := PubmedAPIBase
	PubmedAPIBase = server.URL
	defer func() { PubmedAPIBase = orig }()

	client := NewPubmed(server.Client(), testSourceConfig())
	records, err := client.Fetch(context.Background(), types.SearchQuery{Text: "no hits"}, 10)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
	if fetchCalled {
		t.Error("efetch called despite empty id list")
	}
}

func TestPubmedLanguageFilter(t *testing.T) {
	var term string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		term = r.URL.Query().Get("term")
		w.Write([]byte(`<eSearchResult><IdList></IdList></eSearchResult>`))
	}))
	defer server.Close()

	orig := PubmedAPIBase
	PubmedAPIBase = server.URL
	defer func() { PubmedAPIBase = orig }()

	client := NewPubmed(server.Client(), testSourceConfig())
	_, err := client.Fetch(context.Background(), types.SearchQuery{Text: "sepsis", Language: "english"}, 5)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if term != "sepsis AND english[lang]" {
		t.Errorf("term = %q", term)
	}
}

func TestPubmedDateRange(t *testing.T) {
	var mindate, maxdate, datetype string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mindate, maxdate, datetype = q.Get("mindate"), q.Get("maxdate"), q.Get("datetype")
		w.Write([]byte(`<eSearchResult><IdList></IdList></eSearchResult>`))
	}))
	defer server.Close()

	orig := PubmedAPIBase
	PubmedAPIBase = server.URL
	defer func() { PubmedAPIBase = orig }()

	client := NewPubmed(server.Client(), testSourceConfig())
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2022, 6, 30, 0, 0, 0, 0, time.UTC)
	_, err := client.Fetch(context.Background(), types.SearchQuery{Text: "x", DateFrom: &from, DateTo: &to}, 5)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if datetype != "pdat" || mindate != "2020/01/01" || maxdate != "2022/06/30" {
		t.Errorf("date params = %q %q %q", datetype, mindate, maxdate)
	}
}
