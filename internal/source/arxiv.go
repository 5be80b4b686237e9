// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meshintel/litsearch/internal/httputil"
	"github.com/meshintel/litsearch/internal/ratelimit"
	"github.com/meshintel/litsearch/pkg/types"
)

// ArxivAPIBase is the arXiv export API endpoint. Overridable in tests.
var ArxivAPIBase = "http://export.arxiv.org/api/query"

const arxivMaxLimit = 100

// Arxiv queries the arXiv Atom feed API.
type Arxiv struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	cfg     types.SourceConfig
}

// NewArxiv builds an arXiv client. The service asks for no more than one
// request every three seconds, which the default rate limit reflects.
func NewArxiv(client *http.Client, cfg types.SourceConfig) *Arxiv {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Arxiv{
		client:  client,
		limiter: ratelimit.New(types.SourceArxiv, cfg.RateLimit),
		cfg:     cfg,
	}
}

func (a *Arxiv) Source() types.Source { return types.SourceArxiv }

// Atom feed payload. arXiv extends Atom with its own namespace for DOI
// and primary category.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	DOI       string `xml:"doi"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
}

// Fetch runs a relevance-sorted query against the export API. Entries
// without a resolvable arXiv identifier are skipped.
func (a *Arxiv) Fetch(ctx context.Context, query types.SearchQuery, limit int) ([]types.PaperRecord, error) {
	limit = clampLimit(limit, arxivMaxLimit)

	params := url.Values{}
	params.Set("search_query", arxivQuery(query))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	reqURL := fmt.Sprintf("%s?%s", ArxivAPIBase, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building arxiv request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, a.client, req, httputil.Policy{
		Source:     types.SourceArxiv,
		MaxRetries: a.cfg.MaxRetries,
		Acquire:    a.limiter.Acquire,
		OnThrottle: a.limiter.ReportThrottle,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	a.limiter.ReportSuccess()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ParseError{Source: types.SourceArxiv, Err: err}
	}
	var feed arxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, &types.ParseError{Source: types.SourceArxiv, Err: err}
	}

	records := make([]types.PaperRecord, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		nativeID := arxivID(e.ID)
		if nativeID == "" || strings.TrimSpace(e.Title) == "" {
			continue
		}
		authors := make([]string, 0, len(e.Authors))
		for _, au := range e.Authors {
			if au.Name != "" {
				authors = append(authors, au.Name)
			}
		}
		year := 0
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			year = t.Year()
		}
		pdfURL := ""
		for _, l := range e.Links {
			if l.Title == "pdf" {
				pdfURL = l.Href
				break
			}
		}
		records = append(records, types.PaperRecord{
			ID:             recordID(types.SourceArxiv, nativeID),
			Title:          cleanText(e.Title),
			Abstract:       cleanText(e.Summary),
			Authors:        authors,
			Year:           year,
			Venue:          e.PrimaryCategory.Term,
			DOI:            types.NormalizeDOI(e.DOI),
			URL:            e.ID,
			PDFURL:         pdfURL,
			SourceDatabase: types.SourceArxiv,
			Provenance:     []types.Source{types.SourceArxiv},
		})
	}
	return records, nil
}

// arxivQuery renders the generic query in the export API's fielded syntax,
// appending a submittedDate range when the query carries one.
func arxivQuery(q types.SearchQuery) string {
	expr := fmt.Sprintf("all:%q", q.Text)
	if q.DateFrom == nil && q.DateTo == nil {
		return expr
	}
	from := "000001010000"
	to := "999912312359"
	if q.DateFrom != nil {
		from = q.DateFrom.Format("200601021504")
	}
	if q.DateTo != nil {
		to = q.DateTo.Format("200601021504")
	}
	return fmt.Sprintf("%s AND submittedDate:[%s TO %s]", expr, from, to)
}

// arxivID extracts the native identifier from an entry's id URL, dropping
// the version suffix so re-fetches of revised papers key the same record.
func arxivID(idURL string) string {
	i := strings.LastIndex(idURL, "/abs/")
	if i < 0 {
		return ""
	}
	id := idURL[i+len("/abs/"):]
	if j := strings.LastIndex(id, "v"); j > 0 {
		if _, err := strconv.Atoi(id[j+1:]); err == nil {
			id = id[:j]
		}
	}
	return id
}
