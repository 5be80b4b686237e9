// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/meshintel/litsearch/internal/httputil"
	"github.com/meshintel/litsearch/internal/ratelimit"
	"github.com/meshintel/litsearch/pkg/types"
)

// SemanticScholarAPIBase is the Semantic Scholar Graph API endpoint.
// Overridable in tests.
var SemanticScholarAPIBase = "https://api.semanticscholar.org/graph/v1"

const semanticScholarMaxLimit = 100

// SemanticScholar queries the Semantic Scholar Graph API paper search.
type SemanticScholar struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	cfg     types.SourceConfig
}

// NewSemanticScholar builds a Semantic Scholar client. An API key raises
// the service's rate ceiling but is optional.
func NewSemanticScholar(client *http.Client, cfg types.SourceConfig) *SemanticScholar {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SemanticScholar{
		client:  client,
		limiter: ratelimit.New(types.SourceSemanticScholar, cfg.RateLimit),
		cfg:     cfg,
	}
}

func (s *SemanticScholar) Source() types.Source { return types.SourceSemanticScholar }

// semanticPaper mirrors the fields requested from the Graph API.
type semanticPaper struct {
	PaperID     string `json:"paperId"`
	Title       string `json:"title"`
	Abstract    string `json:"abstract"`
	Year        int    `json:"year"`
	Venue       string `json:"venue"`
	URL         string `json:"url"`
	Citations   int    `json:"citationCount"`
	ExternalIDs struct {
		DOI string `json:"DOI"`
	} `json:"externalIds"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	OpenAccessPDF struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

// Fetch runs a relevance search and normalizes the payload. Entries with
// an empty paperId or title are skipped rather than failing the batch.
func (s *SemanticScholar) Fetch(ctx context.Context, query types.SearchQuery, limit int) ([]types.PaperRecord, error) {
	limit = clampLimit(limit, semanticScholarMaxLimit)

	params := url.Values{}
	params.Set("query", query.Text)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "title,abstract,authors,externalIds,year,citationCount,venue,url,openAccessPdf")
	if yr := semanticYearFilter(query); yr != "" {
		params.Set("year", yr)
	}

	reqURL := fmt.Sprintf("%s/paper/search?%s", SemanticScholarAPIBase, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building semantic scholar request: %w", err)
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("x-api-key", s.cfg.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, httputil.Policy{
		Source:     types.SourceSemanticScholar,
		MaxRetries: s.cfg.MaxRetries,
		Acquire:    s.limiter.Acquire,
		OnThrottle: s.limiter.ReportThrottle,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	s.limiter.ReportSuccess()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ParseError{Source: types.SourceSemanticScholar, Err: err}
	}
	var payload semanticResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &types.ParseError{Source: types.SourceSemanticScholar, Err: err}
	}

	records := make([]types.PaperRecord, 0, len(payload.Data))
	for _, p := range payload.Data {
		if p.PaperID == "" || p.Title == "" {
			continue
		}
		authors := make([]string, 0, len(p.Authors))
		for _, a := range p.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}
		records = append(records, types.PaperRecord{
			ID:             recordID(types.SourceSemanticScholar, p.PaperID),
			Title:          cleanText(p.Title),
			Abstract:       cleanText(p.Abstract),
			Authors:        authors,
			Year:           p.Year,
			Venue:          p.Venue,
			DOI:            types.NormalizeDOI(p.ExternalIDs.DOI),
			URL:            p.URL,
			PDFURL:         p.OpenAccessPDF.URL,
			CitationCount:  p.Citations,
			SourceDatabase: types.SourceSemanticScholar,
			Provenance:     []types.Source{types.SourceSemanticScholar},
		})
	}
	return records, nil
}

// semanticYearFilter renders the date range as the API's "year" parameter:
// "2019-2023", "2019-", or "-2023".
func semanticYearFilter(q types.SearchQuery) string {
	from, to := "", ""
	if q.DateFrom != nil {
		from = strconv.Itoa(q.DateFrom.Year())
	}
	if q.DateTo != nil {
		to = strconv.Itoa(q.DateTo.Year())
	}
	if from == "" && to == "" {
		return ""
	}
	return from + "-" + to
}
