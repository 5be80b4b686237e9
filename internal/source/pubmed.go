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

// PubmedAPIBase is the NCBI E-utilities endpoint. Overridable in tests.
var PubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	pubmedMaxLimit = 100
	pubmedTool     = "litsearch"
)

// Pubmed queries PubMed through the NCBI E-utilities. Retrieval is a
// two-step flow: esearch resolves the query to PMIDs, efetch hydrates
// them into article metadata. Both steps count against the rate limit.
type Pubmed struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	cfg     types.SourceConfig
}

// NewPubmed builds a PubMed client. NCBI allows 3 requests per second
// without an API key and 10 with one; the email identifies the caller
// per their usage policy.
func NewPubmed(client *http.Client, cfg types.SourceConfig) *Pubmed {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Pubmed{
		client:  client,
		limiter: ratelimit.New(types.SourcePubmed, cfg.RateLimit),
		cfg:     cfg,
	}
}

func (p *Pubmed) Source() types.Source { return types.SourcePubmed }

type pubmedSearchResult struct {
	IDs []string `xml:"IdList>Id"`
}

type pubmedFetchResult struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID    string `xml:"MedlineCitation>PMID"`
	Article struct {
		Title    string   `xml:"ArticleTitle"`
		Abstract []string `xml:"Abstract>AbstractText"`
		Journal  struct {
			Title   string `xml:"Title"`
			PubDate struct {
				Year string `xml:"Year"`
			} `xml:"JournalIssue>PubDate"`
		} `xml:"Journal"`
		Authors []struct {
			LastName   string `xml:"LastName"`
			ForeName   string `xml:"ForeName"`
			Collective string `xml:"CollectiveName"`
		} `xml:"AuthorList>Author"`
	} `xml:"MedlineCitation>Article"`
	ArticleIDs []struct {
		Type  string `xml:"IdType,attr"`
		Value string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

// Fetch resolves PMIDs and hydrates them. A query that matches nothing
// returns an empty slice and no error.
func (p *Pubmed) Fetch(ctx context.Context, query types.SearchQuery, limit int) ([]types.PaperRecord, error) {
	limit = clampLimit(limit, pubmedMaxLimit)

	ids, err := p.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return p.fetchArticles(ctx, ids)
}

func (p *Pubmed) search(ctx context.Context, query types.SearchQuery, limit int) ([]string, error) {
	term := query.Text
	if query.Language != "" {
		// PubMed is the only source with a usable language facet.
		term += " AND " + query.Language + "[lang]"
	}

	params := p.baseParams()
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", strconv.Itoa(limit))
	params.Set("sort", "relevance")
	if query.DateFrom != nil || query.DateTo != nil {
		params.Set("datetype", "pdat")
		if query.DateFrom != nil {
			params.Set("mindate", query.DateFrom.Format("2006/01/02"))
		}
		if query.DateTo != nil {
			params.Set("maxdate", query.DateTo.Format("2006/01/02"))
		}
	}

	body, err := p.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var result pubmedSearchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, &types.ParseError{Source: types.SourcePubmed, Err: err}
	}
	return result.IDs, nil
}

func (p *Pubmed) fetchArticles(ctx context.Context, ids []string) ([]types.PaperRecord, error) {
	params := p.baseParams()
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "xml")

	body, err := p.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}
	var result pubmedFetchResult
	if err := xml.Unmarshal(body, &result); err != nil {
		return nil, &types.ParseError{Source: types.SourcePubmed, Err: err}
	}

	records := make([]types.PaperRecord, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.PMID == "" || strings.TrimSpace(a.Article.Title) == "" {
			continue
		}
		authors := make([]string, 0, len(a.Article.Authors))
		for _, au := range a.Article.Authors {
			switch {
			case au.Collective != "":
				authors = append(authors, au.Collective)
			case au.LastName != "":
				name := au.LastName
				if au.ForeName != "" {
					name = au.ForeName + " " + au.LastName
				}
				authors = append(authors, name)
			}
		}
		year := 0
		if y, err := strconv.Atoi(a.Article.Journal.PubDate.Year); err == nil {
			year = y
		}
		doi := ""
		for _, id := range a.ArticleIDs {
			if id.Type == "doi" {
				doi = types.NormalizeDOI(id.Value)
				break
			}
		}
		records = append(records, types.PaperRecord{
			ID:             recordID(types.SourcePubmed, a.PMID),
			Title:          cleanText(a.Article.Title),
			Abstract:       cleanText(strings.Join(a.Article.Abstract, " ")),
			Authors:        authors,
			Year:           year,
			Venue:          a.Article.Journal.Title,
			DOI:            doi,
			URL:            "https://pubmed.ncbi.nlm.nih.gov/" + a.PMID + "/",
			SourceDatabase: types.SourcePubmed,
			Provenance:     []types.Source{types.SourcePubmed},
		})
	}
	return records, nil
}

func (p *Pubmed) baseParams() url.Values {
	params := url.Values{}
	params.Set("tool", pubmedTool)
	if p.cfg.Email != "" {
		params.Set("email", p.cfg.Email)
	}
	if p.cfg.APIKey != "" {
		params.Set("api_key", p.cfg.APIKey)
	}
	return params
}

func (p *Pubmed) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s?%s", PubmedAPIBase, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building pubmed request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, p.client, req, httputil.Policy{
		Source:     types.SourcePubmed,
		MaxRetries: p.cfg.MaxRetries,
		Acquire:    p.limiter.Acquire,
		OnThrottle: p.limiter.ReportThrottle,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	p.limiter.ReportSuccess()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ParseError{Source: types.SourcePubmed, Err: err}
	}
	return body, nil
}
