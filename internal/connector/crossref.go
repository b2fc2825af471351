// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

// Crossref queries the Crossref REST API.
type Crossref struct {
	client  *http.Client
	cfg     types.ConnectorConfig
	limiter *rate.Limiter
}

// NewCrossref builds the Crossref connector.
func NewCrossref(client *http.Client, cfg types.ConnectorConfig) *Crossref {
	return &Crossref{client: client, cfg: cfg, limiter: newLimiter(cfg)}
}

// Name returns the source identifier.
func (c *Crossref) Name() types.Source { return types.SourceCrossref }

// Search queries Crossref works. Date ranges map to from-pub-date /
// until-pub-date filters; abstracts arrive as JATS fragments and are
// stripped to plain text.
func (c *Crossref) Search(ctx context.Context, q Query, maxResults int) ([]types.Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, unavailable(types.SourceCrossref, err)
	}

	params := url.Values{
		"query":  {q.Text},
		"rows":   {fmt.Sprintf("%d", maxResults)},
		"select": {"DOI,title,author,abstract,published,URL,is-referenced-by-count,subject"},
		"sort":   {"relevance"},
	}
	if c.cfg.CrossrefMailto != "" {
		params.Set("mailto", c.cfg.CrossrefMailto)
	}

	var filters []string
	if !q.DateRange.From.IsZero() {
		filters = append(filters, "from-pub-date:"+q.DateRange.From.Format("2006-01-02"))
	}
	if !q.DateRange.To.IsZero() {
		filters = append(filters, "until-pub-date:"+q.DateRange.To.Format("2006-01-02"))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, crossrefAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, unavailable(types.SourceCrossref, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		return nil, unavailable(types.SourceCrossref, fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(types.SourceCrossref, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, unavailable(types.SourceCrossref, fmt.Errorf("parsing response: %w", err))
	}

	var papers []types.Paper
	for _, item := range cr.Message.Items {
		if item.DOI == "" || len(item.Title) == 0 {
			continue
		}
		doi := normalizeDOI(item.DOI)

		p := types.Paper{
			ID:            types.PaperID(types.SourceCrossref, doi),
			ExternalID:    doi,
			Title:         collapseSpace(item.Title[0]),
			Abstract:      stripMarkup(item.Abstract),
			Source:        types.SourceCrossref,
			DOI:           doi,
			URL:           item.URL,
			CitationCount: item.IsReferencedByCount,
			Keywords:      item.Subject,
		}
		if p.URL == "" {
			p.URL = "https://doi.org/" + doi
		}

		for _, au := range item.Author {
			name := collapseSpace(au.Given + " " + au.Family)
			if name == "" {
				continue
			}
			author := types.Author{Name: name}
			if len(au.Affiliation) > 0 {
				author.Affiliation = au.Affiliation[0].Name
			}
			p.Authors = append(p.Authors, author)
		}

		p.PublishedDate = dateFromParts(item.Published.DateParts)
		if !q.DateRange.Contains(p.PublishedDate) {
			continue
		}

		papers = append(papers, p)
	}

	return dedupeByExternalID(papers), nil
}

// dateFromParts converts a Crossref date-parts array ([year, month, day],
// possibly truncated) into a time.Time. Missing parts default to 1.
func dateFromParts(parts [][]int) time.Time {
	if len(parts) == 0 || len(parts[0]) == 0 {
		return time.Time{}
	}
	p := parts[0]
	year, month, day := p[0], 1, 1
	if len(p) > 1 {
		month = p[1]
	}
	if len(p) > 2 {
		day = p[2]
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// Crossref API JSON structures.
type crossrefResponse struct {
	Message struct {
		Items []crossrefItem `json:"items"`
	} `json:"message"`
}

type crossrefItem struct {
	DOI                 string           `json:"DOI"`
	Title               []string         `json:"title"`
	Abstract            string           `json:"abstract"`
	URL                 string           `json:"URL"`
	IsReferencedByCount int              `json:"is-referenced-by-count"`
	Subject             []string         `json:"subject"`
	Author              []crossrefAuthor `json:"author"`
	Published           struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
}

type crossrefAuthor struct {
	Given       string `json:"given"`
	Family      string `json:"family"`
	Affiliation []struct {
		Name string `json:"name"`
	} `json:"affiliation"`
}
