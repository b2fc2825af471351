// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API.
type Arxiv struct {
	client  *http.Client
	cfg     types.ConnectorConfig
	limiter *rate.Limiter
}

// NewArxiv builds the arXiv connector.
func NewArxiv(client *http.Client, cfg types.ConnectorConfig) *Arxiv {
	return &Arxiv{client: client, cfg: cfg, limiter: newLimiter(cfg)}
}

// Name returns the source identifier.
func (a *Arxiv) Name() types.Source { return types.SourceArxiv }

// Search queries arXiv and maps the Atom feed into Papers. arXiv has no
// server-side date filter, so the date range is applied client-side.
func (a *Arxiv) Search(ctx context.Context, q Query, maxResults int) ([]types.Paper, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, unavailable(types.SourceArxiv, err)
	}

	terms := strings.Fields(q.Text)
	if len(terms) == 0 {
		return nil, unavailable(types.SourceArxiv, fmt.Errorf("empty query"))
	}

	reqURL := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, url.QueryEscape("all:"+strings.Join(terms, " AND ")), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, unavailable(types.SourceArxiv, err)
	}
	req.Header.Set("User-Agent", a.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.client, req, 0)
	if err != nil {
		return nil, unavailable(types.SourceArxiv, fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(types.SourceArxiv, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, unavailable(types.SourceArxiv, fmt.Errorf("parsing response: %w", err))
	}

	var papers []types.Paper
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		p := types.Paper{
			ID:            types.PaperID(types.SourceArxiv, arxivID),
			ExternalID:    arxivID,
			Title:         collapseSpace(entry.Title),
			Abstract:      collapseSpace(entry.Summary),
			Source:        types.SourceArxiv,
			DOI:           normalizeDOI(entry.DOI),
			URL:           "https://arxiv.org/abs/" + arxivID,
			CitationCount: -1,
		}

		for _, au := range entry.Authors {
			p.Authors = append(p.Authors, types.Author{
				Name:        collapseSpace(au.Name),
				Affiliation: collapseSpace(au.Affiliation),
			})
		}

		for _, link := range entry.Links {
			switch {
			case link.Title == "pdf":
				p.PDFURL = link.Href
			case link.Rel == "alternate" && link.Href != "":
				p.URL = link.Href
			}
		}

		for _, cat := range entry.Categories {
			if cat.Term != "" {
				p.Keywords = append(p.Keywords, cat.Term)
			}
		}

		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			p.PublishedDate = t
		}

		if !q.DateRange.Contains(p.PublishedDate) {
			continue
		}

		papers = append(papers, p)
	}

	return dedupeByExternalID(papers), nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	DOI        string          `xml:"doi"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name        string `xml:"name"`
	Affiliation string `xml:"affiliation"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
