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

// doajAPIBase is the DOAJ article search endpoint. Declared as a var so
// tests can substitute an httptest server.
var doajAPIBase = "https://doaj.org/api/search/articles/"

// DOAJ queries the Directory of Open Access Journals article API.
type DOAJ struct {
	client  *http.Client
	cfg     types.ConnectorConfig
	limiter *rate.Limiter
}

// NewDOAJ builds the DOAJ connector.
func NewDOAJ(client *http.Client, cfg types.ConnectorConfig) *DOAJ {
	return &DOAJ{client: client, cfg: cfg, limiter: newLimiter(cfg)}
}

// Name returns the source identifier.
func (d *DOAJ) Name() types.Source { return types.SourceDOAJ }

// Search queries DOAJ articles and maps the bibjson records into Papers.
// DOAJ carries journal language metadata, so the language filter is
// applied here.
func (d *DOAJ) Search(ctx context.Context, q Query, maxResults int) ([]types.Paper, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, unavailable(types.SourceDOAJ, err)
	}

	reqURL := doajAPIBase + url.PathEscape(q.Text) +
		"?" + url.Values{"pageSize": {fmt.Sprintf("%d", maxResults)}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, unavailable(types.SourceDOAJ, err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, d.client, req, 0)
	if err != nil {
		return nil, unavailable(types.SourceDOAJ, fmt.Errorf("request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(types.SourceDOAJ, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var dr doajResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, unavailable(types.SourceDOAJ, fmt.Errorf("parsing response: %w", err))
	}

	var papers []types.Paper
	for _, hit := range dr.Results {
		bib := hit.Bibjson
		if hit.ID == "" || bib.Title == "" {
			continue
		}
		if q.Language != "" && !languageMatches(bib.Journal.Language, q.Language) {
			continue
		}

		p := types.Paper{
			ID:            types.PaperID(types.SourceDOAJ, hit.ID),
			ExternalID:    hit.ID,
			Title:         collapseSpace(bib.Title),
			Abstract:      collapseSpace(bib.Abstract),
			Source:        types.SourceDOAJ,
			URL:           "https://doaj.org/article/" + hit.ID,
			CitationCount: -1,
			Keywords:      bib.Keywords,
		}

		for _, id := range bib.Identifier {
			if id.Type == "doi" {
				p.DOI = normalizeDOI(id.ID)
			}
		}

		for _, link := range bib.Link {
			if link.Type == "fulltext" {
				p.URL = link.URL
				if link.ContentType == "PDF" {
					p.PDFURL = link.URL
				}
			}
		}

		for _, au := range bib.Author {
			if au.Name == "" {
				continue
			}
			p.Authors = append(p.Authors, types.Author{
				Name:        collapseSpace(au.Name),
				Affiliation: collapseSpace(au.Affiliation),
			})
		}

		if bib.Year != "" {
			p.PublishedDate = doajDate(bib.Year, bib.Month)
		}
		if !q.DateRange.Contains(p.PublishedDate) {
			continue
		}

		papers = append(papers, p)
	}

	return dedupeByExternalID(papers), nil
}

// languageMatches reports whether any of the journal's language names or
// codes matches the requested ISO 639-1 code. DOAJ stores full names
// ("English"); the comparison accepts either form.
func languageMatches(langs []string, want string) bool {
	if len(langs) == 0 {
		return true
	}
	names := map[string]string{
		"en": "english", "de": "german", "fr": "french",
		"es": "spanish", "pt": "portuguese", "zh": "chinese",
	}
	wantName := names[want]
	for _, l := range langs {
		ll := collapseSpace(l)
		if strings.EqualFold(ll, want) || (wantName != "" && strings.EqualFold(ll, wantName)) {
			return true
		}
	}
	return false
}

// doajDate builds a publication date from DOAJ's string year/month.
func doajDate(year, month string) time.Time {
	t, err := time.Parse("2006-1", year+"-"+nonEmpty(month, "1"))
	if err != nil {
		if t, err = time.Parse("2006", year); err != nil {
			return time.Time{}
		}
	}
	return t
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// DOAJ API JSON structures.
type doajResponse struct {
	Results []struct {
		ID      string      `json:"id"`
		Bibjson doajBibjson `json:"bibjson"`
	} `json:"results"`
}

type doajBibjson struct {
	Title      string   `json:"title"`
	Abstract   string   `json:"abstract"`
	Year       string   `json:"year"`
	Month      string   `json:"month"`
	Keywords   []string `json:"keywords"`
	Identifier []struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"identifier"`
	Link []struct {
		Type        string `json:"type"`
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"link"`
	Author []struct {
		Name        string `json:"name"`
		Affiliation string `json:"affiliation"`
	} `json:"author"`
	Journal struct {
		Language []string `json:"language"`
	} `json:"journal"`
}
