// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package connector

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/research-assistant/internal/httputil"
	"github.com/pdiddy/research-assistant/pkg/types"
)

// PubMed eUtils endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	pubmedSearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedFetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// PubMed queries the NCBI eUtils API: an eSearch for PMIDs followed by
// an eFetch for full article records.
type PubMed struct {
	client  *http.Client
	cfg     types.ConnectorConfig
	limiter *rate.Limiter
}

// NewPubMed builds the PubMed connector.
func NewPubMed(client *http.Client, cfg types.ConnectorConfig) *PubMed {
	return &PubMed{client: client, cfg: cfg, limiter: newLimiter(cfg)}
}

// Name returns the source identifier.
func (p *PubMed) Name() types.Source { return types.SourcePubMed }

// Search runs the two-step eSearch/eFetch flow and maps the MEDLINE XML
// into Papers.
func (p *PubMed) Search(ctx context.Context, q Query, maxResults int) ([]types.Paper, error) {
	pmids, err := p.search(ctx, q, maxResults)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	papers, err := p.fetch(ctx, pmids)
	if err != nil {
		return nil, err
	}

	out := papers[:0]
	for _, paper := range papers {
		if q.DateRange.Contains(paper.PublishedDate) {
			out = append(out, paper)
		}
	}
	return dedupeByExternalID(out), nil
}

func (p *PubMed) search(ctx context.Context, q Query, maxResults int) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, unavailable(types.SourcePubMed, err)
	}

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {q.Text},
		"retmax":  {fmt.Sprintf("%d", maxResults)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if p.cfg.PubMedAPIKey != "" {
		params.Set("api_key", p.cfg.PubMedAPIKey)
	}
	// eUtils supports date bounds directly.
	if !q.DateRange.From.IsZero() {
		params.Set("mindate", q.DateRange.From.Format("2006/01/02"))
		params.Set("datetype", "pdat")
	}
	if !q.DateRange.To.IsZero() {
		params.Set("maxdate", q.DateRange.To.Format("2006/01/02"))
		params.Set("datetype", "pdat")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, unavailable(types.SourcePubMed, err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return nil, unavailable(types.SourcePubMed, fmt.Errorf("esearch request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(types.SourcePubMed, fmt.Errorf("esearch HTTP %d", resp.StatusCode))
	}

	var sr pubmedSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, unavailable(types.SourcePubMed, fmt.Errorf("parsing esearch response: %w", err))
	}
	return sr.ESearchResult.IDList, nil
}

func (p *PubMed) fetch(ctx context.Context, pmids []string) ([]types.Paper, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, unavailable(types.SourcePubMed, err)
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}
	if p.cfg.PubMedAPIKey != "" {
		params.Set("api_key", p.cfg.PubMedAPIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedFetchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, unavailable(types.SourcePubMed, err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.client, req, 0)
	if err != nil {
		return nil, unavailable(types.SourcePubMed, fmt.Errorf("efetch request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(types.SourcePubMed, fmt.Errorf("efetch HTTP %d", resp.StatusCode))
	}

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, unavailable(types.SourcePubMed, fmt.Errorf("parsing efetch response: %w", err))
	}

	var papers []types.Paper
	for _, article := range set.Articles {
		pmid := article.MedlineCitation.PMID
		if pmid == "" {
			continue
		}

		art := article.MedlineCitation.Article
		paper := types.Paper{
			ID:            types.PaperID(types.SourcePubMed, pmid),
			ExternalID:    pmid,
			Title:         collapseSpace(art.ArticleTitle),
			Abstract:      collapseSpace(strings.Join(art.Abstract.AbstractText, " ")),
			Source:        types.SourcePubMed,
			URL:           "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
			CitationCount: -1,
		}

		for _, id := range art.ELocationIDs {
			if id.EIdType == "doi" {
				paper.DOI = normalizeDOI(id.Value)
			}
		}

		for _, au := range art.AuthorList.Authors {
			name := collapseSpace(au.ForeName + " " + au.LastName)
			if name == "" {
				name = collapseSpace(au.CollectiveName)
			}
			if name == "" {
				continue
			}
			author := types.Author{Name: name}
			if len(au.AffiliationInfo) > 0 {
				author.Affiliation = collapseSpace(au.AffiliationInfo[0].Affiliation)
			}
			paper.Authors = append(paper.Authors, author)
		}

		for _, kwList := range article.MedlineCitation.KeywordLists {
			for _, kw := range kwList.Keywords {
				if kw != "" {
					paper.Keywords = append(paper.Keywords, kw)
				}
			}
		}

		paper.PublishedDate = pubDate(art.Journal.JournalIssue.PubDate)
		papers = append(papers, paper)
	}
	return papers, nil
}

// pubDate converts a MEDLINE PubDate into a time.Time. Month names and
// numbers both occur; missing parts default to January 1.
func pubDate(d pubmedPubDate) time.Time {
	if d.Year == 0 {
		return time.Time{}
	}
	month := time.January
	if d.Month != "" {
		if t, err := time.Parse("Jan", d.Month); err == nil {
			month = t.Month()
		} else if t, err := time.Parse("1", d.Month); err == nil {
			month = t.Month()
		}
	}
	day := d.Day
	if day == 0 {
		day = 1
	}
	return time.Date(d.Year, month, day, 0, 0, 0, 0, time.UTC)
}

// PubMed eUtils response structures.
type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			ArticleTitle string `xml:"ArticleTitle"`
			Abstract     struct {
				AbstractText []string `xml:"AbstractText"`
			} `xml:"Abstract"`
			ELocationIDs []struct {
				EIdType string `xml:"EIdType,attr"`
				Value   string `xml:",chardata"`
			} `xml:"ELocationID"`
			AuthorList struct {
				Authors []struct {
					LastName        string `xml:"LastName"`
					ForeName        string `xml:"ForeName"`
					CollectiveName  string `xml:"CollectiveName"`
					AffiliationInfo []struct {
						Affiliation string `xml:"Affiliation"`
					} `xml:"AffiliationInfo"`
				} `xml:"Author"`
			} `xml:"AuthorList"`
			Journal struct {
				JournalIssue struct {
					PubDate pubmedPubDate `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
		} `xml:"Article"`
		KeywordLists []struct {
			Keywords []string `xml:"Keyword"`
		} `xml:"KeywordList"`
	} `xml:"MedlineCitation"`
}

type pubmedPubDate struct {
	Year  int    `xml:"Year"`
	Month string `xml:"Month"`
	Day   int    `xml:"Day"`
}
