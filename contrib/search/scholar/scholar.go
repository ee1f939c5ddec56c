// Package scholar searches papers through the Semantic Scholar Graph API.
package scholar

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweetpotato0/kgpgpt/contrib/search/internal/rest"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/search"
)

// DefaultBaseURL is the public Semantic Scholar endpoint.
const DefaultBaseURL = "https://api.semanticscholar.org"

const (
	limit  = 5
	fields = "title,abstract,url,year,authors"
	source = "Semantic Scholar"
)

// Config holds the Semantic Scholar API key.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider implements search.Provider under the academic engine name.
type Provider struct {
	http    *resty.Client
	enabled bool
}

var _ search.Provider = (*Provider)(nil)

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Provider{
		http:    rest.NewClient(cfg.BaseURL, cfg.Timeout, map[string]string{"x-api-key": cfg.APIKey}),
		enabled: cfg.APIKey != "",
	}
}

func (p *Provider) Name() string  { return search.EngineAcademic }
func (p *Provider) Enabled() bool { return p.enabled }

type author struct {
	Name string `json:"name"`
}

type paper struct {
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	URL      string   `json:"url"`
	Year     int      `json:"year"`
	Authors  []author `json:"authors"`
}

type response struct {
	Data []paper `json:"data"`
}

// Search returns up to five papers. Academic results get a relevance boost.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	if !p.enabled {
		return nil, kgperrors.ErrProviderDisabled
	}
	var out response
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":  query,
			"limit":  strconv.Itoa(limit),
			"fields": fields,
		}).
		SetResult(&out).
		Get("/graph/v1/paper/search")
	if err := rest.Check(search.EngineAcademic, resp, err); err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(out.Data))
	for i, paper := range out.Data {
		if i == limit {
			break
		}
		snippet := search.OrDefault(paper.Abstract, "No abstract available")
		if byline := describe(paper); byline != "" {
			snippet = byline + " | " + snippet
		}
		results = append(results, search.Result{
			Title:     search.OrDefault(paper.Title, "No title"),
			Link:      search.OrDefault(paper.URL, "#"),
			Snippet:   snippet,
			Source:    source,
			Relevance: search.CalculateRelevance(paper.Title, paper.Abstract, i, true),
			Engine:    search.EngineAcademic,
		})
	}
	return results, nil
}

// describe renders "A, B, C et al. (2021)".
func describe(p paper) string {
	var names []string
	for i, a := range p.Authors {
		if i == 3 {
			break
		}
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	out := strings.Join(names, ", ")
	if len(p.Authors) > 3 {
		out += " et al."
	}
	if p.Year > 0 {
		if out != "" {
			out += " "
		}
		out += "(" + strconv.Itoa(p.Year) + ")"
	}
	return out
}
