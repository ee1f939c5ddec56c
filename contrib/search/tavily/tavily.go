// Package tavily queries the Tavily search API.
package tavily

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweetpotato0/kgpgpt/contrib/search/internal/rest"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/search"
)

// DefaultBaseURL is the public Tavily endpoint.
const DefaultBaseURL = "https://api.tavily.com"

const (
	maxResults = 5
	source     = "Tavily AI"
)

// Config holds the Tavily API key.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider implements search.Provider.
type Provider struct {
	http    *resty.Client
	apiKey  string
	enabled bool
}

var _ search.Provider = (*Provider)(nil)

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &Provider{
		http:    rest.NewClient(cfg.BaseURL, cfg.Timeout, headers),
		apiKey:  cfg.APIKey,
		enabled: cfg.APIKey != "",
	}
}

func (p *Provider) Name() string  { return search.EngineTavily }
func (p *Provider) Enabled() bool { return p.enabled }

type request struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
	MaxResults        int    `json:"max_results"`
}

type hit struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type response struct {
	Answer  string `json:"answer"`
	Results []hit  `json:"results"`
}

// Search returns Tavily's direct answer, when present, ahead of its results.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	if !p.enabled {
		return nil, kgperrors.ErrProviderDisabled
	}
	var out response
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(request{
			APIKey:        p.apiKey,
			Query:         query,
			SearchDepth:   "basic",
			IncludeAnswer: true,
			MaxResults:    maxResults,
		}).
		SetResult(&out).
		Post("/search")
	if err := rest.Check(search.EngineTavily, resp, err); err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(out.Results)+1)
	if out.Answer != "" {
		results = append(results, search.Result{
			Title:     "Direct Answer",
			Link:      "#",
			Snippet:   out.Answer,
			Source:    source,
			Relevance: 1.0,
			Engine:    search.EngineTavily,
		})
	}
	for i, h := range out.Results {
		if i == maxResults {
			break
		}
		results = append(results, search.Result{
			Title:     search.OrDefault(h.Title, "No title"),
			Link:      search.OrDefault(h.URL, "#"),
			Snippet:   search.OrDefault(h.Content, "No description available"),
			Source:    search.ExtractDomain(h.URL),
			Relevance: search.CalculateRelevance(h.Title, h.Content, i, false),
			Engine:    search.EngineTavily,
		})
	}
	return results, nil
}
