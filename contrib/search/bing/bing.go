// Package bing queries the Bing Web Search v7 API.
package bing

import (
	"context"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweetpotato0/kgpgpt/contrib/search/internal/rest"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/search"
)

// DefaultBaseURL is the public Bing endpoint.
const DefaultBaseURL = "https://api.bing.microsoft.com"

const count = 5

// Config holds the Bing subscription key.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider implements search.Provider.
type Provider struct {
	http    *resty.Client
	enabled bool
}

var _ search.Provider = (*Provider)(nil)

// New creates a provider. It is enabled only with a subscription key.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Provider{
		http:    rest.NewClient(cfg.BaseURL, cfg.Timeout, map[string]string{"Ocp-Apim-Subscription-Key": cfg.APIKey}),
		enabled: cfg.APIKey != "",
	}
}

func (p *Provider) Name() string  { return search.EngineBing }
func (p *Provider) Enabled() bool { return p.enabled }

type webPage struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type response struct {
	WebPages struct {
		Value []webPage `json:"value"`
	} `json:"webPages"`
}

// Search returns up to five web pages.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	if !p.enabled {
		return nil, kgperrors.ErrProviderDisabled
	}
	var out response
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"q": query, "count": strconv.Itoa(count)}).
		SetResult(&out).
		Get("/v7.0/search")
	if err := rest.Check(search.EngineBing, resp, err); err != nil {
		return nil, err
	}

	pages := out.WebPages.Value
	if len(pages) > count {
		pages = pages[:count]
	}
	results := make([]search.Result, 0, len(pages))
	for i, page := range pages {
		results = append(results, search.Result{
			Title:     search.OrDefault(page.Name, "No title"),
			Link:      search.OrDefault(page.URL, "#"),
			Snippet:   search.OrDefault(page.Snippet, "No description available"),
			Source:    search.ExtractDomain(page.URL),
			Relevance: search.CalculateRelevance(page.Name, page.Snippet, i, false),
			Engine:    search.EngineBing,
		})
	}
	return results, nil
}
