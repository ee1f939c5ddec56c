// Package serper queries Google through the Serper API.
package serper

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweetpotato0/kgpgpt/contrib/search/internal/rest"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/search"
)

// DefaultBaseURL is the public Serper endpoint.
const DefaultBaseURL = "https://google.serper.dev"

const maxResults = 5

// Config holds the Serper credentials.
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

// New creates a provider. It is enabled only with an API key.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Provider{
		http:    rest.NewClient(cfg.BaseURL, cfg.Timeout, map[string]string{"X-API-KEY": cfg.APIKey}),
		enabled: cfg.APIKey != "",
	}
}

// Name implements search.Provider.
func (p *Provider) Name() string { return search.EngineSerper }

// Enabled implements search.Provider.
func (p *Provider) Enabled() bool { return p.enabled }

type request struct {
	Q string `json:"q"`
}

type organic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type response struct {
	Organic []organic `json:"organic"`
}

// Search returns the first five organic results.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	if !p.enabled {
		return nil, kgperrors.ErrProviderDisabled
	}
	var out response
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(request{Q: query}).
		SetResult(&out).
		Post("/search")
	if err := rest.Check(search.EngineSerper, resp, err); err != nil {
		return nil, err
	}

	hits := out.Organic
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	results := make([]search.Result, 0, len(hits))
	for i, h := range hits {
		results = append(results, search.Result{
			Title:     search.OrDefault(h.Title, "No title"),
			Link:      search.OrDefault(h.Link, "#"),
			Snippet:   search.OrDefault(h.Snippet, "No description available"),
			Source:    search.ExtractDomain(h.Link),
			Relevance: search.CalculateRelevance(h.Title, h.Snippet, i, false),
			Engine:    search.EngineSerper,
		})
	}
	return results, nil
}
