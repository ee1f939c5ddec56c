// Package duckduckgo reads the keyless DuckDuckGo Instant Answer API.
package duckduckgo

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweetpotato0/kgpgpt/contrib/search/internal/rest"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/search"
)

// DefaultBaseURL is the public Instant Answer endpoint.
const DefaultBaseURL = "https://api.duckduckgo.com"

const maxTopics = 3

// Config toggles the provider; it needs no credentials.
type Config struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
}

// Provider implements search.Provider.
type Provider struct {
	http    *resty.Client
	enabled bool
}

var _ search.Provider = (*Provider)(nil)

// New creates a provider. It is enabled by configuration alone.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Provider{
		http:    rest.NewClient(cfg.BaseURL, cfg.Timeout, nil),
		enabled: cfg.Enabled,
	}
}

// Name implements search.Provider.
func (p *Provider) Name() string { return search.EngineDuckDuckGo }

// Enabled implements search.Provider.
func (p *Provider) Enabled() bool { return p.enabled }

type topic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

type response struct {
	Abstract      string  `json:"Abstract"`
	Heading       string  `json:"Heading"`
	AbstractURL   string  `json:"AbstractURL"`
	RelatedTopics []topic `json:"RelatedTopics"`
}

// Search turns the abstract and the first related topics into results.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	if !p.enabled {
		return nil, kgperrors.ErrProviderDisabled
	}
	var out response
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":             query,
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		}).
		SetResult(&out).
		Get("/")
	if err := rest.Check(search.EngineDuckDuckGo, resp, err); err != nil {
		return nil, err
	}

	var results []search.Result
	if out.Abstract != "" {
		results = append(results, search.Result{
			Title:     search.OrDefault(out.Heading, "DuckDuckGo Result"),
			Link:      search.OrDefault(out.AbstractURL, "#"),
			Snippet:   out.Abstract,
			Source:    "DuckDuckGo",
			Relevance: 0.9,
			Engine:    search.EngineDuckDuckGo,
		})
	}

	n := 0
	for _, t := range out.RelatedTopics {
		if n == maxTopics {
			break
		}
		// Category groups carry no Text of their own.
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		title, _, _ := strings.Cut(t.Text, " - ")
		results = append(results, search.Result{
			Title:     title,
			Link:      t.FirstURL,
			Snippet:   t.Text,
			Source:    "DuckDuckGo",
			Relevance: 0.7 - float64(n)*0.1,
			Engine:    search.EngineDuckDuckGo,
		})
		n++
	}
	return results, nil
}
