// Package brightdata searches the web, and LinkedIn profiles for person-like
// queries, through the BrightData API.
package brightdata

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/go-resty/resty/v2"

	"github.com/sweetpotato0/kgpgpt/contrib/search/internal/rest"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/search"
)

// DefaultBaseURL is the public BrightData endpoint.
const DefaultBaseURL = "https://api.brightdata.com"

const maxResults = 5

var personKeywords = []string{
	"linkedin", "profile", "person", "employee", "staff", "team member",
	"professor", "faculty", "researcher", "engineer", "manager", "director",
	"ceo", "cto", "founder", "co-founder", "head of", "lead", "senior",
	"junior", "associate", "analyst", "consultant", "specialist",
}

// Config holds the BrightData credentials. All three are required.
type Config struct {
	APIKey   string
	Username string
	Password string
	BaseURL  string
	Timeout  time.Duration
}

// Provider implements search.Provider.
type Provider struct {
	http    *resty.Client
	enabled bool
}

var _ search.Provider = (*Provider)(nil)

func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	headers := map[string]string{
		"X-Username": cfg.Username,
		"X-Password": cfg.Password,
	}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &Provider{
		http:    rest.NewClient(cfg.BaseURL, cfg.Timeout, headers),
		enabled: cfg.APIKey != "" && cfg.Username != "" && cfg.Password != "",
	}
}

func (p *Provider) Name() string  { return search.EngineBrightData }
func (p *Provider) Enabled() bool { return p.enabled }

// Search routes person-like queries to the profile index and everything
// else to web search.
func (p *Provider) Search(ctx context.Context, query string) ([]search.Result, error) {
	if !p.enabled {
		return nil, kgperrors.ErrProviderDisabled
	}
	if IsPersonQuery(query) {
		return p.searchProfiles(ctx, query)
	}
	return p.searchWeb(ctx, query)
}

// IsPersonQuery reports whether query names a role keyword or looks like a
// person's name (two or more capitalized words).
func IsPersonQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range personKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	capitalized := 0
	for _, w := range strings.Fields(query) {
		r := []rune(w)
		if len(r) > 1 && unicode.IsUpper(r[0]) && r[0] <= unicode.MaxASCII {
			capitalized++
		}
	}
	return capitalized >= 2
}

type profileRequest struct {
	Query              string `json:"query"`
	MaxResults         int    `json:"max_results"`
	IncludeExperience  bool   `json:"include_experience"`
	IncludeEducation   bool   `json:"include_education"`
	IncludeConnections bool   `json:"include_connections"`
}

type profileResponse struct {
	Results []search.Profile `json:"results"`
}

func (p *Provider) searchProfiles(ctx context.Context, query string) ([]search.Result, error) {
	var out profileResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(profileRequest{
			Query:              query,
			MaxResults:         maxResults,
			IncludeExperience:  true,
			IncludeEducation:   true,
			IncludeConnections: true,
		}).
		SetResult(&out).
		Post("/linkedin/profile/search")
	if err := rest.Check(search.EngineBrightData, resp, err); err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(out.Results))
	for i := range out.Results {
		profile := out.Results[i]
		headline := profile.Position
		if profile.CurrentCompany != nil && profile.CurrentCompany.Title != "" {
			headline = profile.CurrentCompany.Title
		}
		results = append(results, search.Result{
			Title:     profile.Name + " - " + headline,
			Link:      search.OrDefault(profile.URL, "#"),
			Snippet:   ProfileSnippet(profile),
			Source:    "LinkedIn",
			Relevance: ProfileRelevance(profile, query, i),
			Engine:    search.EngineBrightData,
			Profile:   &profile,
		})
	}
	return results, nil
}

type webRequest struct {
	Query          string `json:"query"`
	MaxResults     int    `json:"max_results"`
	IncludeContent bool   `json:"include_content"`
	Country        string `json:"country"`
	Language       string `json:"language"`
}

type webHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

type webResponse struct {
	Results []webHit `json:"results"`
}

func (p *Provider) searchWeb(ctx context.Context, query string) ([]search.Result, error) {
	var out webResponse
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(webRequest{
			Query:          query,
			MaxResults:     maxResults,
			IncludeContent: true,
			Country:        "US",
			Language:       "en",
		}).
		SetResult(&out).
		Post("/web/search")
	if err := rest.Check(search.EngineBrightData, resp, err); err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(out.Results))
	for i, h := range out.Results {
		snippet := search.OrDefault(h.Content, h.Description)
		results = append(results, search.Result{
			Title:     search.OrDefault(h.Title, "No title"),
			Link:      search.OrDefault(h.URL, "#"),
			Snippet:   search.OrDefault(snippet, "No description available"),
			Source:    search.ExtractDomain(h.URL),
			Relevance: search.CalculateRelevance(h.Title, snippet, i, false),
			Engine:    search.EngineBrightData,
		})
	}
	return results, nil
}

// ProfileSnippet summarizes a profile as "about | Education: x | Location: y".
func ProfileSnippet(p search.Profile) string {
	var b strings.Builder
	switch {
	case p.About != "":
		about := p.About
		if r := []rune(about); len(r) > 200 {
			about = string(r[:200])
		}
		b.WriteString(about + "...")
	case p.CurrentCompany != nil:
		b.WriteString(p.CurrentCompany.Title + " at " + p.CurrentCompany.Name)
	case len(p.Experience) > 0:
		b.WriteString(p.Experience[0].Title + " at " + p.Experience[0].Company)
	}
	if len(p.Education) > 0 {
		b.WriteString(" | Education: " + p.Education[0].Title)
	}
	if p.City != "" {
		b.WriteString(" | Location: " + p.City)
	}
	if b.Len() == 0 {
		return "LinkedIn profile information available"
	}
	return b.String()
}

// ProfileRelevance scores a profile by position and by how well its name,
// employer, title, education and city match the query.
func ProfileRelevance(p search.Profile, query string, index int) float64 {
	q := strings.ToLower(query)
	score := 1.0 - float64(index)*0.1

	name := strings.ToLower(p.Name)
	if name != "" && (strings.Contains(name, q) || strings.Contains(q, name)) {
		score += 0.3
	}
	if c := p.CurrentCompany; c != nil {
		if strings.Contains(strings.ToLower(c.Name), q) {
			score += 0.2
		}
		if strings.Contains(strings.ToLower(c.Title), q) || strings.Contains(strings.ToLower(p.Position), q) {
			score += 0.2
		}
	} else if strings.Contains(strings.ToLower(p.Position), q) {
		score += 0.2
	}
	for _, edu := range p.Education {
		if strings.Contains(strings.ToLower(edu.Title), q) {
			score += 0.1
			break
		}
	}
	if p.City != "" && strings.Contains(strings.ToLower(p.City), q) {
		score += 0.1
	}
	return search.Clamp(score, 0.1, 1.0)
}
