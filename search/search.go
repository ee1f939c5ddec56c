// Package search defines the common web-search result shape and the
// contract every provider adapter implements.
package search

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Engine names as reported by Provider.Name.
const (
	EngineSerper     = "serper"
	EngineBing       = "bing"
	EngineDuckDuckGo = "duckduckgo"
	EngineAcademic   = "academic"
	EngineTavily     = "tavily"
	EngineBrightData = "brightdata"
)

// Result is one normalized web hit. Link is its identity.
type Result struct {
	Title     string   `json:"title"`
	Link      string   `json:"link"`
	Snippet   string   `json:"snippet"`
	Source    string   `json:"source"`
	Relevance float64  `json:"relevance"`
	Engine    string   `json:"searchEngine,omitempty"`
	Profile   *Profile `json:"profileData,omitempty"`
}

// Profile carries structured person attributes when a provider returns them.
type Profile struct {
	Name           string         `json:"name"`
	URL            string         `json:"url"`
	City           string         `json:"city,omitempty"`
	CountryCode    string         `json:"country_code,omitempty"`
	About          string         `json:"about,omitempty"`
	Position       string         `json:"position,omitempty"`
	CurrentCompany *Company       `json:"current_company,omitempty"`
	Experience     []ProfileEntry `json:"experience,omitempty"`
	Education      []ProfileEntry `json:"education,omitempty"`
	Followers      int            `json:"followers,omitempty"`
	Connections    int            `json:"connections,omitempty"`
}

// Company is a profile's current employer.
type Company struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
}

// ProfileEntry is one experience or education line.
type ProfileEntry struct {
	Title     string `json:"title"`
	Company   string `json:"company,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// Response is the aggregator's output for one query.
type Response struct {
	Results    []Result      `json:"results"`
	TotalFound int           `json:"totalFound"`
	Query      string        `json:"query"`
	SearchTime time.Duration `json:"searchTime"`
}

// Provider is one search backend. A provider without credentials reports
// Enabled() == false and is skipped by the aggregator.
type Provider interface {
	Name() string
	Enabled() bool
	Search(ctx context.Context, query string) ([]Result, error)
}

// CalculateRelevance scores a hit by its rank within one provider's list,
// rewarding descriptive snippets and titles and academic sources.
func CalculateRelevance(title, snippet string, index int, academic bool) float64 {
	score := 1.0 - float64(index)*0.1
	if len(snippet) > 100 {
		score += 0.1
	}
	if len(title) > 20 {
		score += 0.1
	}
	if academic {
		score += 0.2
	}
	return Clamp(score, 0.1, 1.0)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ExtractDomain returns the host of link without a leading "www.", or
// "unknown" when link does not parse as an absolute URL.
func ExtractDomain(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.Replace(u.Hostname(), "www.", "", 1)
}

// NormalizeLink reduces link to lowercase host plus path, dropping the
// scheme, query and fragment. Unparseable links are only lowercased.
func NormalizeLink(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return strings.ToLower(link)
	}
	return strings.ToLower(u.Hostname() + u.EscapedPath())
}

// OrDefault returns s unless it is blank.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
