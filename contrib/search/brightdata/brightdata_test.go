package brightdata

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sweetpotato0/kgpgpt/search"
)

func TestIsPersonQuery(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"professor of mechanical engineering", true},
		{"Partha Chakrabarti", true},
		{"who heads the dean office", false},
		{"hall fees", false},
		{"IIT", false},
	}
	for _, tt := range tests {
		if got := IsPersonQuery(tt.query); got != tt.want {
			t.Errorf("IsPersonQuery(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestSearchRoutesPersonQueriesToProfiles(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer key" || r.Header.Get("X-Username") != "u" || r.Header.Get("X-Password") != "p" {
			t.Error("credentials missing")
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/linkedin/profile/search":
			var req profileRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if !req.IncludeEducation || req.MaxResults != 5 {
				t.Errorf("profile request = %+v", req)
			}
			_, _ = w.Write([]byte(`{"results":[{"name":"Jane Doe","url":"https://linkedin.com/in/jane",
				"city":"Kharagpur","position":"Professor",
				"current_company":{"name":"IIT Kharagpur","title":"Professor"},
				"education":[{"title":"PhD, MIT"}]}]}`))
		case "/web/search":
			_, _ = w.Write([]byte(`{"results":[{"title":"Hall fees","url":"https://hall.iitkgp.ac.in","description":"Fee table"}]}`))
		}
	}))
	defer srv.Close()

	p := New(Config{APIKey: "key", Username: "u", Password: "p", BaseURL: srv.URL})

	profiles, err := p.Search(context.Background(), "Jane Doe")
	if err != nil {
		t.Fatalf("profile search: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Profile == nil || profiles[0].Title != "Jane Doe - Professor" {
		t.Fatalf("profiles = %+v", profiles)
	}
	if !strings.Contains(profiles[0].Snippet, "Professor at IIT Kharagpur | Education: PhD, MIT | Location: Kharagpur") {
		t.Fatalf("snippet = %q", profiles[0].Snippet)
	}

	web, err := p.Search(context.Background(), "hall fees")
	if err != nil {
		t.Fatalf("web search: %v", err)
	}
	if len(web) != 1 || web[0].Snippet != "Fee table" || web[0].Profile != nil {
		t.Fatalf("web = %+v", web)
	}
	if strings.Join(paths, ",") != "/linkedin/profile/search,/web/search" {
		t.Fatalf("paths = %v", paths)
	}
}

func TestEnabledRequiresAllCredentials(t *testing.T) {
	if New(Config{APIKey: "k", Username: "u"}).Enabled() {
		t.Fatal("enabled without password")
	}
}

func TestProfileRelevance(t *testing.T) {
	p := search.Profile{Name: "Jane Doe", City: "Kharagpur", CurrentCompany: &search.Company{Name: "IIT Kharagpur", Title: "Professor"}}
	tests := []struct {
		query string
		index int
		want  float64
	}{
		{"jane doe", 3, 0.7 + 0.3},
		{"kharagpur", 4, 0.6 + 0.2 + 0.1},
		{"unrelated", 12, 0.1},
	}
	for _, tt := range tests {
		if got := ProfileRelevance(p, tt.query, tt.index); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ProfileRelevance(%q, %d) = %v, want %v", tt.query, tt.index, got, tt.want)
		}
	}
}

func TestProfileSnippetAboutTruncates(t *testing.T) {
	got := ProfileSnippet(search.Profile{About: strings.Repeat("a", 300)})
	if got != strings.Repeat("a", 200)+"..." {
		t.Fatalf("snippet = %q", got)
	}
	if ProfileSnippet(search.Profile{}) != "LinkedIn profile information available" {
		t.Fatal("empty profile fallback missing")
	}
}
