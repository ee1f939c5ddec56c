package scholar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graph/v1/paper/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "bioinformatics kharagpur" || q.Get("limit") != "5" || q.Get("fields") != fields {
			t.Errorf("query params = %v", q)
		}
		if r.Header.Get("x-api-key") != "s2" {
			t.Error("missing api key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"title":"Gene networks","abstract":"We study networks.","url":"https://www.semanticscholar.org/p/1","year":2021,
			 "authors":[{"name":"A"},{"name":"B"},{"name":"C"},{"name":"D"}]},
			{"title":"Untitled abstract","url":"https://www.semanticscholar.org/p/2"}]}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "s2", BaseURL: srv.URL})
	if p.Name() != "academic" {
		t.Fatalf("Name = %q", p.Name())
	}
	results, err := p.Search(context.Background(), "bioinformatics kharagpur")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Source != source || !strings.HasPrefix(results[0].Snippet, "A, B, C et al. (2021) | ") {
		t.Fatalf("first result = %+v", results[0])
	}
	if !strings.Contains(results[1].Snippet, "No abstract available") {
		t.Fatalf("second snippet = %q", results[1].Snippet)
	}
	// position 1 scores 0.9, plus the academic boost, clamped
	if results[1].Relevance != 1.0 {
		t.Fatalf("academic relevance = %v", results[1].Relevance)
	}
}
