package bing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v7.0/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "gymkhana" {
			t.Errorf("q = %q", got)
		}
		if r.URL.Query().Get("count") != "5" {
			t.Errorf("count = %q", r.URL.Query().Get("count"))
		}
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "key" {
			t.Error("missing subscription key")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"webPages":{"value":[
			{"name":"Technology Students Gymkhana","url":"https://www.iitkgp.ac.in/gymkhana","snippet":"TSG"},
			{"name":"Second","url":"https://example.com/b","snippet":"b"}]}}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "key", BaseURL: srv.URL})
	results, err := p.Search(context.Background(), "gymkhana")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	first := results[0]
	if first.Title != "Technology Students Gymkhana" || first.Source != "iitkgp.ac.in" || first.Engine != "bing" {
		t.Fatalf("unexpected first result %+v", first)
	}
	if results[1].Relevance >= first.Relevance {
		t.Fatalf("relevance should decay with position: %v >= %v", results[1].Relevance, first.Relevance)
	}
}

func TestSearchEmptyWebPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	results, err := New(Config{APIKey: "key", BaseURL: srv.URL}).Search(context.Background(), "x")
	if err != nil || len(results) != 0 {
		t.Fatalf("results = %v err = %v", results, err)
	}
}
