package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchPrependsDirectAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Query != "spring fest dates" || req.SearchDepth != "basic" || !req.IncludeAnswer || req.MaxResults != 5 {
			t.Errorf("unexpected request %+v", req)
		}
		if req.APIKey != "tv" || r.Header.Get("Authorization") != "Bearer tv" {
			t.Error("credentials not sent")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"Spring Fest runs in January.","results":[
			{"title":"Spring Fest 2025","url":"https://springfest.in","content":"The annual cultural fest."}]}`))
	}))
	defer srv.Close()

	results, err := New(Config{APIKey: "tv", BaseURL: srv.URL}).Search(context.Background(), "spring fest dates")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Title != "Direct Answer" || results[0].Link != "#" || results[0].Relevance != 1.0 {
		t.Fatalf("direct answer = %+v", results[0])
	}
	if results[1].Source != "springfest.in" {
		t.Fatalf("second source = %q", results[1].Source)
	}
}

func TestSearchWithoutAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"title":"t","url":"https://a.example","content":"c"}]}`))
	}))
	defer srv.Close()

	results, err := New(Config{APIKey: "tv", BaseURL: srv.URL}).Search(context.Background(), "q")
	if err != nil || len(results) != 1 || results[0].Title != "t" {
		t.Fatalf("results = %+v err = %v", results, err)
	}
}
