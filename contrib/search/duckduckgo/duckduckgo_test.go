package duckduckgo

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchAbstractAndTopics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "IIT Kharagpur" || q.Get("format") != "json" || q.Get("no_html") != "1" || q.Get("skip_disambig") != "1" {
			t.Errorf("unexpected query %v", q)
		}
		// The real API answers with a javascript content type.
		w.Header().Set("Content-Type", "application/x-javascript")
		_, _ = w.Write([]byte(`{
			"Abstract":"IIT Kharagpur is a public technical university.",
			"Heading":"IIT Kharagpur",
			"AbstractURL":"https://en.wikipedia.org/wiki/IIT_Kharagpur",
			"RelatedTopics":[
				{"Text":"Nehru Museum - A museum on campus","FirstURL":"https://duckduckgo.com/Nehru_Museum"},
				{"Name":"Category","Topics":[]},
				{"Text":"Hijli - Detention camp","FirstURL":"https://duckduckgo.com/Hijli"},
				{"Text":"Kharagpur","FirstURL":"https://duckduckgo.com/Kharagpur"},
				{"Text":"Extra","FirstURL":"https://duckduckgo.com/Extra"}
			]}`))
	}))
	defer srv.Close()

	results, err := New(Config{Enabled: true, BaseURL: srv.URL}).Search(context.Background(), "IIT Kharagpur")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want abstract + 3 topics", len(results))
	}
	if results[0].Title != "IIT Kharagpur" || results[0].Relevance != 0.9 {
		t.Fatalf("abstract result = %+v", results[0])
	}
	wantTitles := []string{"Nehru Museum", "Hijli", "Kharagpur"}
	wantScores := []float64{0.7, 0.6, 0.5}
	for i, r := range results[1:] {
		if r.Title != wantTitles[i] {
			t.Errorf("topic %d title = %q, want %q", i, r.Title, wantTitles[i])
		}
		if math.Abs(r.Relevance-wantScores[i]) > 1e-9 {
			t.Errorf("topic %d relevance = %v, want %v", i, r.Relevance, wantScores[i])
		}
	}
}

func TestDisabledByDefault(t *testing.T) {
	if New(Config{}).Enabled() {
		t.Fatal("duckduckgo should be opt-in")
	}
}
