package search

import (
	"math"
	"reflect"
	"testing"
)

func TestDedupeStripsTrackingParameters(t *testing.T) {
	results := []Result{
		{Title: "first", Link: "http://x.org/a", Relevance: 0.5},
		{Title: "second", Link: "http://x.org/a?utm=1", Relevance: 0.9},
	}
	got := Dedupe(results)
	if len(got) != 1 || got[0].Title != "first" {
		t.Fatalf("Dedupe = %+v, want only the first occurrence", got)
	}
}

func TestMergeAndRankIdempotentUnderDuplication(t *testing.T) {
	base := []Result{
		{Title: "Dept page", Link: "https://www.iitkgp.ac.in/department/CS", Snippet: "Computer Science at IIT Kharagpur", Relevance: 0.6},
		{Title: "Wiki", Link: "https://wiki.metakgp.org/w/Halls", Snippet: "Halls of residence", Relevance: 0.7},
		{Title: "Dr. Jane Doe, Surgeon", Link: "https://citydoctors.example/jane", Snippet: "Best hospital in town", Relevance: 1.0},
		{Title: "News", Link: "https://news.example/item", Snippet: "Something", Relevance: 0.8},
	}
	once := MergeAndRank(base)

	tripled := append(append(append([]Result{}, base...), base...), base...)
	again := MergeAndRank(tripled)

	if !reflect.DeepEqual(once, again) {
		t.Fatalf("ranking changed under duplication:\n once=%+v\nagain=%+v", once, again)
	}
	if base[0].Relevance != 0.6 {
		t.Fatal("MergeAndRank mutated its input")
	}
}

func TestMergeAndRankBoosts(t *testing.T) {
	results := []Result{
		{Title: "Generic", Link: "https://example.com/x", Snippet: "plain", Relevance: 0.9},
		{Title: "Placement stats", Link: "https://cdc.iitkgp.ac.in/stats", Snippet: "plain", Relevance: 0.2},
		{Title: "Dr. Sharma clinic", Link: "https://clinic.example/sharma", Snippet: "medical practice", Relevance: 1.0},
		{Title: "KGP chronicle", Link: "https://kgpchronicle.example/story", Snippet: "plain", Relevance: 0.5},
	}
	ranked := MergeAndRank(results)

	want := map[string]float64{
		"Placement stats":   0.2 + OfficialBoost + CareerBoost,
		"Generic":           0.9,
		"KGP chronicle":     0.5 + CommunityBoost,
		"Dr. Sharma clinic": 1.0 - OffTopicMalus,
	}
	order := []string{"Placement stats", "Generic", "KGP chronicle", "Dr. Sharma clinic"}
	for i, r := range ranked {
		if r.Title != order[i] {
			t.Fatalf("rank %d = %q, want %q", i, r.Title, order[i])
		}
		if math.Abs(r.Relevance-want[r.Title]) > 1e-9 {
			t.Errorf("%s relevance = %v, want %v", r.Title, r.Relevance, want[r.Title])
		}
	}
}

func TestMergeAndRankStableTies(t *testing.T) {
	results := []Result{
		{Title: "a", Link: "https://a.example", Relevance: 0.5},
		{Title: "b", Link: "https://b.example", Relevance: 0.5},
		{Title: "c", Link: "https://c.example", Relevance: 0.5},
	}
	ranked := MergeAndRank(results)
	for i, want := range []string{"a", "b", "c"} {
		if ranked[i].Title != want {
			t.Fatalf("tie order = %v", ranked)
		}
	}
}

func TestAdjustmentMention(t *testing.T) {
	r := Result{Title: "About", Link: "https://example.com", Snippet: "Founded near IIT Kharagpur"}
	if got := Adjustment(r); math.Abs(got-MentionBoost) > 1e-9 {
		t.Fatalf("Adjustment = %v, want %v", got, MentionBoost)
	}
}
