package agentic

import (
	"math"
	"strings"
	"testing"

	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/search"
)

func TestSynthesizeLocalOnly(t *testing.T) {
	res := Synthesize(SynthesisInput{
		Query:     "Where is the central library located on campus?",
		Documents: []RetrievedDocument{{ID: "lib", Content: "The central library sits next to the main building.", Score: 0.9}},
	})
	ctx := res.Context
	if ctx.Confidence < 0.7 {
		t.Fatalf("confidence = %v, want >= 0.7", ctx.Confidence)
	}
	if res.RequiresClarification {
		t.Fatal("clarification requested although evidence exists")
	}
	if len(ctx.LocalKnowledge) != 1 || !strings.HasPrefix(ctx.LocalKnowledge[0], "[Local KB] ") {
		t.Fatalf("local knowledge = %v", ctx.LocalKnowledge)
	}
	if !strings.Contains(ctx.CombinedContext, "**Local Knowledge Base (1 sources):**") {
		t.Fatalf("combined context = %q", ctx.CombinedContext)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0] != "Local knowledge base has relevant information" {
		t.Fatalf("recommendations = %v", res.Recommendations)
	}
}

func TestSynthesizeFiltersByThreshold(t *testing.T) {
	res := Synthesize(SynthesisInput{
		Query: "hall fees for the current semester",
		Documents: []RetrievedDocument{
			{Content: "kept", Score: 0.51},
			{Content: "dropped", Score: 0.5},
		},
		WebResults: []search.Result{
			{Title: "Kept", Snippet: "fees", Relevance: 0.61},
			{Title: "Dropped", Snippet: "fees", Relevance: 0.6},
		},
		WebSearchEnabled: true,
	})
	if len(res.Context.LocalKnowledge) != 1 || len(res.Context.WebInsights) != 1 {
		t.Fatalf("local = %v web = %v", res.Context.LocalKnowledge, res.Context.WebInsights)
	}
	if res.Context.WebInsights[0] != "[Web] Kept: fees" {
		t.Fatalf("web insight = %q", res.Context.WebInsights[0])
	}
	if math.Abs(res.Context.Confidence-0.9) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.9", res.Context.Confidence)
	}
}

func TestSynthesizeIgnoresWebWhenDisabled(t *testing.T) {
	res := Synthesize(SynthesisInput{
		Query:      "hall fees for the current semester",
		WebResults: []search.Result{{Title: "t", Snippet: "s", Relevance: 0.9}},
	})
	if len(res.Context.WebInsights) != 0 {
		t.Fatalf("web insights used although disabled: %v", res.Context.WebInsights)
	}
	if res.Context.Confidence != 0.5 {
		t.Fatalf("confidence = %v", res.Context.Confidence)
	}
	if res.Context.CombinedContext != noEvidence {
		t.Fatalf("combined = %q", res.Context.CombinedContext)
	}
}

func TestSynthesizeTruncatesPreviews(t *testing.T) {
	long := strings.Repeat("x", 250)
	res := Synthesize(SynthesisInput{
		Query:            "a long enough question here",
		Documents:        []RetrievedDocument{{Content: long, Score: 0.8}},
		WebResults:       []search.Result{{Title: "T", Snippet: long, Relevance: 0.9}},
		WebSearchEnabled: true,
	})
	if want := "[Local KB] " + strings.Repeat("x", 200) + "..."; res.Context.LocalKnowledge[0] != want {
		t.Fatalf("local preview length = %d", len(res.Context.LocalKnowledge[0]))
	}
	if want := "[Web] T: " + strings.Repeat("x", 150) + "..."; res.Context.WebInsights[0] != want {
		t.Fatalf("web preview length = %d", len(res.Context.WebInsights[0]))
	}
}

func TestSynthesizeConflicts(t *testing.T) {
	res := Synthesize(SynthesisInput{
		Query: "placement trend over the years",
		Documents: []RetrievedDocument{
			{Content: "Placements saw an increase and offers were excellent.", Score: 0.9},
		},
		WebResults: []search.Result{
			{Title: "Report", Snippet: "Offers fall sharply; the outlook is poor.", Relevance: 0.9},
		},
		WebSearchEnabled: true,
	})
	if got := len(res.Context.ConflictingInfo); got != 2 {
		t.Fatalf("conflicts = %d, want 2 (%v)", got, res.Context.ConflictingInfo)
	}
	// 0.5 + 0.2 + 0.1 + 0.1 - 0.2
	if math.Abs(res.Context.Confidence-0.7) > 1e-9 {
		t.Fatalf("confidence = %v", res.Context.Confidence)
	}
	if !strings.Contains(res.Context.CombinedContext, "**Note:**") {
		t.Fatal("conflict note missing")
	}
	if !strings.Contains(res.Context.Reasoning, "Detected 2 potential conflicts") {
		t.Fatalf("reasoning = %q", res.Context.Reasoning)
	}
}

func TestSynthesizeClarificationIsLastResort(t *testing.T) {
	tests := []struct {
		name  string
		in    SynthesisInput
		want  bool
		extra int
	}{
		{"vague without evidence", SynthesisInput{Query: "what?"}, true, 0},
		{"how to without evidence", SynthesisInput{Query: "how to guide"}, true, 2},
		{"vague with evidence", SynthesisInput{Query: "what?", Documents: []RetrievedDocument{{Content: "c", Score: 0.9}}}, false, 0},
		{"specific without evidence", SynthesisInput{Query: "timings of the gymkhana swimming pool"}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Synthesize(tt.in)
			if res.RequiresClarification != tt.want {
				t.Fatalf("requiresClarification = %v, want %v", res.RequiresClarification, tt.want)
			}
			if tt.want && len(res.ClarificationQuestions) != 2+tt.extra {
				t.Fatalf("questions = %v", res.ClarificationQuestions)
			}
			if !tt.want && res.ClarificationQuestions != nil {
				t.Fatalf("questions without clarification: %v", res.ClarificationQuestions)
			}
		})
	}
}

func TestSynthesizeMentionsHistory(t *testing.T) {
	res := Synthesize(SynthesisInput{
		Query:   "tell me more about his research",
		History: []message.Message{message.New(message.RoleUser, "who is the director")},
	})
	if !strings.HasSuffix(res.Context.Reasoning, "Considered conversation context to provide relevant follow-up information.") {
		t.Fatalf("reasoning = %q", res.Context.Reasoning)
	}
}
