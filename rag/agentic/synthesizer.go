package agentic

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/search"
)

// Evidence thresholds and preview lengths.
const (
	MinDocumentScore  = 0.5
	MinWebRelevance   = 0.6
	localPreviewRunes = 200
	webPreviewRunes   = 150
)

const (
	noEvidence         = "Limited information available from both local knowledge base and web search."
	conflictNote       = "**Note:** Some conflicting information was detected. I've prioritized the most current and authoritative sources.\n\n"
	contradictionFound = "Potential contradiction detected between positive and negative information"
)

// polarityPairs are the antonym families checked for contradictions.
var polarityPairs = []struct {
	positive, negative []string
}{
	{[]string{"good", "excellent", "positive", "benefit"}, []string{"bad", "poor", "negative", "harm"}},
	{[]string{"increase", "rise", "grow"}, []string{"decrease", "fall", "decline"}},
	{[]string{"support", "agree", "confirm"}, []string{"oppose", "disagree", "refute"}},
}

var evidenceStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// SynthesisInput is what the synthesizer reconciles for one query.
type SynthesisInput struct {
	Query            string
	Documents        []RetrievedDocument
	WebResults       []search.Result
	WebSearchEnabled bool
	History          []message.Message
}

// Synthesize merges local passages and web hits into one evidence bundle. It
// is deterministic and never fails.
func Synthesize(in SynthesisInput) *ReasoningResult {
	local := localInsights(in.Documents)
	var web []string
	if in.WebSearchEnabled {
		web = webInsights(in.WebResults)
	}
	conflicts := detectConflicts(local, web)

	result := &ReasoningResult{
		Context: SynthesizedContext{
			LocalKnowledge:  local,
			WebInsights:     web,
			ConflictingInfo: conflicts,
			Confidence:      evidenceConfidence(local, web, conflicts),
			Reasoning:       explain(local, web, conflicts, len(in.History) > 0),
			CombinedContext: combine(local, web, conflicts),
		},
		Recommendations: recommend(local, web, conflicts),
	}
	if len(local) == 0 && len(web) == 0 && isVague(in.Query) {
		result.RequiresClarification = true
		result.ClarificationQuestions = clarificationQuestions(in.Query)
	}
	return result
}

func localInsights(docs []RetrievedDocument) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Score > MinDocumentScore {
			out = append(out, "[Local KB] "+preview(doc.Content, localPreviewRunes))
		}
	}
	return out
}

func webInsights(results []search.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Relevance > MinWebRelevance {
			out = append(out, "[Web] "+r.Title+": "+preview(r.Snippet, webPreviewRunes))
		}
	}
	return out
}

// preview keeps the first limit runes, marking a cut with "...".
func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) < limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func evidenceKeywords(text string) map[string]struct{} {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), "")
	out := make(map[string]struct{})
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := evidenceStopWords[word]; stop {
			continue
		}
		out[word] = struct{}{}
	}
	return out
}

// detectConflicts flags every antonym family with words from both poles
// anywhere in the evidence. It is a coarse heuristic.
func detectConflicts(local, web []string) []string {
	keywords := evidenceKeywords(strings.Join(local, " ") + " " + strings.Join(web, " "))
	has := func(words []string) bool {
		for _, w := range words {
			if _, ok := keywords[w]; ok {
				return true
			}
		}
		return false
	}
	conflicts := make([]string, 0)
	for _, pair := range polarityPairs {
		if has(pair.positive) && has(pair.negative) {
			conflicts = append(conflicts, contradictionFound)
		}
	}
	return conflicts
}

func evidenceConfidence(local, web, conflicts []string) float64 {
	confidence := 0.5
	if len(local) > 0 {
		confidence += 0.2
	}
	if len(web) > 0 {
		confidence += 0.1
	}
	if len(local) > 0 && len(web) > 0 {
		confidence += 0.1
	}
	confidence -= float64(len(conflicts)) * 0.1
	return search.Clamp(confidence, 0.1, 1.0)
}

func explain(local, web, conflicts []string, hasHistory bool) string {
	var reasoning string
	switch {
	case len(local) > 0 && len(web) > 0:
		reasoning = fmt.Sprintf("Combined local knowledge base (%d sources) with current web information (%d sources) to provide comprehensive answer.", len(local), len(web))
	case len(local) > 0:
		reasoning = fmt.Sprintf("Used local IIT Kharagpur knowledge base (%d sources) for authoritative campus information.", len(local))
	case len(web) > 0:
		reasoning = fmt.Sprintf("Relied on current web information (%d sources) as local knowledge base had limited relevant data.", len(web))
	default:
		reasoning = noEvidence
	}
	if len(conflicts) > 0 {
		reasoning += fmt.Sprintf(" Detected %d potential conflicts between sources - prioritized most recent and authoritative information.", len(conflicts))
	}
	if hasHistory {
		reasoning += " Considered conversation context to provide relevant follow-up information."
	}
	return reasoning
}

func combine(local, web, conflicts []string) string {
	var b strings.Builder
	section := func(heading string, items []string) {
		fmt.Fprintf(&b, "**%s (%d sources):**\n", heading, len(items))
		for i, item := range items {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("• " + item)
		}
		b.WriteString("\n\n")
	}
	if len(local) > 0 {
		section("Local Knowledge Base", local)
	}
	if len(web) > 0 {
		section("Current Web Information", web)
	}
	if len(conflicts) > 0 {
		b.WriteString(conflictNote)
	}
	if b.Len() == 0 {
		return noEvidence
	}
	return b.String()
}

func recommend(local, web, conflicts []string) []string {
	recs := make([]string, 0)
	if len(local) == 0 {
		recs = append(recs, "Consider enabling web search for current information")
	}
	if len(web) == 0 && len(local) > 0 {
		recs = append(recs, "Local knowledge base has relevant information")
	}
	if len(conflicts) > 0 {
		recs = append(recs,
			"Verify information from multiple sources",
			"Consider the recency of web information vs local knowledge",
		)
	}
	if len(local) > 0 && len(web) > 0 {
		recs = append(recs, "Combining local knowledge with current web information")
	}
	return recs
}

// isVague holds for very short queries, or short ones built on "what" or "how".
func isVague(query string) bool {
	n := len([]rune(query))
	lower := strings.ToLower(query)
	return n < 10 ||
		(strings.Contains(lower, "what") && n < 15) ||
		(strings.Contains(lower, "how") && n < 15)
}

func clarificationQuestions(query string) []string {
	questions := []string{
		"Could you provide more specific details about what you're looking for?",
		"Are you looking for current information or historical data?",
	}
	if strings.Contains(query, "compare") || strings.Contains(query, "difference") {
		questions = append(questions,
			"What specific aspects would you like me to compare?",
			"Are you looking for a comparison between current and historical information?",
		)
	}
	if strings.Contains(query, "how to") || strings.Contains(query, "guide") {
		questions = append(questions,
			"What is your current skill level with this topic?",
			"Are you looking for step-by-step instructions or general guidance?",
		)
	}
	return questions
}
