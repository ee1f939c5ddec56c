package agentic

import (
	"regexp"
	"strings"
)

// simplePhrases are whole-input matches that never need the pipeline.
var simplePhrases = compileAll(
	`^(hi|hello|hey|good morning|good afternoon|good evening|good night)$`,
	`^(hi there|hello there|hey there)$`,
	`^(yes|no|ok|okay|sure|alright|fine|good|great|thanks|thank you)$`,
	`^(yes please|no thanks|no thank you)$`,
	`^(what can you do|what are you|who are you|help|how are you)$`,
	`^(what is this|what is kgp gpt|what is this system)$`,
	`^(got it|understood|i see|i understand|noted)$`,
	`^(start over|reset|clear|new conversation)$`,
	`^(bye|goodbye|see you|take care)$`,
	`^(test|testing|check)$`,
)

// domainTerms keep a one- or two-word query on the full pipeline.
var domainTerms = regexp.MustCompile(`(?i)chakladar|professor|faculty|department|hall|mess|tsg|fest|iit|kgp|kharagpur|admission|placement|exam|course|student|research`)

var webPatterns = compileAll(
	// identity
	`who is|who are|who was|who were`,
	`tell me about|information about|details about`,
	`what is|what are|what was|what were`,
	`biography|profile|background|history`,
	// recency
	`current|recent|latest|today|yesterday|this week|this month|this year|now`,
	`news|update|trend|trending|popular|viral|breaking`,
	`weather|stock|price|market|forecast|live`,
	`real.?time|live|happening|ongoing`,
	`\d{4}|\d{2}/\d{2}|\d{2}-\d{2}`,
	`what.?happened|what.?going.?on|current events`,
	// this year's campus events
	`admission.?2024|admission.?2025|current admission|this year admission`,
	`placement.?2024|placement.?2025|current placement|this year placement`,
	`festival.?2024|festival.?2025|current festival|this year festival`,
	`exam.?schedule.?2024|exam.?schedule.?2025|current exam schedule`,
	`holiday.?list.?2024|holiday.?list.?2025|current holiday list`,
	`academic.?calendar.?2024|academic.?calendar.?2025|current academic calendar`,
	`latest|recent|current|upcoming|next|future`,
	`announcement|notification|update|change|modification`,
)

var hybridPatterns = compileAll(
	`compare|difference|versus|vs|between|among`,
	`both|and|also|additionally|moreover|furthermore`,
	`context|background|history|evolution|development`,
	`how.?to|guide|tutorial|steps|procedure`,
	`best|top|ranking|comparison|which is better`,
	`facilities|amenities|infrastructure|campus life`,
	`departments|programs|courses|specializations`,
	`student life|activities|clubs|organizations`,
	`accommodation|hostels|halls|residence`,
	`transportation|connectivity|location|access`,
	// staff titles and common surnames point at a person lookup
	`professor|faculty|teacher|instructor|lecturer`,
	`chakladar|kumar|singh|patel|sharma|verma|gupta`,
	`research|publication|paper|conference|journal`,
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the a an and or but in on at to for of with by is are was were be been
		have has had do does did will would could should may might can what when where why how who which
		that this these those`) {
		stopWords[w] = struct{}{}
	}
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Classify maps raw query text to an analysis. It is a pure function of its
// input; callers reject empty queries first.
func Classify(query string) QueryAnalysis {
	analysis := QueryAnalysis{Keywords: ExtractKeywords(query)}

	switch {
	case IsSimple(query):
		analysis.Intent = IntentSimple
		analysis.Confidence = 0.95
		analysis.Reasoning = "Simple greeting or basic interaction - no complex processing needed"
		return analysis
	case matchAny(webPatterns, query):
		analysis.Intent = IntentInternet
		analysis.Confidence = 0.9
		analysis.RequiresWebSearch = true
		analysis.Reasoning = "Query requires current/recent information or external data"
	case matchAny(hybridPatterns, query):
		analysis.Intent = IntentHybrid
		analysis.Confidence = 0.7
		analysis.RequiresWebSearch = true
		analysis.Reasoning = "Query benefits from both local knowledge and current information"
	default:
		analysis.Intent = IntentLocal
		analysis.Confidence = 0.8
		analysis.Reasoning = "Query can be answered from local knowledge base"
	}
	analysis.RequiresFullPipeline = true
	return analysis
}

// IsSimple reports whether query is chit-chat: a known short phrase, or at
// most two words none of which is a campus term.
func IsSimple(query string) bool {
	normalized := strings.ToLower(strings.TrimSpace(query))
	if matchAny(simplePhrases, normalized) {
		return true
	}
	if len(strings.Fields(normalized)) <= 2 {
		return !domainTerms.MatchString(normalized)
	}
	return false
}

// ExtractKeywords lowercases query, strips punctuation and drops stop words
// and tokens of two characters or fewer. Source order and duplicates are kept.
func ExtractKeywords(query string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(query), "")
	keywords := make([]string, 0)
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}
