package search

import (
	"sort"
	"strings"
)

// Relevance adjustments applied by MergeAndRank.
const (
	OfficialBoost  = 0.5
	CommunityBoost = 0.3
	MentionBoost   = 0.2
	CareerBoost    = 0.3
	OffTopicMalus  = 0.4
)

const (
	officialDomain = "iitkgp.ac.in"
	careerDomain   = "cdc.iitkgp.ac.in"
)

var (
	communityDomains = []string{"metakgp.org", "kgpchronicle", "wiki.metakgp"}
	mentionTerms     = []string{"iit kharagpur", "iitkgp"}
	careerTitleTerms = []string{"placement", "career", "job", "internship"}
	medicalLinkTerms = []string{"hospital", "clinic", "doctor", "surgeon"}
	medicalTitle     = []string{"doctor", "surgeon"}
	medicalSnippet   = []string{"hospital", "medical"}
)

// Dedupe keeps the first result for every normalized link. The input is not
// modified.
func Dedupe(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		key := NormalizeLink(r.Link)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// MergeAndRank deduplicates results, adjusts relevance for institutional and
// off-topic signals and sorts by descending relevance. Ties keep their input
// order, so the caller's provider order decides.
func MergeAndRank(results []Result) []Result {
	unique := Dedupe(results)
	for i := range unique {
		unique[i].Relevance += Adjustment(unique[i])
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Relevance > unique[j].Relevance
	})
	return unique
}

// Adjustment returns the relevance delta MergeAndRank applies to r.
func Adjustment(r Result) float64 {
	link := strings.ToLower(r.Link)
	title := strings.ToLower(r.Title)
	snippet := strings.ToLower(r.Snippet)

	var delta float64
	if strings.Contains(link, officialDomain) {
		delta += OfficialBoost
	}
	if strings.Contains(link, careerDomain) && containsAny(title, careerTitleTerms...) {
		delta += CareerBoost
	}
	if containsAny(link, communityDomains...) {
		delta += CommunityBoost
	}
	if containsAny(title, mentionTerms...) || containsAny(snippet, mentionTerms...) {
		delta += MentionBoost
	}
	if containsAny(link, medicalLinkTerms...) || containsAny(title, medicalTitle...) || containsAny(snippet, medicalSnippet...) {
		delta -= OffTopicMalus
	}
	return delta
}
