package search

import (
	"regexp"
	"strings"

	"github.com/sweetpotato0/kgpgpt/message"
)

// InstitutionName is appended to queries that lack institutional context.
const InstitutionName = "IIT Kharagpur"

var (
	followUpPattern = regexp.MustCompile(`(?i)\b(his|her|their|him|them|this|that|more|details)\b`)
	titledName      = regexp.MustCompile(`(?:Professor|Prof\.?|Dr\.?)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)
	directorName    = regexp.MustCompile(`[Dd]irector\b.*?(?:\bis|:)\s+(?:(?:Professor|Prof\.?|Dr\.?)\s+)?([A-Z][a-z]+(?:\s+[A-Z][a-z]+)+)`)

	institutionTerms = []string{"iit", "kharagpur", "kgp"}
	roleTerms        = []string{"professor", "faculty", "teacher", "director", "prof.", "dr."}
	surnameTerms     = []string{
		"chakladar", "chakraborty", "kumar", "singh", "patel", "sharma",
		"verma", "gupta", "tewari", "goyal", "banerjee", "chatterjee",
	}
	campusTerms = []string{
		"department", "school of", "vgsom", "rgsoipl", "hall", "mess", "tsg",
		"library", "campus", "entrepreneurship school", "quality school",
		"telecommunications school", "infrastructure school",
	}
	detailTerms = []string{"details", "about", "information"}
)

// EnhanceQuery rewrites query for web search. Follow-up questions are pointed
// at the person named in the last three turns; queries about staff, campus
// places or common surnames gain the institution name; detail requests gain
// "official".
func EnhanceQuery(query string, history []message.Message) string {
	if followUpPattern.MatchString(query) && len(history) > 0 {
		if name := recentEntity(history); name != "" {
			return name
		}
	}

	lower := strings.ToLower(query)
	enhanced := query
	if !containsAny(lower, institutionTerms...) &&
		(containsAny(lower, roleTerms...) || containsAny(lower, surnameTerms...) || containsAny(lower, campusTerms...)) {
		enhanced = query + " " + InstitutionName
	}

	if containsAny(lower, detailTerms...) && !strings.Contains(enhanced, "official") && !strings.Contains(enhanced, "bio") {
		enhanced += " official"
	}
	return enhanced
}

// recentEntity scans the newest three turns, most recent first, and returns a
// targeted query for the first titled name or named director it finds.
func recentEntity(history []message.Message) string {
	for _, turn := range message.Newest(history, 3) {
		if m := titledName.FindStringSubmatch(turn.Content); m != nil {
			return m[1] + " " + InstitutionName + " professor details"
		}
		if strings.Contains(strings.ToLower(turn.Content), "director") {
			if m := directorName.FindStringSubmatch(turn.Content); m != nil {
				return m[1] + " " + InstitutionName + " director professor details"
			}
		}
	}
	return ""
}

var (
	staffTerms = []string{
		"professor", "prof.", "prof ", "dr.", "dr ", "faculty", "teacher",
		"director", "head of department", "hod", "school of", "vgsom", "rgsoipl",
		"department of", "dept of", "entrepreneurship", "quality and reliability",
		"telecommunications", "infrastructure design", "erp", "library",
		"central library", "gymkhana", "tsg",
	}
	careerTerms = []string{
		"cdc", "career development cell", "placement", "internship", "recruiter",
		"company visit", "campus placement",
	}
)

// IsCareerQuery reports whether query is about placements, internships or the
// career development cell.
func IsCareerQuery(query string) bool {
	lower := strings.ToLower(query)
	if containsAny(lower, careerTerms...) {
		return true
	}
	return strings.Contains(lower, "job") && containsAny(lower, "campus", "iit")
}

// IsStaffQuery reports whether query looks up a person, school or office of
// the institution. Career queries are never staff queries.
func IsStaffQuery(query string) bool {
	if IsCareerQuery(query) {
		return false
	}
	return containsAny(strings.ToLower(query), staffTerms...)
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
