package agentic

import (
	"regexp"
	"strings"
	"time"
)

// Canned response source labels.
const (
	SourceSystemResponse = "System Response"
	SourceSystemInfo     = "System Information"
	SourceSystemHelp     = "System Help"
	SourceSystemTest     = "System Test"
)

type cannedReply struct {
	pattern    *regexp.Regexp
	text       string
	confidence float64
	source     string
	kind       string
}

func reply(pattern, text string, confidence float64, source, kind string) cannedReply {
	return cannedReply{
		pattern:    regexp.MustCompile(`(?i)` + pattern),
		text:       text,
		confidence: confidence,
		source:     source,
		kind:       kind,
	}
}

// Greetings are checked first; the order below is the match order.
var cannedReplies = []cannedReply{
	reply(`^(hi|hello|hey|good morning|good afternoon|good evening|good night)$`,
		"Hello! I'm KGP GPT, your AI assistant for IIT Kharagpur. I can help you with information about the institute, faculty, departments, campus life, and much more. What would you like to know?",
		0.95, SourceSystemResponse, ResponseGreeting),
	reply(`^(hi there|hello there|hey there)$`,
		"Hi there! 👋 I'm here to help you with anything related to IIT Kharagpur. Feel free to ask me about professors, departments, campus facilities, or any other questions you might have!",
		0.95, SourceSystemResponse, ResponseGreeting),
	reply(`^(yes|ok|okay|sure|alright|fine|good|great)$`,
		"Great! How can I assist you today?",
		0.9, SourceSystemResponse, ResponseAcknowledgment),
	reply(`^(thanks|thank you)$`,
		"You're welcome! Is there anything else I can help you with?",
		0.9, SourceSystemResponse, ResponseAcknowledgment),
	reply(`^(no|no thanks|no thank you)$`,
		"No problem! Feel free to ask if you need anything else.",
		0.9, SourceSystemResponse, ResponseAcknowledgment),
	reply(`^(what can you do|what are you|who are you)$`,
		"I'm KGP GPT, an AI assistant specialized in IIT Kharagpur information. I can help you with:\n\n"+
			"• Faculty and professor information\n• Department details and programs\n• Campus facilities and infrastructure\n"+
			"• Student life and activities\n• Admission and academic information\n• Research and publications\n• And much more!\n\n"+
			"Just ask me anything about IIT Kharagpur!",
		0.95, SourceSystemInfo, ResponseSystemInfo),
	reply(`^(what is this|what is kgp gpt|what is this system)$`,
		"KGP GPT is a multi-agent AI system designed specifically for IIT Kharagpur. It combines local knowledge from the institute's databases with real-time web search capabilities to provide comprehensive and accurate information about the institute, its faculty, students, and activities.",
		0.95, SourceSystemInfo, ResponseSystemInfo),
	reply(`^(help)$`,
		"I'm here to help! You can ask me about:\n\n"+
			"🏛️ **Institute Info**: Departments, programs, facilities\n👨‍🏫 **Faculty**: Professors, research, publications\n"+
			"🎓 **Academic**: Courses, admissions, exams\n🏠 **Campus Life**: Hostels, mess, activities, festivals\n"+
			"🔬 **Research**: Projects, labs, collaborations\n\n"+
			"Just type your question naturally - I'll understand and help you find the information you need!",
		0.95, SourceSystemHelp, ResponseHelp),
	reply(`^(how are you)$`,
		"I'm doing great, thank you for asking! I'm ready to help you with any questions about IIT Kharagpur. What would you like to know?",
		0.9, SourceSystemResponse, ResponseAcknowledgment),
	reply(`^(got it|understood|i see|i understand|noted)$`,
		"Perfect! Let me know if you need any clarification or have other questions.",
		0.9, SourceSystemResponse, ResponseAcknowledgment),
	reply(`^(bye|goodbye|see you|take care)$`,
		"Goodbye! Feel free to come back anytime if you have more questions about IIT Kharagpur. Have a great day! 👋",
		0.95, SourceSystemResponse, ResponseGoodbye),
	reply(`^(start over|reset|clear|new conversation)$`,
		"Sure! Starting fresh. How can I help you today?",
		0.9, SourceSystemResponse, ResponseAcknowledgment),
	reply(`^(test|testing|check)$`,
		"System is working perfectly! ✅ I'm ready to help you with IIT Kharagpur information. What would you like to know?",
		0.95, SourceSystemTest, ResponseAcknowledgment),
}

const (
	askForDetail = "I'm here to help! Could you tell me more about what you're looking for? I can assist with information about IIT Kharagpur's faculty, departments, campus life, and much more."
	introduction = "I'm KGP GPT, your AI assistant for IIT Kharagpur. I can help you with information about the institute, faculty, departments, and campus life. What specific information are you looking for?"
)

// Respond returns the canned answer for a query the classifier marked simple.
// It never fails.
func Respond(query string) *SimpleResponse {
	start := time.Now()
	normalized := strings.ToLower(strings.TrimSpace(query))

	resp := &SimpleResponse{
		Response:     introduction,
		Confidence:   0.8,
		Sources:      []string{SourceSystemResponse},
		ResponseType: ResponseSystemInfo,
	}
	matched := false
	for _, r := range cannedReplies {
		if r.pattern.MatchString(normalized) {
			resp.Response = r.text
			resp.Confidence = r.confidence
			resp.Sources = []string{r.source}
			resp.ResponseType = r.kind
			matched = true
			break
		}
	}
	if !matched && len(strings.Fields(normalized)) <= 2 {
		resp.Response = askForDetail
		resp.ResponseType = ResponseHelp
	}
	resp.ProcessingTime = time.Since(start)
	return resp
}
