package agentic

import (
	"time"

	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/search"
)

// Intent is the classifier's judgement of how much work a query needs.
type Intent string

const (
	IntentSimple   Intent = "simple"
	IntentLocal    Intent = "local"
	IntentInternet Intent = "internet"
	IntentHybrid   Intent = "hybrid"
)

// QueryAnalysis is produced once per query by the classifier.
type QueryAnalysis struct {
	Intent               Intent   `json:"intent"`
	Confidence           float64  `json:"confidence"`
	Reasoning            string   `json:"reasoning"`
	Keywords             []string `json:"keywords"`
	RequiresWebSearch    bool     `json:"requiresWebSearch"`
	RequiresFullPipeline bool     `json:"requiresFullPipeline"`
}

// Request is one orchestration input. History is read-only.
type Request struct {
	Query           string            `json:"query"`
	EnableWebSearch bool              `json:"enableWebSearch"`
	IsFirstMessage  bool              `json:"isFirstMessage"`
	History         []message.Message `json:"conversationHistory"`
}

// RetrievedDocument is one passage returned by the knowledge base.
type RetrievedDocument struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
	Source   string         `json:"source"`
}

// RetrievalResult holds the ranked passages for one query.
type RetrievalResult struct {
	Documents  []RetrievedDocument `json:"documents"`
	TotalFound int                 `json:"totalFound"`
	Query      string              `json:"query"`
	SearchTime time.Duration       `json:"searchTime"`
}

// SynthesizedContext is the evidence bundle handed to the answer generator.
type SynthesizedContext struct {
	LocalKnowledge  []string `json:"localKnowledge"`
	WebInsights     []string `json:"webInsights"`
	ConflictingInfo []string `json:"conflictingInfo"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	CombinedContext string   `json:"combinedContext"`
}

// ReasoningResult is the synthesizer's output.
type ReasoningResult struct {
	Context                SynthesizedContext `json:"context"`
	Recommendations        []string           `json:"recommendations"`
	RequiresClarification  bool               `json:"requiresClarification"`
	ClarificationQuestions []string           `json:"clarificationQuestions,omitempty"`
}

// Canned response categories.
const (
	ResponseGreeting       = "greeting"
	ResponseAcknowledgment = "acknowledgment"
	ResponseSystemInfo     = "system_info"
	ResponseGoodbye        = "goodbye"
	ResponseHelp           = "help"
)

// SimpleResponse is a canned answer for a trivial query.
type SimpleResponse struct {
	Response       string
	Confidence     float64
	Sources        []string
	ResponseType   string
	ProcessingTime time.Duration
}

// Answer converts the canned response to the caller-facing payload.
func (r *SimpleResponse) Answer() Answer {
	return Answer{
		Response:   r.Response,
		Confidence: r.Confidence,
		Sources:    r.Sources,
		Metadata: map[string]any{
			"responseType":   r.ResponseType,
			"processingTime": r.ProcessingTime.Milliseconds(),
		},
	}
}

// GenerationMetadata describes one model answer.
type GenerationMetadata struct {
	Model          string
	TokensUsed     int
	GenerationTime time.Duration
}

// SummarizedResponse is the answer generator's output.
type SummarizedResponse struct {
	Response   string
	Confidence float64
	Sources    []string
	Metadata   GenerationMetadata
}

// Answer converts the generated response to the caller-facing payload.
func (r *SummarizedResponse) Answer() Answer {
	return Answer{
		Response:   r.Response,
		Confidence: r.Confidence,
		Sources:    r.Sources,
		Metadata: map[string]any{
			"model":          r.Metadata.Model,
			"tokensUsed":     r.Metadata.TokensUsed,
			"generationTime": r.Metadata.GenerationTime.Milliseconds(),
		},
	}
}

// Answer is the response payload whichever path produced it.
type Answer struct {
	Response   string         `json:"response"`
	Confidence float64        `json:"confidence"`
	Sources    []string       `json:"sources"`
	Metadata   map[string]any `json:"metadata"`
}

// Timeline stage keys. A stage appears only when it ran.
const (
	StageQueryUnderstanding = "queryUnderstanding"
	StageSimpleResponse     = "simpleResponse"
	StageRetrieval          = "retrieval"
	StageWebSearch          = "webSearch"
	StageReasoning          = "reasoning"
	StageSummarization      = "summarization"
)

// Timeline maps stage keys to how long each stage took.
type Timeline map[string]time.Duration

// Millis renders the timeline in milliseconds.
func (t Timeline) Millis() map[string]int64 {
	out := make(map[string]int64, len(t))
	for stage, d := range t {
		out[stage] = d.Milliseconds()
	}
	return out
}

// OrchestrationResult is everything one request produced.
type OrchestrationResult struct {
	Response            Answer
	QueryAnalysis       QueryAnalysis
	Retrieval           *RetrievalResult
	WebSearch           *search.Response
	Reasoning           *ReasoningResult
	TotalProcessingTime time.Duration
	AgentTimeline       Timeline
	IsSimpleResponse    bool
}
