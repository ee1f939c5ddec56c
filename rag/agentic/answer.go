package agentic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweetpotato0/kgpgpt/agent"
	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/prompt"
	"github.com/sweetpotato0/kgpgpt/rag/tokenizer"
)

// Sources reported by the answer generator.
const (
	SourceLocalKnowledge = "Local Knowledge Base"
	SourceWebResults     = "Web Search Results"
)

// FallbackResponse is returned when the model call fails.
const FallbackResponse = "I apologize, but I encountered an error while generating a response. Please try rephrasing your question or check your internet connection."

// FallbackConfidence is the confidence of FallbackResponse.
const FallbackConfidence = 0.1

const historyTurns = 4

// GenerateInput is what the answer generator needs for one query.
type GenerateInput struct {
	Query            string
	Reasoning        *ReasoningResult
	WebSearchEnabled bool
	IsFirstMessage   bool
	History          []message.Message
}

// Generator turns an evidence bundle into the final answer with one model
// call. It never returns an error: failures become FallbackResponse.
type Generator struct {
	agent    *agent.Agent
	prompts  *prompt.Manager
	template string
	tokens   tokenizer.Counter
	logger   *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithPromptManager renders prompts from m instead of a private manager.
func WithPromptManager(m *prompt.Manager) GeneratorOption {
	return func(g *Generator) {
		if m != nil {
			g.prompts = m
		}
	}
}

// WithAnswerTemplate replaces the answer prompt. The template receives a
// prompt.AnswerData.
func WithAnswerTemplate(content string) GeneratorOption {
	return func(g *Generator) {
		g.template = content
	}
}

// WithTokenCounter sets the counter used for the tokensUsed metadata.
func WithTokenCounter(c tokenizer.Counter) GeneratorOption {
	return func(g *Generator) {
		g.tokens = c
	}
}

// WithGeneratorLogger overrides the component logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGenerator creates a generator calling the model through a.
func NewGenerator(a *agent.Agent, opts ...GeneratorOption) (*Generator, error) {
	if a == nil {
		return nil, fmt.Errorf("answer generator requires an agent")
	}
	g := &Generator{
		agent:  a,
		logger: logging.WithComponent("answer_generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.prompts == nil {
		g.prompts = prompt.NewManager()
	}
	if g.template != "" {
		if err := g.prompts.Set(prompt.AnswerTemplateName, g.template); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Generate renders the answer prompt and calls the model once. Confidence is
// the synthesizer's; it is not recomputed.
func (g *Generator) Generate(ctx context.Context, in GenerateInput) *SummarizedResponse {
	start := time.Now()
	reasoning := in.Reasoning
	if reasoning == nil {
		reasoning = &ReasoningResult{}
	}

	text, err := g.answer(ctx, in, reasoning)
	if err != nil {
		g.logger.Error("answer generation failed, using fallback", "error", err, "query", logging.Trim(in.Query, 120))
		return &SummarizedResponse{
			Response:   FallbackResponse,
			Confidence: FallbackConfidence,
			Sources:    []string{},
			Metadata: GenerationMetadata{
				Model:          g.agent.Model(),
				GenerationTime: time.Since(start),
			},
		}
	}

	elapsed := time.Since(start)
	g.logger.Info("answer generated",
		"elapsed", elapsed,
		"confidence", reasoning.Context.Confidence,
		"web_search", in.WebSearchEnabled,
	)
	return &SummarizedResponse{
		Response:   text,
		Confidence: reasoning.Context.Confidence,
		Sources:    evidenceSources(reasoning.Context),
		Metadata: GenerationMetadata{
			Model:          g.agent.Model(),
			TokensUsed:     tokenizer.Count(g.tokens, text),
			GenerationTime: elapsed,
		},
	}
}

func (g *Generator) answer(ctx context.Context, in GenerateInput, reasoning *ReasoningResult) (string, error) {
	data := prompt.AnswerData{
		Query:           in.Query,
		Context:         reasoning.Context.CombinedContext,
		Analysis:        reasoning.Context.Reasoning,
		Recommendations: reasoning.Recommendations,
		IsFirstMessage:  in.IsFirstMessage,
		Greeting:        prompt.FirstMessageGreeting,
	}
	if data.Context == "" {
		data.Context = "No specific context available"
	}
	if data.Analysis == "" {
		data.Analysis = "Processing query based on available information"
	}
	if reasoning.RequiresClarification {
		data.Clarification = reasoning.ClarificationQuestions
	}
	for _, turn := range message.Recent(in.History, historyTurns) {
		data.History = append(data.History, prompt.HistoryLine{Speaker: turn.Speaker(), Content: turn.Content})
	}

	rendered, err := g.prompts.Render(prompt.AnswerTemplateName, data)
	if err != nil {
		return "", err
	}
	return g.agent.Run(ctx, rendered)
}

// Ping checks the model answers a trivial prompt.
func (g *Generator) Ping(ctx context.Context) error {
	return g.agent.Ping(ctx)
}

func evidenceSources(c SynthesizedContext) []string {
	sources := make([]string, 0, 2)
	if len(c.LocalKnowledge) > 0 {
		sources = append(sources, SourceLocalKnowledge)
	}
	if len(c.WebInsights) > 0 {
		sources = append(sources, SourceWebResults)
	}
	return sources
}
