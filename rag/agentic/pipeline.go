// Package agentic implements the query-orchestration pipeline: classify the
// query, short-circuit trivial ones to a canned answer, otherwise retrieve
// local passages, fall back to web search when local evidence is weak,
// reconcile the evidence and generate the final answer.
package agentic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/graph"
	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/pkg/metrics"
	"github.com/sweetpotato0/kgpgpt/pkg/telemetry"
	"github.com/sweetpotato0/kgpgpt/search"
)

const runStateKey = "__kgpgpt_run"

// Graph node names.
const (
	nodeClassify  = "classify"
	nodeRoute     = "route"
	nodeCanned    = "canned"
	nodeRetrieve  = "retrieve"
	nodeDecideWeb = "decide_web"
	nodeWebSearch = "web_search"
	nodeSynthesis = "synthesize"
	nodeGenerate  = "generate"
	nodeEnd       = "end"
)

var timelineKeys = map[string]string{
	nodeClassify:  StageQueryUnderstanding,
	nodeCanned:    StageSimpleResponse,
	nodeRetrieve:  StageRetrieval,
	nodeWebSearch: StageWebSearch,
	nodeSynthesis: StageReasoning,
	nodeGenerate:  StageSummarization,
}

// KnowledgeRetriever fetches local passages.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query string) (*RetrievalResult, error)
	Ready(ctx context.Context) bool
}

// WebSearcher runs the multi-provider web search.
type WebSearcher interface {
	Search(ctx context.Context, query string, history []message.Message) (*search.Response, error)
	// ProviderStatus is one of search.StatusMissing, StatusLimited or StatusPresent.
	ProviderStatus() string
}

// AnswerGenerator produces the final answer. Generate must not fail.
type AnswerGenerator interface {
	Generate(ctx context.Context, in GenerateInput) *SummarizedResponse
	Ping(ctx context.Context) error
}

// Orchestrator drives one request through the pipeline. It keeps no state
// between requests and is safe for concurrent use.
type Orchestrator struct {
	cfg       *Config
	retriever KnowledgeRetriever
	web       WebSearcher
	generator AnswerGenerator
	logger    *slog.Logger
	metrics   *metrics.Recorder
}

// run is the per-request state carried through the graph.
type run struct {
	req       Request
	analysis  QueryAnalysis
	simple    *SimpleResponse
	retrieval *RetrievalResult
	web       *search.Response
	webRan    bool
	reasoning *ReasoningResult
	summary   *SummarizedResponse
	timeline  Timeline
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(retriever KnowledgeRetriever, web WebSearcher, generator AnswerGenerator, opts ...Option) (*Orchestrator, error) {
	if retriever == nil {
		return nil, fmt.Errorf("%w: knowledge retriever is required", kgperrors.ErrInvalidInput)
	}
	if web == nil {
		return nil, fmt.Errorf("%w: web searcher is required", kgperrors.ErrInvalidInput)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: answer generator is required", kgperrors.ErrInvalidInput)
	}
	cfg := applyOptions(opts)
	logger := cfg.logger
	if logger == nil {
		logger = logging.WithComponent("orchestrator").With("pipeline", cfg.Name)
	}
	o := &Orchestrator{
		cfg:       cfg,
		retriever: retriever,
		web:       web,
		generator: generator,
		logger:    logger,
		metrics:   cfg.metrics,
	}
	o.logger.Info("orchestrator initialised", "max_concurrent", cfg.runner.Capacity())
	return o, nil
}

// Process answers one request. Only a blank query or a failure escaping every
// stage-level recovery point returns an error; the latter wraps
// ErrOrchestration.
func (o *Orchestrator) Process(ctx context.Context, req Request) (result *OrchestrationResult, err error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, kgperrors.ErrEmptyQuery
	}

	start := time.Now()
	ctx, span := telemetry.StartStage(ctx, "orchestrate",
		attribute.Bool("web_search.enabled", req.EnableWebSearch),
		attribute.Int("history.turns", len(req.History)),
	)
	defer func() { telemetry.End(span, err) }()

	o.logger.Info("orchestration started", "query", logging.Trim(req.Query, 120))
	st := &run{req: req, timeline: make(Timeline)}
	err = o.cfg.runner.Do(ctx, func(ctx context.Context) error {
		_, err := o.buildGraph(st).Execute(ctx, graph.State{runStateKey: st})
		return err
	})
	o.metrics.CountQuery(st.simple != nil, err)
	if err != nil {
		o.logger.Error("orchestration failed", "error", err, "query", logging.Trim(req.Query, 120))
		return nil, fmt.Errorf("%w: %w", kgperrors.ErrOrchestration, err)
	}

	result = &OrchestrationResult{
		QueryAnalysis:       st.analysis,
		Retrieval:           st.retrieval,
		WebSearch:           st.web,
		Reasoning:           st.reasoning,
		AgentTimeline:       st.timeline,
		IsSimpleResponse:    st.simple != nil,
		TotalProcessingTime: time.Since(start),
	}
	switch {
	case st.simple != nil:
		result.Response = st.simple.Answer()
	case st.summary != nil:
		result.Response = st.summary.Answer()
	default:
		return nil, fmt.Errorf("%w: pipeline finished without a response", kgperrors.ErrOrchestration)
	}
	o.logger.Info("orchestration completed",
		"intent", st.analysis.Intent,
		"simple", result.IsSimpleResponse,
		"confidence", result.Response.Confidence,
		"elapsed", result.TotalProcessingTime,
	)
	return result, nil
}

func (o *Orchestrator) buildGraph(st *run) *graph.Graph {
	return graph.NewBuilder().
		AddNode(nodeClassify, graph.NodeTypeStart, o.traced(nodeClassify, o.classifyNode)).
		AddConditionNode(nodeRoute, o.routeGate, map[string]string{
			"simple": nodeCanned,
			"full":   nodeRetrieve,
		}).
		AddNode(nodeCanned, graph.NodeTypeStage, o.traced(nodeCanned, o.cannedNode)).
		AddNode(nodeRetrieve, graph.NodeTypeStage, o.traced(nodeRetrieve, o.retrieveNode)).
		AddConditionNode(nodeDecideWeb, o.webGate, map[string]string{
			"search": nodeWebSearch,
			"skip":   nodeSynthesis,
		}).
		AddNode(nodeWebSearch, graph.NodeTypeStage, o.traced(nodeWebSearch, o.webSearchNode)).
		AddNode(nodeSynthesis, graph.NodeTypeStage, o.traced(nodeSynthesis, o.synthesizeNode)).
		AddNode(nodeGenerate, graph.NodeTypeStage, o.traced(nodeGenerate, o.generateNode)).
		AddNode(nodeEnd, graph.NodeTypeEnd, func(ctx context.Context, state graph.State) (graph.State, error) {
			return state, nil
		}).
		AddEdge(nodeClassify, nodeRoute).
		AddEdge(nodeCanned, nodeEnd).
		AddEdge(nodeRetrieve, nodeDecideWeb).
		AddEdge(nodeWebSearch, nodeSynthesis).
		AddEdge(nodeSynthesis, nodeGenerate).
		AddEdge(nodeGenerate, nodeEnd).
		SetStart(nodeClassify).
		SetEnd(nodeEnd).
		SetMaxVisits(o.cfg.GraphMaxVisits).
		Observe(func(node string, elapsed time.Duration, err error) {
			key, ok := timelineKeys[node]
			if !ok {
				return
			}
			st.timeline[key] = elapsed
			o.metrics.ObserveStage(key, elapsed)
			o.logger.Debug("stage finished", "stage", key, "elapsed", elapsed, "error", err)
		}).
		Build()
}

// traced wraps a node in a stage span.
func (o *Orchestrator) traced(name string, fn graph.NodeFunc) graph.NodeFunc {
	return func(ctx context.Context, state graph.State) (out graph.State, err error) {
		ctx, span := telemetry.StartStage(ctx, name)
		defer func() { telemetry.End(span, err) }()
		o.logger.Debug("stage started", "stage", name)
		return fn(ctx, state)
	}
}

func (o *Orchestrator) classifyNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getRun(state)
	if err != nil {
		return state, err
	}
	st.analysis = Classify(st.req.Query)
	o.logger.Info("query classified",
		"intent", st.analysis.Intent,
		"confidence", st.analysis.Confidence,
		"web_search", st.analysis.RequiresWebSearch,
	)
	return state, nil
}

func (o *Orchestrator) routeGate(ctx context.Context, state graph.State) (string, error) {
	st, err := getRun(state)
	if err != nil {
		return "", err
	}
	if !st.analysis.RequiresFullPipeline {
		return "simple", nil
	}
	return "full", nil
}

func (o *Orchestrator) cannedNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getRun(state)
	if err != nil {
		return state, err
	}
	st.simple = Respond(st.req.Query)
	return state, nil
}

// retrieveNode is best effort: a failure leaves the retrieval absent.
func (o *Orchestrator) retrieveNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getRun(state)
	if err != nil {
		return state, err
	}
	res, err := o.retriever.Retrieve(ctx, st.req.Query)
	if err != nil {
		o.logger.Warn("local retrieval failed, continuing without local knowledge", "error", err)
		return state, nil
	}
	st.retrieval = res
	return state, nil
}

func (o *Orchestrator) webGate(ctx context.Context, state graph.State) (string, error) {
	st, err := getRun(state)
	if err != nil {
		return "", err
	}
	if shouldSearchWeb(st.req.EnableWebSearch, st.analysis, st.retrieval, o.cfg.LowScoreThreshold) {
		return "search", nil
	}
	return "skip", nil
}

// shouldSearchWeb treats web search as a fallback: it runs when the
// classifier asks for it or when local evidence is absent or weak.
func shouldSearchWeb(enabled bool, analysis QueryAnalysis, retrieval *RetrievalResult, threshold float64) bool {
	if !enabled {
		return false
	}
	if analysis.RequiresWebSearch || retrieval == nil || len(retrieval.Documents) == 0 {
		return true
	}
	for _, doc := range retrieval.Documents {
		if doc.Score >= threshold {
			return false
		}
	}
	return true
}

// webSearchNode is best effort: a failure leaves the web results absent.
func (o *Orchestrator) webSearchNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getRun(state)
	if err != nil {
		return state, err
	}
	st.webRan = true
	res, err := o.web.Search(ctx, st.req.Query, st.req.History)
	if err != nil {
		o.logger.Warn("web search failed, continuing without web results", "error", err)
		return state, nil
	}
	st.web = res
	return state, nil
}

func (o *Orchestrator) synthesizeNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getRun(state)
	if err != nil {
		return state, err
	}
	in := SynthesisInput{
		Query:            st.req.Query,
		WebSearchEnabled: st.webEnabled(),
		History:          st.req.History,
	}
	if st.retrieval != nil {
		in.Documents = st.retrieval.Documents
	}
	if st.web != nil {
		in.WebResults = st.web.Results
	}
	st.reasoning = Synthesize(in)
	o.logger.Debug("evidence synthesized",
		"local", len(st.reasoning.Context.LocalKnowledge),
		"web", len(st.reasoning.Context.WebInsights),
		"conflicts", len(st.reasoning.Context.ConflictingInfo),
		"confidence", st.reasoning.Context.Confidence,
	)
	return state, nil
}

func (o *Orchestrator) generateNode(ctx context.Context, state graph.State) (graph.State, error) {
	st, err := getRun(state)
	if err != nil {
		return state, err
	}
	st.summary = o.generator.Generate(ctx, GenerateInput{
		Query:            st.req.Query,
		Reasoning:        st.reasoning,
		WebSearchEnabled: st.webEnabled(),
		IsFirstMessage:   st.req.IsFirstMessage,
		History:          st.req.History,
	})
	if st.summary == nil {
		return state, fmt.Errorf("answer generator returned no response")
	}
	return state, nil
}

// webEnabled reports whether web evidence may be used: the caller allowed
// it and the search actually ran.
func (st *run) webEnabled() bool {
	return st.req.EnableWebSearch && st.webRan
}

func getRun(state graph.State) (*run, error) {
	raw, ok := state[runStateKey]
	if !ok {
		return nil, fmt.Errorf("run state missing in graph")
	}
	st, ok := raw.(*run)
	if !ok {
		return nil, fmt.Errorf("invalid run state type")
	}
	return st, nil
}
