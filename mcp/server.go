// Package mcp exposes the orchestrator as Model Context Protocol tools.
package mcp

import (
	"context"
	"errors"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

// Tool names.
const (
	ToolAsk    = "ask_kgpgpt"
	ToolHealth = "kgpgpt_health"
)

// Querier is the orchestrator as seen by the MCP tools.
type Querier interface {
	Process(ctx context.Context, req agentic.Request) (*agentic.OrchestrationResult, error)
	Health(ctx context.Context) *agentic.HealthReport
}

// AskInput is the argument object of ask_kgpgpt.
type AskInput struct {
	Query           string            `json:"query" jsonschema:"the question about IIT Kharagpur"`
	EnableWebSearch *bool             `json:"enableWebSearch,omitempty" jsonschema:"allow web search when the knowledge base is not enough; defaults to true"`
	History         []message.Message `json:"history,omitempty" jsonschema:"earlier turns of the conversation, oldest first"`
}

// AskOutput is the structured result of ask_kgpgpt.
type AskOutput struct {
	Answer           string   `json:"answer"`
	Sources          []string `json:"sources"`
	Confidence       float64  `json:"confidence"`
	Intent           string   `json:"intent"`
	IsSimpleResponse bool     `json:"isSimpleResponse"`
}

// HealthInput takes no arguments.
type HealthInput struct{}

// HealthOutput is the structured result of kgpgpt_health.
type HealthOutput struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"agentStatus"`
	Details    []string          `json:"details"`
}

// Server wraps an MCP server with the two tools registered.
type Server struct {
	querier Querier
	chain   *middleware.Chain
	logger  *slog.Logger
	server  *sdkmcp.Server
}

// NewServer registers the tools. A nil chain runs queries without middleware.
func NewServer(querier Querier, chain *middleware.Chain, version string) (*Server, error) {
	if querier == nil {
		return nil, errors.New("mcp: querier is required")
	}
	if chain == nil {
		chain = middleware.NewChain()
	}
	if version == "" {
		version = "dev"
	}
	s := &Server{
		querier: querier,
		chain:   chain,
		logger:  logging.WithComponent("mcp"),
		server:  sdkmcp.NewServer(&sdkmcp.Implementation{Name: "kgpgpt", Version: version}, nil),
	}
	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolAsk,
		Description: "Answer a question about IIT Kharagpur from the campus knowledge base, falling back to web search.",
	}, s.ask)
	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        ToolHealth,
		Description: "Report the health of the retrieval, web search and generation components.",
	}, s.health)
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

// Connect serves one session over t.
func (s *Server) Connect(ctx context.Context, t sdkmcp.Transport) (*sdkmcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

func (s *Server) ask(ctx context.Context, _ *sdkmcp.CallToolRequest, in AskInput) (*sdkmcp.CallToolResult, AskOutput, error) {
	req := &agentic.Request{
		Query:           in.Query,
		EnableWebSearch: in.EnableWebSearch == nil || *in.EnableWebSearch,
		History:         in.History,
	}
	mctx := middleware.NewContext(ctx, req)
	mctx.ClientID = "mcp"
	err := s.chain.Execute(mctx, func(mc *middleware.Context) error {
		res, err := s.querier.Process(mc.Context(), *mc.Request)
		if err != nil {
			return err
		}
		mc.Result = res
		return nil
	})
	if err != nil {
		return nil, AskOutput{}, err
	}
	res := mctx.Result
	sources := res.Response.Sources
	if sources == nil {
		sources = []string{}
	}
	out := AskOutput{
		Answer:           res.Response.Response,
		Sources:          sources,
		Confidence:       res.Response.Confidence,
		Intent:           string(res.QueryAnalysis.Intent),
		IsSimpleResponse: res.IsSimpleResponse,
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: out.Answer}},
	}, out, nil
}

func (s *Server) health(ctx context.Context, _ *sdkmcp.CallToolRequest, _ HealthInput) (*sdkmcp.CallToolResult, HealthOutput, error) {
	report := s.querier.Health(ctx)
	out := HealthOutput{
		Status:     string(report.Status),
		Components: make(map[string]string, len(report.Components)),
		Details:    append([]string{}, report.Details...),
	}
	for name, status := range report.Components {
		out.Components[name] = string(status)
	}
	return nil, out, nil
}
