package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweetpotato0/kgpgpt/conversation"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

// QueryRequest is the inbound body of POST /api/query.
type QueryRequest struct {
	Query               string            `json:"query"`
	EnableWebSearch     *bool             `json:"enableWebSearch"`
	IsFirstMessage      bool              `json:"isFirstMessage"`
	ConversationHistory []message.Message `json:"conversationHistory"`
	ConversationID      string            `json:"conversationId"`
}

// QueryAnalysisView is the analysis subset returned to clients.
type QueryAnalysisView struct {
	Intent               agentic.Intent `json:"intent"`
	Confidence           float64        `json:"confidence"`
	Reasoning            string         `json:"reasoning"`
	RequiresFullPipeline bool           `json:"requiresFullPipeline"`
}

// QueryResponse is the outbound body of POST /api/query.
type QueryResponse struct {
	Response       string                `json:"response"`
	Confidence     float64               `json:"confidence"`
	Sources        []string              `json:"sources"`
	Metadata       map[string]any        `json:"metadata"`
	QueryAnalysis  QueryAnalysisView     `json:"queryAnalysis"`
	SystemHealth   *agentic.HealthReport `json:"systemHealth"`
	ConversationID string                `json:"conversationId,omitempty"`
}

func (s *Server) handleQueryInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Query API endpoint is working. Use POST with a query field. Web search runs as a fallback when the knowledge base lacks information.",
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var body QueryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, fmt.Errorf("%w: %w", kgperrors.ErrInvalidInput, err))
		return
	}
	req := &agentic.Request{
		Query:           body.Query,
		EnableWebSearch: body.EnableWebSearch == nil || *body.EnableWebSearch,
		IsFirstMessage:  body.IsFirstMessage,
		History:         body.ConversationHistory,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()

	mctx := middleware.NewContext(ctx, req)
	mctx.ClientID = c.ClientIP()
	mctx.ConversationID = body.ConversationID

	err := s.opts.Chain.Execute(mctx, func(mc *middleware.Context) error {
		res, err := s.querier.Process(mc.Context(), *mc.Request)
		if err != nil {
			return err
		}
		mc.Result = res
		return nil
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	res := mctx.Result
	if body.ConversationID != "" {
		s.recordTurns(c.Request.Context(), body.ConversationID, req.Query, res)
	}
	c.JSON(http.StatusOK, QueryResponse{
		Response:   res.Response.Response,
		Confidence: res.Response.Confidence,
		Sources:    res.Response.Sources,
		Metadata:   responseMetadata(res),
		QueryAnalysis: QueryAnalysisView{
			Intent:               res.QueryAnalysis.Intent,
			Confidence:           res.QueryAnalysis.Confidence,
			Reasoning:            res.QueryAnalysis.Reasoning,
			RequiresFullPipeline: res.QueryAnalysis.RequiresFullPipeline,
		},
		SystemHealth:   s.systemHealth(c.Request.Context()),
		ConversationID: body.ConversationID,
	})
}

// responseMetadata merges the answer's metadata with pipeline timing.
func responseMetadata(res *agentic.OrchestrationResult) map[string]any {
	meta := make(map[string]any, len(res.Response.Metadata)+3)
	for k, v := range res.Response.Metadata {
		meta[k] = v
	}
	meta["totalProcessingTime"] = res.TotalProcessingTime.Milliseconds()
	meta["agentTimeline"] = res.AgentTimeline.Millis()
	meta["isSimpleResponse"] = res.IsSimpleResponse
	return meta
}

// recordTurns appends the user turn and the answer to the stored
// conversation. Failures are logged; the answer is still returned.
func (s *Server) recordTurns(ctx context.Context, conversationID, query string, res *agentic.OrchestrationResult) {
	if s.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	turns := []*conversation.Message{
		{ConversationID: conversationID, Role: message.RoleUser, Content: query},
		{
			ConversationID: conversationID,
			Role:           message.RoleAssistant,
			Content:        res.Response.Response,
			Metadata: map[string]any{
				"confidence":       res.Response.Confidence,
				"sources":          res.Response.Sources,
				"isSimpleResponse": res.IsSimpleResponse,
			},
		},
	}
	for _, m := range turns {
		if err := s.opts.Store.AddMessage(ctx, m); err != nil {
			s.logger.Warn("failed to record conversation turn", "conversation", conversationID, "error", err)
			return
		}
	}
}
