package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	*agentic.HealthReport
	Timestamp time.Time      `json:"timestamp"`
	Config    map[string]any `json:"config,omitempty"`
}

// handleHealth always probes; only the per-query systemHealth is cached.
func (s *Server) handleHealth(c *gin.Context) {
	report := s.querier.Health(c.Request.Context())
	s.health.SetWithTTL(healthKey, report, 1, s.opts.HealthCacheTTL)

	status := http.StatusOK
	if report.Status == agentic.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, HealthResponse{
		HealthReport: report,
		Timestamp:    time.Now().UTC(),
		Config:       s.opts.Summary,
	})
}
