package agentic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/kgpgpt/search"
)

// HealthStatus is a component or system status.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Component names in the health report.
const (
	ComponentQueryUnderstanding = "Query Understanding"
	ComponentRetriever          = "Retriever"
	ComponentWebSearch          = "Web Search"
	ComponentReasoning          = "Reasoning"
	ComponentSummarizer         = "Summarizer"
)

var components = []string{
	ComponentQueryUnderstanding,
	ComponentRetriever,
	ComponentWebSearch,
	ComponentReasoning,
	ComponentSummarizer,
}

// HealthReport is the aggregate health of the pipeline's dependencies.
type HealthReport struct {
	Status     HealthStatus            `json:"status"`
	Components map[string]HealthStatus `json:"agentStatus"`
	Details    []string                `json:"details"`
	CheckedAt  time.Time               `json:"checkedAt"`
}

type probeResult struct {
	status HealthStatus
	detail string
}

// Health probes every component concurrently. A probe that panics marks its
// component unhealthy without affecting the others.
func (o *Orchestrator) Health(ctx context.Context) *HealthReport {
	probes := map[string]func(context.Context) probeResult{
		ComponentQueryUnderstanding: func(context.Context) probeResult { return probeResult{status: StatusHealthy} },
		ComponentRetriever:          o.probeRetriever,
		ComponentWebSearch:          o.probeWebSearch,
		ComponentReasoning:          func(context.Context) probeResult { return probeResult{status: StatusHealthy} },
		ComponentSummarizer:         o.probeGenerator,
	}

	var (
		mu      sync.Mutex
		results = make(map[string]probeResult, len(probes))
	)
	var g errgroup.Group
	for name, probe := range probes {
		g.Go(func() error {
			res := o.runProbe(ctx, name, probe)
			mu.Lock()
			results[name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := &HealthReport{
		Components: make(map[string]HealthStatus, len(components)),
		Details:    make([]string, 0),
		CheckedAt:  time.Now(),
	}
	healthy := 0
	for _, name := range components {
		res := results[name]
		report.Components[name] = res.status
		if res.detail != "" {
			report.Details = append(report.Details, res.detail)
		}
		if res.status == StatusHealthy {
			healthy++
		}
		o.metrics.SetHealth(name, res.status == StatusHealthy)
	}
	report.Status = aggregateStatus(healthy, len(components))
	o.logger.Info("health checked", "status", report.Status, "healthy", healthy, "total", len(components))
	return report
}

func (o *Orchestrator) runProbe(ctx context.Context, name string, probe func(context.Context) probeResult) (res probeResult) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.HealthProbeTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("health probe panicked", "component", name, "panic", p)
			res = probeResult{status: StatusUnhealthy, detail: fmt.Sprintf("%s failed health check", name)}
		}
	}()
	return probe(ctx)
}

func (o *Orchestrator) probeRetriever(ctx context.Context) probeResult {
	if o.retriever.Ready(ctx) {
		return probeResult{status: StatusHealthy}
	}
	return probeResult{status: StatusDegraded, detail: "vector collection not ready"}
}

func (o *Orchestrator) probeWebSearch(context.Context) probeResult {
	switch o.web.ProviderStatus() {
	case search.StatusPresent:
		return probeResult{status: StatusHealthy}
	case search.StatusLimited:
		return probeResult{status: StatusDegraded, detail: "only keyless web search is available"}
	default:
		return probeResult{status: StatusDegraded, detail: "no web search provider credentials configured"}
	}
}

func (o *Orchestrator) probeGenerator(ctx context.Context) probeResult {
	if err := o.generator.Ping(ctx); err != nil {
		o.logger.Warn("model ping failed", "error", err)
		return probeResult{status: StatusDegraded, detail: "generative model key invalid or unreachable"}
	}
	return probeResult{status: StatusHealthy}
}

// aggregateStatus is healthy when every component is, degraded from 60%
// healthy, and unhealthy below that.
func aggregateStatus(healthy, total int) HealthStatus {
	switch {
	case healthy == total:
		return StatusHealthy
	case float64(healthy) >= float64(total)*0.6:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}
