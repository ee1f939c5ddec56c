package agentic

import (
	"context"
	"testing"

	"github.com/sweetpotato0/kgpgpt/search"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		retriever *stubRetriever
		web       *stubWeb
		gen       *stubGenerator
		want      HealthStatus
		details   int
	}{
		{"all healthy", &stubRetriever{ready: true}, &stubWeb{status: search.StatusPresent}, &stubGenerator{}, StatusHealthy, 0},
		{"collection not ready", &stubRetriever{}, &stubWeb{status: search.StatusPresent}, &stubGenerator{}, StatusDegraded, 1},
		{"keyless web and no model", &stubRetriever{ready: true}, &stubWeb{status: search.StatusLimited}, &stubGenerator{pingErr: errBackend}, StatusDegraded, 2},
		{"three failing", &stubRetriever{}, &stubWeb{status: search.StatusMissing}, &stubGenerator{pingErr: errBackend}, StatusUnhealthy, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, tt.retriever, tt.web, tt.gen)
			report := o.Health(context.Background())
			if report.Status != tt.want {
				t.Fatalf("status = %s, want %s (%v)", report.Status, tt.want, report.Components)
			}
			if len(report.Details) != tt.details {
				t.Fatalf("details = %v", report.Details)
			}
			if len(report.Components) != 5 {
				t.Fatalf("components = %v", report.Components)
			}
			if report.Components[ComponentQueryUnderstanding] != StatusHealthy || report.Components[ComponentReasoning] != StatusHealthy {
				t.Fatal("local components must always be healthy")
			}
		})
	}
}

func TestHealthIsolatesPanickingProbe(t *testing.T) {
	o := newTestOrchestrator(t, &stubRetriever{panics: true}, &stubWeb{status: search.StatusPresent}, &stubGenerator{})
	report := o.Health(context.Background())
	if report.Components[ComponentRetriever] != StatusUnhealthy {
		t.Fatalf("retriever = %s", report.Components[ComponentRetriever])
	}
	if report.Components[ComponentSummarizer] != StatusHealthy || report.Components[ComponentWebSearch] != StatusHealthy {
		t.Fatal("a panicking probe affected the others")
	}
	// four of five healthy
	if report.Status != StatusDegraded {
		t.Fatalf("status = %s", report.Status)
	}
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		healthy, total int
		want           HealthStatus
	}{
		{5, 5, StatusHealthy},
		{4, 5, StatusDegraded},
		{3, 5, StatusDegraded},
		{2, 5, StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := aggregateStatus(tt.healthy, tt.total); got != tt.want {
			t.Errorf("aggregateStatus(%d, %d) = %s, want %s", tt.healthy, tt.total, got, tt.want)
		}
	}
}
