package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.CountQuery(true, nil)
	r.CountQuery(false, errors.New("boom"))
	r.CountQuery(false, errors.New("boom"))
	r.ProviderFailed("bing")
	r.SetHealth("Retriever", true)
	r.ObserveStage("classify", 3*time.Millisecond)

	if got := testutil.ToFloat64(r.requests.WithLabelValues("simple", "ok")); got != 1 {
		t.Fatalf("simple/ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.requests.WithLabelValues("full", "error")); got != 2 {
		t.Fatalf("full/error = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.providerFailures.WithLabelValues("bing")); got != 1 {
		t.Fatalf("bing failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.componentHealth.WithLabelValues("Retriever")); got != 1 {
		t.Fatalf("retriever health = %v, want 1", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.CountQuery(true, nil)
	r.ProviderFailed("serper")
	r.SetHealth("x", false)
	r.ObserveStage("x", time.Second)
}
