package runner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweetpotato0/kgpgpt/graph"
)

func TestNewRunnerDefaultConcurrency(t *testing.T) {
	if got := New(0).Capacity(); got != 16 {
		t.Errorf("Capacity() = %d, want 16", got)
	}
}

func TestDoLimitsConcurrency(t *testing.T) {
	r := New(2)
	var current, peak int32
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Do(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&current, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestDoRespectsContext(t *testing.T) {
	r := New(1)
	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = r.Do(context.Background(), func(ctx context.Context) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.Do(ctx, func(ctx context.Context) error { return nil })
	close(hold)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDoRecoversPanic(t *testing.T) {
	r := New(1)
	err := r.Do(context.Background(), func(ctx context.Context) error {
		panic("kaboom")
	})
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if r.InFlight() != 0 {
		t.Fatalf("slot leaked after panic")
	}
}

func TestRunGraph(t *testing.T) {
	g := graph.NewBuilder().
		AddNode("start", graph.NodeTypeStart, func(ctx context.Context, s graph.State) (graph.State, error) {
			s["ran"] = true
			return s, nil
		}).
		AddNode("end", graph.NodeTypeEnd, func(ctx context.Context, s graph.State) (graph.State, error) {
			return s, nil
		}).
		AddEdge("start", "end").
		Build()

	state, err := New(1).RunGraph(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("RunGraph failed: %v", err)
	}
	if state["ran"] != true {
		t.Fatal("graph did not run")
	}
}
