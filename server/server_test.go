package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweetpotato0/kgpgpt/conversation"
	"github.com/sweetpotato0/kgpgpt/conversation/store"
	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/middleware/enricher"
	"github.com/sweetpotato0/kgpgpt/middleware/errorhandler"
	"github.com/sweetpotato0/kgpgpt/middleware/limiter"
	"github.com/sweetpotato0/kgpgpt/middleware/validator"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/pkg/metrics"
	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubQuerier struct {
	err    error
	block  bool
	health agentic.HealthStatus

	mu          sync.Mutex
	requests    []agentic.Request
	healthCalls atomic.Int32
}

func (s *stubQuerier) Process(ctx context.Context, req agentic.Request) (*agentic.OrchestrationResult, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &agentic.OrchestrationResult{
		Response: agentic.Answer{
			Response:   "The director is Professor X.",
			Confidence: 0.8,
			Sources:    []string{agentic.SourceWebResults},
			Metadata:   map[string]any{"model": "stub-model", "tokensUsed": 12},
		},
		QueryAnalysis: agentic.QueryAnalysis{
			Intent:               agentic.IntentInternet,
			Confidence:           0.9,
			Reasoning:            "needs current information",
			RequiresFullPipeline: true,
		},
		AgentTimeline:       agentic.Timeline{agentic.StageQueryUnderstanding: time.Millisecond, agentic.StageWebSearch: 40 * time.Millisecond},
		TotalProcessingTime: 50 * time.Millisecond,
	}, nil
}

func (s *stubQuerier) Health(ctx context.Context) *agentic.HealthReport {
	s.healthCalls.Add(1)
	status := s.health
	if status == "" {
		status = agentic.StatusHealthy
	}
	return &agentic.HealthReport{Status: status, Components: map[string]agentic.HealthStatus{}, CheckedAt: time.Now()}
}

func (s *stubQuerier) lastRequest() agentic.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestServer(t *testing.T, q Querier, opts Options) *Server {
	t.Helper()
	opts.Logger = logging.Discard()
	if opts.Chain == nil {
		opts.Chain = middleware.NewChain(
			errorhandler.NewErrorHandler(nil),
			limiter.NewRateLimiter(0, 0),
			validator.NewInputValidator(0),
		)
	}
	s, err := New(q, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestQueryResponseShape(t *testing.T) {
	q := &stubQuerier{}
	s := newTestServer(t, q, Options{})

	w := do(t, s, http.MethodPost, "/api/query", `{"query":"  who is the director  ","conversationHistory":[{"role":"user","content":"hello"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	resp := decode[QueryResponse](t, w)
	if resp.Response != "The director is Professor X." || resp.Confidence != 0.8 || len(resp.Sources) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Metadata["model"] != "stub-model" || resp.Metadata["totalProcessingTime"] != float64(50) || resp.Metadata["isSimpleResponse"] != false {
		t.Fatalf("metadata = %v", resp.Metadata)
	}
	timeline, ok := resp.Metadata["agentTimeline"].(map[string]any)
	if !ok || timeline[agentic.StageWebSearch] != float64(40) {
		t.Fatalf("agentTimeline = %v", resp.Metadata["agentTimeline"])
	}
	if resp.QueryAnalysis.Intent != agentic.IntentInternet || !resp.QueryAnalysis.RequiresFullPipeline {
		t.Fatalf("queryAnalysis = %+v", resp.QueryAnalysis)
	}
	if resp.SystemHealth == nil || resp.SystemHealth.Status != agentic.StatusHealthy {
		t.Fatalf("systemHealth = %+v", resp.SystemHealth)
	}

	req := q.lastRequest()
	if req.Query != "who is the director" || !req.EnableWebSearch || len(req.History) != 1 {
		t.Fatalf("request = %+v", req)
	}
}

func TestQueryWebSearchFlag(t *testing.T) {
	q := &stubQuerier{}
	s := newTestServer(t, q, Options{})
	if w := do(t, s, http.MethodPost, "/api/query", `{"query":"q","enableWebSearch":false,"isFirstMessage":true}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	req := q.lastRequest()
	if req.EnableWebSearch || !req.IsFirstMessage {
		t.Fatalf("request = %+v", req)
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name    string
		querier *stubQuerier
		opts    Options
		body    string
		want    int
	}{
		{"malformed json", &stubQuerier{}, Options{}, `{"query":`, http.StatusBadRequest},
		{"empty query", &stubQuerier{}, Options{}, `{"query":"   "}`, http.StatusBadRequest},
		{"bad history role", &stubQuerier{}, Options{}, `{"query":"q","conversationHistory":[{"role":"bot","content":"x"}]}`, http.StatusBadRequest},
		{"orchestration failure", &stubQuerier{err: errors.New("boom")}, Options{}, `{"query":"q"}`, http.StatusInternalServerError},
		{"timeout", &stubQuerier{block: true}, Options{RequestTimeout: 20 * time.Millisecond}, `{"query":"q"}`, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.querier, tt.opts)
			w := do(t, s, http.MethodPost, "/api/query", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			body := decode[ErrorResponse](t, w)
			if body.Error == "" || body.Message == "" {
				t.Fatalf("error body = %+v", body)
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(body.Message, "boom") {
				t.Fatal("internal error detail leaked")
			}
		})
	}
}

func TestQueryRateLimited(t *testing.T) {
	chain := middleware.NewChain(errorhandler.NewErrorHandler(nil), limiter.NewRateLimiter(0.001, 1))
	s := newTestServer(t, &stubQuerier{}, Options{Chain: chain})
	if w := do(t, s, http.MethodPost, "/api/query", `{"query":"q"}`); w.Code != http.StatusOK {
		t.Fatalf("first status = %d", w.Code)
	}
	if w := do(t, s, http.MethodPost, "/api/query", `{"query":"q"}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", w.Code)
	}
}

func TestSystemHealthIsCached(t *testing.T) {
	q := &stubQuerier{}
	s := newTestServer(t, q, Options{HealthCacheTTL: time.Minute})
	for i := 0; i < 3; i++ {
		if w := do(t, s, http.MethodPost, "/api/query", `{"query":"q"}`); w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
	if got := q.healthCalls.Load(); got != 1 {
		t.Fatalf("health probes = %d, want 1", got)
	}
}

func TestHealthEndpoint(t *testing.T) {
	summary := map[string]any{"vector": map[string]any{"backend": "qdrant"}}
	s := newTestServer(t, &stubQuerier{health: agentic.StatusDegraded}, Options{Summary: summary})

	w := do(t, s, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["status"] != "degraded" || body["config"] == nil || body["timestamp"] == nil {
		t.Fatalf("body = %v", body)
	}

	unhealthy := newTestServer(t, &stubQuerier{health: agentic.StatusUnhealthy}, Options{})
	if w := do(t, unhealthy, http.MethodGet, "/api/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status = %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := metrics.New(prometheus.NewRegistry())
	rec.CountQuery(false, nil)
	s := newTestServer(t, &stubQuerier{}, Options{Metrics: rec})

	w := do(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "kgpgpt_") {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	bare := newTestServer(t, &stubQuerier{}, Options{})
	if w := do(t, bare, http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Fatalf("metrics without recorder: status = %d", w.Code)
	}
}

func TestConversationRoutes(t *testing.T) {
	st := store.NewInMemoryStore()
	s := newTestServer(t, &stubQuerier{}, Options{Store: st})

	w := do(t, s, http.MethodPost, "/api/conversations", `{"userId":"student-1","title":"Halls"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d %s", w.Code, w.Body.String())
	}
	created := decode[struct {
		Conversation conversation.Conversation `json:"conversation"`
	}](t, w).Conversation
	if created.ID == "" || created.Title != "Halls" {
		t.Fatalf("created = %+v", created)
	}

	if w := do(t, s, http.MethodPost, "/api/conversations", `{"title":"no user"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("create without user: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, "/api/conversations", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("list without user: %d", w.Code)
	}

	path := "/api/conversations/" + created.ID
	if w := do(t, s, http.MethodPost, path+"/messages", `{"role":"user","content":"which hall is largest"}`); w.Code != http.StatusCreated {
		t.Fatalf("add message: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, s, http.MethodPost, path+"/messages", `{"role":"user"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("add message without content: %d", w.Code)
	}

	msgs := decode[struct {
		Messages []conversation.Message `json:"messages"`
	}](t, do(t, s, http.MethodGet, path+"/messages", "")).Messages
	if len(msgs) != 1 || msgs[0].Content != "which hall is largest" {
		t.Fatalf("messages = %+v", msgs)
	}

	list := decode[struct {
		Conversations []conversation.Conversation `json:"conversations"`
	}](t, do(t, s, http.MethodGet, "/api/conversations?userId=student-1", "")).Conversations
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}

	if w := do(t, s, http.MethodDelete, path, ""); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := do(t, s, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: %d", w.Code)
	}
}

func TestQueryRecordsConversationTurns(t *testing.T) {
	st := store.NewInMemoryStore()
	conv := &conversation.Conversation{UserID: "u"}
	if err := st.CreateConversation(context.Background(), conv); err != nil {
		t.Fatal(err)
	}
	q := &stubQuerier{}
	chain := middleware.NewChain(
		errorhandler.NewErrorHandler(nil),
		validator.NewInputValidator(0),
		enricher.NewContextEnricher(enricher.LoadHistory(st, 0)),
	)
	s := newTestServer(t, q, Options{Store: st, Chain: chain})

	body, _ := json.Marshal(QueryRequest{Query: "who is the director", ConversationID: conv.ID})
	w := do(t, s, http.MethodPost, "/api/query", string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	if !q.lastRequest().IsFirstMessage {
		t.Fatal("empty stored conversation should mark the first message")
	}

	msgs, err := st.Messages(context.Background(), conv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "who is the director" || msgs[1].Content != "The director is Professor X." {
		t.Fatalf("stored turns = %+v", msgs)
	}

	if w := do(t, s, http.MethodPost, "/api/query", `{"query":"and his email","conversationId":"`+conv.ID+`"}`); w.Code != http.StatusOK {
		t.Fatalf("follow-up status = %d", w.Code)
	}
	if h := q.lastRequest().History; len(h) != 2 {
		t.Fatalf("follow-up history = %+v", h)
	}

	missing := do(t, s, http.MethodPost, "/api/query", `{"query":"q","conversationId":"missing"}`)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("unknown conversation status = %d", missing.Code)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, &stubQuerier{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
